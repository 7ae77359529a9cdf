package config

const (
	defaultBind                     = ":8080"
	defaultReadHeaderTimeoutSeconds = 15
	defaultShutdownTimeoutSeconds   = 10
	defaultMaxUploadMB              = 200
	defaultTargetSampleRate         = 44100
	defaultFastMaxSeconds           = 60
	defaultDecoder                  = DecoderAuto
	defaultFFmpegBinary             = "ffmpeg"
	defaultWorkerCount              = 2
	defaultQueueSize                = 100
	defaultTaggerModel              = "MSD_musicnn"
	defaultTaggerTimeoutSeconds     = 60
	defaultTaggerMaxRetries         = 3
	defaultStoreDriver              = StoreSQLite
	defaultStorePath                = "cadence.db"
	defaultEventsTopic              = "cadence.analyses"
	defaultLogFormat                = "json"
	defaultLogLevel                 = "info"
)

// Decoder choices for Audio.Decoder.
const (
	DecoderAuto   = "auto"
	DecoderFFmpeg = "ffmpeg"
	DecoderNative = "native"
)

// Store drivers for Store.Driver.
const (
	StoreSQLite = "sqlite"
	StoreNone   = "none"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:                     defaultBind,
			ReadHeaderTimeoutSeconds: defaultReadHeaderTimeoutSeconds,
			ShutdownTimeoutSeconds:   defaultShutdownTimeoutSeconds,
			MaxUploadMB:              defaultMaxUploadMB,
		},
		Audio: Audio{
			TargetSampleRate: defaultTargetSampleRate,
			FastMaxSeconds:   defaultFastMaxSeconds,
			Decoder:          defaultDecoder,
			FFmpegBinary:     defaultFFmpegBinary,
		},
		Workers: Workers{
			Count:     defaultWorkerCount,
			QueueSize: defaultQueueSize,
		},
		Tagger: Tagger{
			Model:          defaultTaggerModel,
			TimeoutSeconds: defaultTaggerTimeoutSeconds,
			MaxRetries:     defaultTaggerMaxRetries,
		},
		Store: Store{
			Driver: defaultStoreDriver,
			Path:   defaultStorePath,
		},
		Events: Events{
			Topic: defaultEventsTopic,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
