package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Server contains HTTP listener settings.
type Server struct {
	Bind                     string `toml:"bind"`
	ReadHeaderTimeoutSeconds int    `toml:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int    `toml:"shutdown_timeout_seconds"`
	MaxUploadMB              int    `toml:"max_upload_mb"`
}

// Audio contains decoding and analysis settings.
type Audio struct {
	TargetSampleRate int     `toml:"target_sample_rate"`
	FastMaxSeconds   float64 `toml:"fast_max_seconds"`
	Decoder          string  `toml:"decoder"` // auto, ffmpeg or native
	FFmpegBinary     string  `toml:"ffmpeg_binary"`
	TmpDir           string  `toml:"tmp_dir"`
}

// Workers contains worker pool sizing.
type Workers struct {
	Count     int `toml:"count"`
	QueueSize int `toml:"queue_size"`
}

// Tagger contains the genre/mood tagging service connection.
type Tagger struct {
	URL            string `toml:"url"`
	Model          string `toml:"model"`
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	TokenURL       string `toml:"token_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

// Store contains result storage settings.
type Store struct {
	Driver string `toml:"driver"` // sqlite or none
	Path   string `toml:"path"`
}

// Events contains the result event publisher settings. Publishing is
// disabled when no brokers are listed.
type Events struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cadence.
type Config struct {
	Server  Server  `toml:"server"`
	Audio   Audio   `toml:"audio"`
	Workers Workers `toml:"workers"`
	Tagger  Tagger  `toml:"tagger"`
	Store   Store   `toml:"store"`
	Events  Events  `toml:"events"`
	Logging Logging `toml:"logging"`
}

// DefaultFileName is looked up in the working directory when Load is
// called without a path.
const DefaultFileName = "cadence.toml"

// Load reads the configuration file at path (or ./cadence.toml when path
// is empty and the file exists), applies environment overrides, and
// validates the result. An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return path, true, nil
	}
	projectPath, err := filepath.Abs(DefaultFileName)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(projectPath)
	switch {
	case err == nil && !info.IsDir():
		return projectPath, true, nil
	case err == nil || errors.Is(err, fs.ErrNotExist):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("stat config: %w", err)
	}
}

// applyEnv overrides file values with CADENCE_* environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("CADENCE_BIND", &c.Server.Bind)
	str("CADENCE_TMP_DIR", &c.Audio.TmpDir)
	str("CADENCE_DECODER", &c.Audio.Decoder)
	str("CADENCE_FFMPEG", &c.Audio.FFmpegBinary)
	str("CADENCE_TAGGER_URL", &c.Tagger.URL)
	str("CADENCE_TAGGER_CLIENT_ID", &c.Tagger.ClientID)
	str("CADENCE_TAGGER_CLIENT_SECRET", &c.Tagger.ClientSecret)
	str("CADENCE_TAGGER_TOKEN_URL", &c.Tagger.TokenURL)
	str("CADENCE_STORE_DRIVER", &c.Store.Driver)
	str("CADENCE_STORE_PATH", &c.Store.Path)
	str("CADENCE_KAFKA_TOPIC", &c.Events.Topic)
	str("CADENCE_LOG_LEVEL", &c.Logging.Level)
	str("CADENCE_LOG_FORMAT", &c.Logging.Format)
	if v, ok := lookup("CADENCE_KAFKA_BROKERS"); ok && strings.TrimSpace(v) != "" {
		c.Events.Brokers = strings.Split(v, ",")
	}
	if err := num("CADENCE_WORKERS", &c.Workers.Count); err != nil {
		return err
	}
	return num("CADENCE_QUEUE_SIZE", &c.Workers.QueueSize)
}
