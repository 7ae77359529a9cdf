// Package app wires configured adapters into an analysis orchestrator.
package app

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/cadence/internal/adapters/ffmpeg"
	"github.com/ewilliams-labs/cadence/internal/adapters/kafka"
	"github.com/ewilliams-labs/cadence/internal/adapters/native"
	"github.com/ewilliams-labs/cadence/internal/adapters/sqlite"
	"github.com/ewilliams-labs/cadence/internal/adapters/tagger"
	"github.com/ewilliams-labs/cadence/internal/adapters/wavfile"
	"github.com/ewilliams-labs/cadence/internal/config"
	"github.com/ewilliams-labs/cadence/internal/core/ports"
	"github.com/ewilliams-labs/cadence/internal/core/services"
)

// App holds the orchestrator and the resources that must be released on
// shutdown.
type App struct {
	Orchestrator *services.Orchestrator
	Decoder      string
	closers      []func() error
}

// New builds every adapter named by cfg and injects them into the core
// service.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{}

	ffmpegPath, ffmpegErr := ffmpeg.Locate(cfg.Audio.FFmpegBinary)

	var decoder ports.Decoder
	switch cfg.Audio.Decoder {
	case config.DecoderFFmpeg:
		if ffmpegErr != nil {
			return nil, ffmpegErr
		}
		decoder, a.Decoder = ffmpeg.NewDecoder(ffmpegPath, cfg.Audio.TmpDir), config.DecoderFFmpeg
	case config.DecoderNative:
		decoder, a.Decoder = native.NewDecoder(cfg.Audio.TmpDir), config.DecoderNative
	default:
		if ffmpegErr == nil {
			decoder, a.Decoder = ffmpeg.NewDecoder(ffmpegPath, cfg.Audio.TmpDir), config.DecoderFFmpeg
		} else {
			logger.Warn("ffmpeg not found, using native decoder (mp3 and wav only)", zap.Error(ffmpegErr))
			decoder, a.Decoder = native.NewDecoder(cfg.Audio.TmpDir), config.DecoderNative
		}
	}

	var meter ports.LoudnessMeter = ffmpeg.NoLoudness{}
	if ffmpegErr == nil {
		meter = ffmpeg.NewLoudnessMeter(ffmpegPath, logger)
	}

	var model ports.GenreMoodModel = tagger.Unavailable{}
	if cfg.Tagger.URL != "" {
		model = tagger.NewClient(tagger.Config{
			BaseURL:      cfg.Tagger.URL,
			Model:        cfg.Tagger.Model,
			ClientID:     cfg.Tagger.ClientID,
			ClientSecret: cfg.Tagger.ClientSecret,
			TokenURL:     cfg.Tagger.TokenURL,
			Timeout:      time.Duration(cfg.Tagger.TimeoutSeconds) * time.Second,
			MaxRetries:   cfg.Tagger.MaxRetries,
		}, nil, logger)
	}

	opts := []services.Option{services.WithLogger(logger)}

	if cfg.Store.Driver == config.StoreSQLite {
		repo, err := sqlite.NewAdapter(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("app: storage: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		opts = append(opts, services.WithRepository(repo))
	}

	if len(cfg.Events.Brokers) > 0 {
		pub, err := kafka.NewPublisher(kafka.Config{Brokers: cfg.Events.Brokers, Topic: cfg.Events.Topic}, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("app: events: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, services.WithPublisher(pub))
	}

	a.Orchestrator = services.NewOrchestrator(
		decoder,
		wavfile.Loader{},
		model,
		meter,
		services.Options{TargetSampleRate: cfg.Audio.TargetSampleRate, FastMaxSeconds: cfg.Audio.FastMaxSeconds},
		opts...,
	)
	return a, nil
}

// Close releases storage and publisher resources in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
