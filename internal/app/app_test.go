package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ewilliams-labs/cadence/internal/config"
	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/services"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *config.Config, dir string)
		wantDecoder string
		wantErr     bool
		storage     bool
	}{
		{
			name: "native decoder without storage",
			mutate: func(c *config.Config, dir string) {
				c.Audio.Decoder = config.DecoderNative
				c.Store.Driver = config.StoreNone
			},
			wantDecoder: config.DecoderNative,
		},
		{
			name: "sqlite storage and kafka events",
			mutate: func(c *config.Config, dir string) {
				c.Audio.Decoder = config.DecoderNative
				c.Store.Path = filepath.Join(dir, "cadence.db")
				c.Events.Brokers = []string{"localhost:9092"}
				c.Tagger.URL = "http://127.0.0.1:1"
			},
			wantDecoder: config.DecoderNative,
			storage:     true,
		},
		{
			name: "missing ffmpeg binary",
			mutate: func(c *config.Config, dir string) {
				c.Audio.Decoder = config.DecoderFFmpeg
				c.Audio.FFmpegBinary = "cadence-no-such-ffmpeg"
			},
			wantErr: true,
		},
		{
			name: "auto falls back to native",
			mutate: func(c *config.Config, dir string) {
				c.Audio.FFmpegBinary = "cadence-no-such-ffmpeg"
				c.Store.Driver = config.StoreNone
			},
			wantDecoder: config.DecoderNative,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := config.Default()
			cfg.Audio.TmpDir = dir
			tt.mutate(&cfg, dir)

			a, err := New(&cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer a.Close()

			if a.Decoder != tt.wantDecoder {
				t.Errorf("decoder = %q, want %q", a.Decoder, tt.wantDecoder)
			}
			_, err = a.Orchestrator.Result(context.Background(), "missing")
			if tt.storage {
				if !errors.Is(err, domain.ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
			} else if !errors.Is(err, services.ErrStorageDisabled) {
				t.Errorf("expected ErrStorageDisabled, got %v", err)
			}
		})
	}
}
