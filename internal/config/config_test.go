package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/ewilliams-labs/cadence/internal/config"
)

func writeConfig(t *testing.T, cfg any) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cadence.toml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	def := config.Default()
	if cfg.Server.Bind != def.Server.Bind {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Audio.TargetSampleRate != 44100 || cfg.Audio.FastMaxSeconds != 60 {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Audio.Decoder != config.DecoderAuto {
		t.Fatalf("unexpected decoder: %q", cfg.Audio.Decoder)
	}
	if cfg.Audio.TmpDir == "" {
		t.Fatal("expected tmp dir to default to the system temp dir")
	}
	if cfg.Store.Driver != config.StoreSQLite {
		t.Fatalf("unexpected store driver: %q", cfg.Store.Driver)
	}
	if len(cfg.Events.Brokers) != 0 {
		t.Fatalf("expected events disabled, got %v", cfg.Events.Brokers)
	}
}

func TestLoadReadsFileAndEnvOverrides(t *testing.T) {
	fileCfg := config.Default()
	fileCfg.Server.Bind = ":9000"
	fileCfg.Audio.Decoder = "NATIVE"
	fileCfg.Workers.Count = 4
	fileCfg.Tagger.URL = "http://tagger.local:8500/"
	fileCfg.Events.Brokers = []string{" kafka-1:9092 ", ""}
	path := writeConfig(t, fileCfg)

	t.Setenv("CADENCE_BIND", ":9100")
	t.Setenv("CADENCE_LOG_LEVEL", "DEBUG")
	t.Setenv("CADENCE_QUEUE_SIZE", "7")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Bind != ":9100" {
		t.Errorf("env bind not applied: %q", cfg.Server.Bind)
	}
	if cfg.Audio.Decoder != config.DecoderNative {
		t.Errorf("decoder not normalized: %q", cfg.Audio.Decoder)
	}
	if cfg.Workers.Count != 4 || cfg.Workers.QueueSize != 7 {
		t.Errorf("unexpected workers: %+v", cfg.Workers)
	}
	if cfg.Tagger.URL != "http://tagger.local:8500" {
		t.Errorf("tagger url not trimmed: %q", cfg.Tagger.URL)
	}
	if len(cfg.Events.Brokers) != 1 || cfg.Events.Brokers[0] != "kafka-1:9092" {
		t.Errorf("brokers not normalized: %v", cfg.Events.Brokers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level not normalized: %q", cfg.Logging.Level)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		if _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("unknown field", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte("[server]\nbnid = \":1\"\n"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
			t.Fatalf("expected parse error, got %v", err)
		}
	})
	t.Run("bad env number", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("CADENCE_WORKERS", "many")
		if _, err := config.Load(""); err == nil || !strings.Contains(err.Error(), "CADENCE_WORKERS") {
			t.Fatalf("expected env error, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
		want   string
	}{
		{name: "defaults", mutate: func(c *config.Config) {}},
		{name: "sample rate", mutate: func(c *config.Config) { c.Audio.TargetSampleRate = 100 }, want: "audio.target_sample_rate"},
		{name: "decoder", mutate: func(c *config.Config) { c.Audio.Decoder = "gstreamer" }, want: "audio.decoder"},
		{name: "workers", mutate: func(c *config.Config) { c.Workers.Count = 0 }, want: "workers.count"},
		{name: "tagger url", mutate: func(c *config.Config) { c.Tagger.URL = "ftp://x" }, want: "tagger.url"},
		{name: "tagger token url", mutate: func(c *config.Config) {
			c.Tagger.URL = "https://tagger.example"
			c.Tagger.ClientID = "id"
		}, want: "tagger.token_url"},
		{name: "store driver", mutate: func(c *config.Config) { c.Store.Driver = "postgres" }, want: "store.driver"},
		{name: "store disabled", mutate: func(c *config.Config) {
			c.Store.Driver = config.StoreNone
			c.Store.Path = ""
		}},
		{name: "events topic", mutate: func(c *config.Config) {
			c.Events.Brokers = []string{"k:9092"}
			c.Events.Topic = ""
		}, want: "events.topic"},
		{name: "log format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }, want: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
