package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateTagger(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Bind == "" {
		return errors.New("server.bind must be set")
	}
	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		return errors.New("server.read_header_timeout_seconds must be positive")
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return errors.New("server.shutdown_timeout_seconds must be positive")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.TargetSampleRate < 8000 || c.Audio.TargetSampleRate > 192000 {
		return fmt.Errorf("audio.target_sample_rate must be between 8000 and 192000, got %d", c.Audio.TargetSampleRate)
	}
	if c.Audio.FastMaxSeconds <= 0 {
		return errors.New("audio.fast_max_seconds must be positive")
	}
	switch c.Audio.Decoder {
	case DecoderAuto, DecoderFFmpeg, DecoderNative:
	default:
		return fmt.Errorf("audio.decoder must be auto, ffmpeg or native, got %q", c.Audio.Decoder)
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Count < 1 {
		return errors.New("workers.count must be at least 1")
	}
	if c.Workers.QueueSize < 1 {
		return errors.New("workers.queue_size must be at least 1")
	}
	return nil
}

func (c *Config) validateTagger() error {
	if c.Tagger.URL == "" {
		return nil
	}
	u, err := url.Parse(c.Tagger.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("tagger.url must be an http(s) URL, got %q", c.Tagger.URL)
	}
	if c.Tagger.ClientID != "" && c.Tagger.TokenURL == "" {
		return errors.New("tagger.token_url is required when tagger.client_id is set")
	}
	if c.Tagger.TimeoutSeconds <= 0 {
		return errors.New("tagger.timeout_seconds must be positive")
	}
	if c.Tagger.MaxRetries < 1 {
		return errors.New("tagger.max_retries must be at least 1")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path must be set for the sqlite driver")
		}
	case StoreNone:
	default:
		return fmt.Errorf("store.driver must be sqlite or none, got %q", c.Store.Driver)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		return errors.New("events.topic is required when brokers are set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
