package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() {
	c.Audio.Decoder = strings.ToLower(strings.TrimSpace(c.Audio.Decoder))
	if c.Audio.Decoder == "" {
		c.Audio.Decoder = defaultDecoder
	}
	if strings.TrimSpace(c.Audio.FFmpegBinary) == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Audio.TmpDir) == "" {
		c.Audio.TmpDir = os.TempDir()
	}

	c.Tagger.URL = strings.TrimRight(strings.TrimSpace(c.Tagger.URL), "/")
	if strings.TrimSpace(c.Tagger.Model) == "" {
		c.Tagger.Model = defaultTaggerModel
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}

	brokers := make([]string, 0, len(c.Events.Brokers))
	for _, b := range c.Events.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.Events.Brokers = brokers

	c.normalizeLogging()
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
