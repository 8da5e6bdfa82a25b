// Package config loads the optional timer-server.yaml and resolves defaults.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the timer-server.yaml configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Timer   TimerConfig   `yaml:"timer"`
	Log     LogConfig     `yaml:"log"`
	Profile string        `yaml:"profile,omitempty"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`
}

// StorageConfig contains the journal database settings. An empty path
// disables persistence.
type StorageConfig struct {
	Path string `yaml:"path,omitempty"`
}

// TimerConfig contains the countdown settings.
type TimerConfig struct {
	ID       string        `yaml:"id,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
}

// LogConfig contains the logger settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Path: "timer.db",
		},
		Timer: TimerConfig{
			ID:       "superwave",
			Interval: time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "terminal",
		},
		Profile: ProfileDefault,
	}
}

// LoadOptional reads path if it exists and overlays it on Default. A missing
// file is not an error.
func LoadOptional(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", path)
	}

	return cfg, nil
}

// Validate checks values that have no usable fallback.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is empty")
	}
	if c.Server.ShutdownTimeout < 0 {
		return errors.Errorf("server.shutdown_timeout is negative: %s", c.Server.ShutdownTimeout)
	}
	if strings.TrimSpace(c.Timer.ID) == "" {
		return errors.New("timer.id is empty")
	}
	if _, err := TuningFor(c.Profile); err != nil {
		return err
	}

	return nil
}

// Tuning returns the buffer and rate settings of the configured profile.
func (c *Config) Tuning() *Tuning {
	t, err := TuningFor(c.Profile)
	if err != nil {
		return DefaultTuning()
	}
	return t
}
