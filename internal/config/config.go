// Package config loads the client configuration file. Everything has a
// sensible default; a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk client configuration.
type Config struct {
	// Socket overrides helper socket discovery when set.
	Socket string `yaml:"socket"`
	// AutoLaunch controls whether the client may start the helper itself
	// after repeated connection failures.
	AutoLaunch bool `yaml:"auto_launch" default:"true"`
	// Offset is the user BPM bias, -100..+100.
	Offset float64 `yaml:"offset"`
	// Smoothing is the EMA factor in (0, 1].
	Smoothing float64 `yaml:"smoothing" default:"0.15"`
	// RatioSource selects the wet/dry driver: "adjusted" or "smoothed".
	RatioSource string `yaml:"ratio_source" default:"smoothed"`
	// RatioOffset shifts the wet/dry output, -100..+100.
	RatioOffset float64 `yaml:"ratio_offset"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := new(Config)
	defaults.SetDefaults(cfg)
	return cfg
}

// DefaultPath returns the per-user config file location,
// e.g. ~/.config/heartsync/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "heartsync", "config.yaml")
}

// Load reads the config at path, filling unset fields with defaults. An
// empty path means DefaultPath(); a missing file yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Smoothing <= 0 || c.Smoothing > 1 {
		return fmt.Errorf("smoothing must be in (0, 1], got %v", c.Smoothing)
	}
	if c.RatioSource != "adjusted" && c.RatioSource != "smoothed" {
		return fmt.Errorf("ratio_source must be \"adjusted\" or \"smoothed\", got %q", c.RatioSource)
	}
	return nil
}
