// Package config loads the server configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration. Zero values fall back to the
// defaults from Default.
type Config struct {
	Addr       string `yaml:"addr"`
	SocketPath string `yaml:"socket_path"`

	// StorageRoot holds the SQLite database and per-agent state files.
	StorageRoot string `yaml:"storage_root"`

	MaxConcurrency    int `yaml:"max_concurrency"`
	MaxTriggerDepth   int `yaml:"max_trigger_depth"`
	TriggerCooldownMS int `yaml:"trigger_cooldown_ms"`
	TriggerBuffer     int `yaml:"trigger_buffer"`
	ObserverBuffer    int `yaml:"observer_buffer"`

	// UnitsFile is an optional YAML list of discovered units reconciled at
	// startup.
	UnitsFile string `yaml:"units_file"`
}

func Default() Config {
	return Config{
		Addr:              ":7431",
		StorageRoot:       "hivemind-data",
		MaxConcurrency:    4,
		MaxTriggerDepth:   3,
		TriggerCooldownMS: 1000,
		TriggerBuffer:     256,
		ObserverBuffer:    64,
	}
}

// Load reads path. A missing file is not an error: it returns Default, so a
// bare binary starts with sensible settings.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.StorageRoot == "" {
		c.StorageRoot = def.StorageRoot
	}
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = def.MaxConcurrency
	}
	if c.MaxTriggerDepth < 0 {
		c.MaxTriggerDepth = def.MaxTriggerDepth
	}
	if c.TriggerCooldownMS < 0 {
		c.TriggerCooldownMS = def.TriggerCooldownMS
	}
	if c.TriggerBuffer < 1 {
		c.TriggerBuffer = def.TriggerBuffer
	}
	if c.ObserverBuffer < 1 {
		c.ObserverBuffer = def.ObserverBuffer
	}
}

// TriggerCooldown converts the millisecond setting to a duration.
func (c Config) TriggerCooldown() time.Duration {
	return time.Duration(c.TriggerCooldownMS) * time.Millisecond
}
