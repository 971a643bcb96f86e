package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the daemon config file (<workdir>/config.toml).
// Every field has a default so a missing file is not an error.
type Config struct {
	// MaxReconnectAttempts is the reconnect budget before a session is
	// marked disconnected.
	MaxReconnectAttempts int `toml:"max_reconnect_attempts"`
	// ReconnectDelayMS is the fixed delay before a counted reconnect.
	ReconnectDelayMS int `toml:"reconnect_delay_ms"`

	// GroupsOnly restricts synchronization to group chats.
	GroupsOnly bool `toml:"groups_only"`

	// GroupCacheSize / GroupCacheTTLMinutes bound the group metadata cache.
	GroupCacheSize       int `toml:"group_cache_size"`
	GroupCacheTTLMinutes int `toml:"group_cache_ttl_minutes"`

	Bulk BulkConfig `toml:"bulk"`
}

// BulkConfig holds the pacing knobs of the bulk executor.
type BulkConfig struct {
	MinDelayMS      int `toml:"min_delay_ms"`
	MaxDelayMS      int `toml:"max_delay_ms"`
	BatchSize       int `toml:"batch_size"`
	BatchPauseMinMS int `toml:"batch_pause_min_ms"`
	BatchPauseMaxMS int `toml:"batch_pause_max_ms"`
}

// Default returns the config with all defaults applied.
func Default() *Config {
	return &Config{
		MaxReconnectAttempts: 5,
		ReconnectDelayMS:     5000,
		GroupsOnly:           true,
		GroupCacheSize:       1000,
		GroupCacheTTLMinutes: 60,
		Bulk: BulkConfig{
			MinDelayMS:      500,
			MaxDelayMS:      2000,
			BatchSize:       30,
			BatchPauseMinMS: 10000,
			BatchPauseMaxMS: 15000,
		},
	}
}

// Load reads config from the given path, applying defaults for absent fields.
// A missing file returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// ReconnectDelay returns the reconnect delay as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// GroupCacheTTL returns the cache TTL as a duration.
func (c *Config) GroupCacheTTL() time.Duration {
	return time.Duration(c.GroupCacheTTLMinutes) * time.Minute
}
