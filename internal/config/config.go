// Package config provides configuration management for the blockgraph engine.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the engine.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Log     LogConfig     `mapstructure:"log"`
}

// StorageConfig describes the on-disk graph file and how it is opened.
type StorageConfig struct {
	Path       string `mapstructure:"path"`
	Mode       string `mapstructure:"mode"` // sync_read, async_read, write, in_memory
	QueueDepth int    `mapstructure:"queue_depth"`
}

// CacheConfig sizes and selects the edge-block cache implementation.
type CacheConfig struct {
	Mode      string  `mapstructure:"mode"` // normal, simple, none
	SizeSlots int     `mapstructure:"size_slots"`
	SizeMB    int     `mapstructure:"size_mb"`
	SizeRatio float64 `mapstructure:"size_ratio"`
}

// PoolConfig sizes the worker pool used by the iteration and DFS engines.
type PoolConfig struct {
	MaxWorkers  int `mapstructure:"max_workers"`
	MaxDFSStack int `mapstructure:"max_dfs_stack"`
	MaxDFSTasks int `mapstructure:"max_dfs_tasks"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// Load reads configuration from the given file path, falling back to
// defaults (and standard search locations) when configPath is empty.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("blockgraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/blockgraph")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Printf("config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadFromReader loads configuration from raw bytes (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.mode", "sync_read")
	v.SetDefault("storage.queue_depth", 256)

	v.SetDefault("cache.mode", "normal")
	v.SetDefault("cache.size_slots", 1024)

	v.SetDefault("pool.max_workers", 0) // 0 means runtime.NumCPU()
	v.SetDefault("pool.max_dfs_stack", 1024)
	v.SetDefault("pool.max_dfs_tasks", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	switch c.Storage.Mode {
	case "sync_read", "async_read", "write", "in_memory":
	default:
		return fmt.Errorf("unsupported storage mode: %s", c.Storage.Mode)
	}

	switch c.Cache.Mode {
	case "normal", "simple", "none":
	default:
		return fmt.Errorf("unsupported cache mode: %s", c.Cache.Mode)
	}

	if c.Cache.SizeSlots < 0 {
		return fmt.Errorf("cache size_slots must be >= 0")
	}

	return nil
}
