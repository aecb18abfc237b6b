// Package config loads engine configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all engine configuration.
type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"7430"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// EngineConfig holds synchronization engine configuration.
type EngineConfig struct {
	StorageDir       string `envconfig:"STORAGE_DIR" default:""`
	RootFolderTitle  string `envconfig:"ROOT_FOLDER" default:"Arcify"`
	DefaultSpaceName string `envconfig:"DEFAULT_SPACE" default:"Default"`
	ArchiveAfterMin  int    `envconfig:"ARCHIVE_AFTER_MIN" default:"720"`
	ArchiveEnabled   bool   `envconfig:"ARCHIVE_ENABLED" default:"false"`
	DemoHost         bool   `envconfig:"DEMO_HOST" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds HTTP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("ARCIFY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment or returns
// defaults when processing fails.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "7430", Host: "127.0.0.1"},
		Engine: EngineConfig{
			RootFolderTitle:  "Arcify",
			DefaultSpaceName: "Default",
			ArchiveAfterMin:  720,
		},
		Logging:   LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{RequestsPerSecond: 50, Burst: 100, Enabled: true},
	}
}
