// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"3000"`
	BindAddr  string `env:"BIND_ADDR" default:""`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// MaxBodyBytes caps HTTP request bodies and websocket frames.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" default:"10485760"`
	// MaxClipBytes caps a single encoded sound clip payload.
	MaxClipBytes int64 `env:"MAX_CLIP_BYTES" default:"1048576"`

	MaxConnections int `env:"MAX_CONNECTIONS" default:"512"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"20"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" default:"40"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if cfg.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", cfg.MaxBodyBytes)
	}
	if cfg.MaxClipBytes <= 0 {
		return fmt.Errorf("MAX_CLIP_BYTES must be positive, got %d", cfg.MaxClipBytes)
	}
	if cfg.MaxClipBytes > cfg.MaxBodyBytes {
		return fmt.Errorf("MAX_CLIP_BYTES (%d) must not exceed MAX_BODY_BYTES (%d)", cfg.MaxClipBytes, cfg.MaxBodyBytes)
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("MAX_CONNECTIONS must be positive, got %d", cfg.MaxConnections)
	}
	if cfg.RateLimitPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND must be positive, got %v", cfg.RateLimitPerSecond)
	}
	if cfg.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", cfg.RateLimitBurst)
	}
	return nil
}

// ListenAddr combines bind address and port. An empty bind address listens on
// all interfaces, which is what the captive portal setup expects.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.BindAddr, c.Port)
}
