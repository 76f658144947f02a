// Package config provides 12-factor configuration for the boardlab daemon.
//
// Configuration is loaded from environment variables with sensible defaults;
// CLI flags can override individual values for development flexibility. The
// per-target shell and console settings live in the YAML environment file,
// not here.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration.
type Config struct {
	Server    ServerConfig
	Lab       LabConfig
	Capture   CaptureConfig
	Auth      AuthConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Script    ScriptConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8088"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LabConfig locates the lab environment file and the daemon lockfile.
type LabConfig struct {
	EnvironmentFile string `envconfig:"ENVIRONMENT_FILE" default:"environment.yaml"`
	LockFile        string `envconfig:"LOCK_FILE" default:"/tmp/boardlabd.lock"`
}

// CaptureConfig holds console capture configuration.
type CaptureConfig struct {
	Dir           string `envconfig:"CAPTURE_DIR" default:"captures"`
	MaxFileBytes  int64  `envconfig:"CAPTURE_MAX_FILE_BYTES" default:"8388608"`
	RetentionDays int    `envconfig:"CAPTURE_RETENTION_DAYS" default:"14"`
	SweepMinutes  int    `envconfig:"CAPTURE_SWEEP_MINUTES" default:"60"`
}

// Retention converts the configured days.
func (c CaptureConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SweepInterval converts the configured minutes.
func (c CaptureConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepMinutes) * time.Minute
}

// AuthConfig holds API authentication configuration. TokenHash is the
// bcrypt hash of the accepted bearer token; empty disables auth.
type AuthConfig struct {
	TokenHash string `envconfig:"AUTH_TOKEN_HASH" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds per-IP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// ScriptConfig bounds script execution.
type ScriptConfig struct {
	TimeoutSeconds int `envconfig:"SCRIPT_TIMEOUT_SECONDS" default:"60"`
}

// Timeout converts the configured seconds.
func (c ScriptConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("BOARDLAB", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment or returns the
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
		Server: ServerConfig{
			Port: "8088",
			Host: "0.0.0.0",
		},
		Lab: LabConfig{
			EnvironmentFile: "environment.yaml",
			LockFile:        "/tmp/boardlabd.lock",
		},
		Capture: CaptureConfig{
			Dir:           "captures",
			MaxFileBytes:  8 << 20,
			RetentionDays: 14,
			SweepMinutes:  60,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
		Script: ScriptConfig{
			TimeoutSeconds: 60,
		},
	}
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}
