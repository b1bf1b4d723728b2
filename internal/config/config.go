// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrPlatformBaseURLRequired is returned when PLATFORM_BASE_URL is not set.
	ErrPlatformBaseURLRequired = errors.New("config: PLATFORM_BASE_URL is required")
	// ErrPlatformAPIKeyRequired is returned when PLATFORM_API_KEY is not set.
	ErrPlatformAPIKeyRequired = errors.New("config: PLATFORM_API_KEY is required")
	// ErrContentBaseURLRequired is returned when CONTENT_BASE_URL is not set.
	ErrContentBaseURLRequired = errors.New("config: CONTENT_BASE_URL is required")
	// ErrRendererBaseURLRequired is returned when RENDERER_BASE_URL is not set.
	ErrRendererBaseURLRequired = errors.New("config: RENDERER_BASE_URL is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Job store settings
	DatabasePath string `env:"DATABASE_PATH, default=reelforge.db" json:"database_path"`

	// Collaborator endpoints
	PlatformBaseURL string `env:"PLATFORM_BASE_URL, required" json:"platform_base_url"`
	PlatformAPIKey  string `env:"PLATFORM_API_KEY, required" json:"-"` // Masked in JSON
	ContentBaseURL  string `env:"CONTENT_BASE_URL, required" json:"content_base_url"`
	RendererBaseURL string `env:"RENDERER_BASE_URL, required" json:"renderer_base_url"`

	// Assembly settings
	TempDir       string   `env:"TEMP_DIR, default=/tmp/reelforge" json:"temp_dir"`
	FFmpegPath    string   `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	AudioDir      string   `env:"AUDIO_DIR" json:"audio_dir,omitempty"`
	AudioTracks   []string `env:"AUDIO_TRACKS" json:"audio_tracks,omitempty"`
	SaveDebugCopy bool     `env:"SAVE_DEBUG_COPY, default=false" json:"save_debug_copy"`
	DebugCopyDir  string   `env:"DEBUG_COPY_DIR" json:"debug_copy_dir,omitempty"`

	// Pipeline settings
	AccountFilter  string `env:"ACCOUNT_FILTER" json:"account_filter,omitempty"`
	RunIntervalSec int    `env:"RUN_INTERVAL_SEC, default=0" json:"run_interval_sec"` // 0 disables the scheduler

	// Optional S3 settings; unset means videos are kept on local disk
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON
	LocalStorageDir    string `env:"LOCAL_STORAGE_DIR, default=/tmp/reelforge/storage" json:"local_storage_dir"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "PLATFORM_BASE_URL") {
			return nil, ErrPlatformBaseURLRequired
		}
		if strings.Contains(err.Error(), "PLATFORM_API_KEY") {
			return nil, ErrPlatformAPIKeyRequired
		}
		if strings.Contains(err.Error(), "CONTENT_BASE_URL") {
			return nil, ErrContentBaseURLRequired
		}
		if strings.Contains(err.Error(), "RENDERER_BASE_URL") {
			return nil, ErrRendererBaseURLRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.PlatformBaseURL == "" {
		return ErrPlatformBaseURLRequired
	}
	if c.PlatformAPIKey == "" {
		return ErrPlatformAPIKeyRequired
	}
	if c.ContentBaseURL == "" {
		return ErrContentBaseURLRequired
	}
	if c.RendererBaseURL == "" {
		return ErrRendererBaseURLRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DatabasePath: %s, PlatformBaseURL: %s, ContentBaseURL: %s, RendererBaseURL: %s, TempDir: %s, AudioTracks: %d, RunIntervalSec: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DatabasePath,
		c.PlatformBaseURL,
		c.ContentBaseURL,
		c.RendererBaseURL,
		c.TempDir,
		len(c.AudioTracks),
		c.RunIntervalSec,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
