package config

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PLATFORM_BASE_URL", "https://platform.test")
	t.Setenv("PLATFORM_API_KEY", "test-api-key")
	t.Setenv("CONTENT_BASE_URL", "https://content.test")
	t.Setenv("RENDERER_BASE_URL", "https://renderer.test")
}

func TestLoad_RequiredVariables(t *testing.T) {
	// Clear all environment variables
	clearEnv := func() {
		os.Unsetenv("PORT")
		os.Unsetenv("DATABASE_PATH")
		os.Unsetenv("PLATFORM_BASE_URL")
		os.Unsetenv("PLATFORM_API_KEY")
		os.Unsetenv("CONTENT_BASE_URL")
		os.Unsetenv("RENDERER_BASE_URL")
		os.Unsetenv("TEMP_DIR")
		os.Unsetenv("AUDIO_DIR")
		os.Unsetenv("AUDIO_TRACKS")
		os.Unsetenv("S3_BUCKET")
		os.Unsetenv("S3_REGION")
		os.Unsetenv("AWS_ACCESS_KEY_ID")
		os.Unsetenv("AWS_SECRET_ACCESS_KEY")
		os.Unsetenv("LOG_FORMAT")
		os.Unsetenv("LOG_LEVEL")
	}

	t.Run("missing PLATFORM_BASE_URL returns error", func(t *testing.T) {
		clearEnv()
		t.Setenv("PLATFORM_API_KEY", "k")
		t.Setenv("CONTENT_BASE_URL", "https://content.test")
		t.Setenv("RENDERER_BASE_URL", "https://renderer.test")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPlatformBaseURLRequired)
	})

	t.Run("missing PLATFORM_API_KEY returns error", func(t *testing.T) {
		clearEnv()
		t.Setenv("PLATFORM_BASE_URL", "https://platform.test")
		t.Setenv("CONTENT_BASE_URL", "https://content.test")
		t.Setenv("RENDERER_BASE_URL", "https://renderer.test")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPlatformAPIKeyRequired)
	})

	t.Run("all required variables present succeeds", func(t *testing.T) {
		clearEnv()
		setRequired(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://platform.test", cfg.PlatformBaseURL)
		assert.Equal(t, "test-api-key", cfg.PlatformAPIKey)
	})
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "reelforge.db", cfg.DatabasePath)
	assert.Equal(t, "/tmp/reelforge", cfg.TempDir)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 0, cfg.RunIntervalSec)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.SaveDebugCopy)
}

func TestLoad_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_PATH", "/data/jobs.db")
	t.Setenv("AUDIO_DIR", "/media/audio")
	t.Setenv("AUDIO_TRACKS", "upbeat.mp3,chill.mp3")
	t.Setenv("RUN_INTERVAL_SEC", "300")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/data/jobs.db", cfg.DatabasePath)
	assert.Equal(t, []string{"upbeat.mp3", "chill.mp3"}, cfg.AudioTracks)
	assert.Equal(t, 300, cfg.RunIntervalSec)
	assert.True(t, cfg.S3Enabled())
}

func TestS3Enabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.S3Enabled())

	cfg.S3Bucket = "bucket"
	assert.False(t, cfg.S3Enabled(), "region missing")

	cfg.S3Region = "eu-west-1"
	assert.True(t, cfg.S3Enabled())
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		PlatformBaseURL: "https://platform.test",
		PlatformAPIKey:  "k",
		ContentBaseURL:  "https://content.test",
		RendererBaseURL: "https://renderer.test",
	}
	require.NoError(t, cfg.Validate())

	cfg.RendererBaseURL = ""
	assert.ErrorIs(t, cfg.Validate(), ErrRendererBaseURLRequired)
}

func TestNewLogger_Formats(t *testing.T) {
	tests := []struct {
		format string
		level  string
	}{
		{"json", "debug"},
		{"text", "warn"},
		{"", "nonsense"},
	}
	for _, tt := range tests {
		cfg := &Config{LogFormat: tt.format, LogLevel: tt.level}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("anything else"))
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := &Config{
		PlatformAPIKey:     "secret-key",
		AWSSecretAccessKey: "secret-aws",
		PlatformBaseURL:    "https://platform.test",
	}
	var buf bytes.Buffer
	buf.WriteString(cfg.String())

	assert.NotContains(t, buf.String(), "secret-key")
	assert.NotContains(t, buf.String(), "secret-aws")
	assert.Contains(t, buf.String(), "https://platform.test")
}
