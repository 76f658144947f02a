package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8088", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "environment.yaml", cfg.Lab.EnvironmentFile)
	assert.Equal(t, int64(8<<20), cfg.Capture.MaxFileBytes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Empty(t, cfg.Auth.TokenHash)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BOARDLAB_PORT", "9000")
	t.Setenv("BOARDLAB_ENVIRONMENT_FILE", "/etc/boardlab/lab.yaml")
	t.Setenv("BOARDLAB_LOG_LEVEL", "debug")
	t.Setenv("BOARDLAB_CAPTURE_RETENTION_DAYS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "/etc/boardlab/lab.yaml", cfg.Lab.EnvironmentFile)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Capture.RetentionDays)
	assert.Equal(t, "0.0.0.0:9000", cfg.Address())
}

func TestDurationConversions(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 14*24*3600.0, cfg.Capture.Retention().Seconds())
	assert.Equal(t, 3600.0, cfg.Capture.SweepInterval().Seconds())
	assert.Equal(t, 60.0, cfg.Script.Timeout().Seconds())
}
