package cfg

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfig(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("METRICS_ENDPOINT", "https://example.com/generic")
	t.Setenv("LOG_LEVEL", "debug")

	config, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", config.Region)
	assert.Equal(t, "https://example.com/generic", config.MetricsEndpoint)
	assert.Equal(t, slog.LevelDebug, config.LogLevel)
}

func TestGetConfigDefaults(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("METRICS_ENDPOINT", "")
	t.Setenv("LOG_LEVEL", "")

	config, err := GetConfig()
	require.NoError(t, err)
	assert.Empty(t, config.MetricsEndpoint)
	assert.Equal(t, slog.LevelInfo, config.LogLevel)
}

func TestGetConfigMissingRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("METRICS_ENDPOINT", "")
	t.Setenv("LOG_LEVEL", "")

	_, err := GetConfig()
	assert.ErrorContains(t, err, "AWS_REGION")
}

func TestGetConfigBadLogLevel(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("METRICS_ENDPOINT", "")
	t.Setenv("LOG_LEVEL", "noisy")

	_, err := GetConfig()
	assert.ErrorContains(t, err, "LOG_LEVEL")
}
