package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, LocalhostRedisURL, cfg.RedisURL)
	assert.Equal(t, 8000, cfg.HTTP.Port)
	assert.Equal(t, []string{"BTCUSD", "ETHUSD"}, cfg.Aggregation.Pairs)
	assert.Equal(t, []float64{1.2, 2.3, 3.4}, cfg.Aggregation.Intervals)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, "app.log", cfg.LogFile)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
redis_url: redis://cache:6379/1
http:
  port: 9000
worker:
  concurrency: 2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	// Untouched keys keep their defaults.
	assert.Equal(t, []string{"BTCUSD", "ETHUSD"}, cfg.Aggregation.Pairs)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://elsewhere:6379/0")
	t.Setenv("HTTP_PORT", "8080")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "redis://elsewhere:6379/0", cfg.RedisURL)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestIntervals(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []time.Duration{
		1200 * time.Millisecond,
		2300 * time.Millisecond,
		3400 * time.Millisecond,
	}, cfg.Intervals())
}
