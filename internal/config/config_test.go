package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "data/cache", cfg.CacheDir)
	assert.Equal(t, "data/events", cfg.EventsDir)
	assert.Equal(t, int64(64<<20), cfg.CacheMaxBytes)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.EventMaxAge)
	assert.Equal(t, 5*time.Second, cfg.CatalogMinDelay)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("CACHE_MAX_BYTES", "1048576")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("CATALOG_MIN_DELAY", "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, int64(1<<20), cfg.CacheMaxBytes)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, time.Second, cfg.CatalogMinDelay)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Run("non-numeric max bytes", func(t *testing.T) {
		t.Setenv("CACHE_MAX_BYTES", "lots")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative duration", func(t *testing.T) {
		t.Setenv("SWEEP_INTERVAL", "-5m")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("garbage duration", func(t *testing.T) {
		t.Setenv("CACHE_TTL", "soon")
		_, err := Load()
		assert.Error(t, err)
	})
}
