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

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StrategyGreedy, cfg.Allocation.Strategy)
	assert.Equal(t, LockBackendLocal, cfg.Allocation.LockBackend)
	assert.Equal(t, 30*time.Second, cfg.Allocation.LockTTL)
	assert.Equal(t, 10*time.Second, cfg.Allocation.LockWait)
	assert.Equal(t, "allocation.committed", cfg.Events.Queue)
	assert.False(t, cfg.Events.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOCATION_STRATEGY", " EXACT ")
	t.Setenv("ALLOCATION_LOCK_BACKEND", "redis")
	t.Setenv("ALLOCATION_LOCK_WAIT", "250ms")
	t.Setenv("ENABLE_SUMMARY_CACHE", "true")
	t.Setenv("SUMMARY_CACHE_TTL", "1m")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StrategyExact, cfg.Allocation.Strategy)
	assert.Equal(t, LockBackendRedis, cfg.Allocation.LockBackend)
	assert.Equal(t, 250*time.Millisecond, cfg.Allocation.LockWait)
	assert.True(t, cfg.Summary.CacheEnabled)
	assert.Equal(t, time.Minute, cfg.Summary.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("ALLOCATION_STRATEGY", "random")
	t.Setenv("ALLOCATION_LOCK_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StrategyGreedy, cfg.Allocation.Strategy)
	assert.Equal(t, 30*time.Second, cfg.Allocation.LockTTL)
}
