package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline/perf/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestNilClientIsDisabled(t *testing.T) {
	var client *Client
	assert.False(t, client.Enabled())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	rule := ContactRule("203.0.113.7", 5, 15*time.Minute)

	d, err := limiter.Allow(context.Background(), rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "requests pass when Redis is disabled")
	assert.Equal(t, 5, d.Remaining)
	assert.Zero(t, d.RetryAfter)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", map[string]int{"a": 1}, time.Minute))

	var result map[string]int
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "key", "other"))

	n, err := cache.Invalidate(ctx, StatisticsPattern)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "statistics:ytd:trades=true:benchmark=false", StatisticsKey("ytd", true, false))
	assert.Equal(t, "contact:10.0.0.1", ContactRule("10.0.0.1", 3, time.Minute).Key)
	assert.Equal(t, "perf:ratelimit:contact:10.0.0.1", NewRateLimiter(nil, "perf").key("contact:10.0.0.1"))
	assert.Equal(t, "perf:cache:x", NewCache(nil, "perf").fullKey("x"))
}
