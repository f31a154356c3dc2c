package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedis(client, Options{Prefix: "lock:", TTL: time.Minute, Wait: 50 * time.Millisecond})

	release, err := locker.Acquire(context.Background(), "slot")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:slot"))

	_, err = locker.Acquire(context.Background(), "slot")
	assert.ErrorIs(t, err, ErrWaitExceeded)

	require.NoError(t, release(context.Background()))
	assert.False(t, mr.Exists("lock:slot"))
}

func TestRedisLockerReleaseKeepsForeignToken(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedis(client, Options{Prefix: "lock:", TTL: time.Minute, Wait: 50 * time.Millisecond})

	release, err := locker.Acquire(context.Background(), "slot")
	require.NoError(t, err)

	// Simulate expiry followed by another replica claiming the slot.
	require.NoError(t, mr.Set("lock:slot", "other-owner"))

	require.NoError(t, release(context.Background()))
	value, err := mr.Get("lock:slot")
	require.NoError(t, err)
	assert.Equal(t, "other-owner", value)
}

func TestRedisLockerAppliesTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedis(client, Options{TTL: 2 * time.Second, Wait: 50 * time.Millisecond})

	_, err := locker.Acquire(context.Background(), "slot")
	require.NoError(t, err)

	mr.FastForward(3 * time.Second)

	release, err := locker.Acquire(context.Background(), "slot")
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
}
