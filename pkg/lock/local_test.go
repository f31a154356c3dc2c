package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerialisesSameKey(t *testing.T) {
	locker := NewLocal(Options{Wait: time.Second})

	var inside atomic.Int32
	var maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "2024-06-10|08:00|10:00")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
			assert.NoError(t, release(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Empty(t, locker.slots)
}

func TestLocalLockerDifferentKeysDoNotBlock(t *testing.T) {
	locker := NewLocal(Options{Wait: 50 * time.Millisecond})

	releaseA, err := locker.Acquire(context.Background(), "slot-a")
	require.NoError(t, err)
	defer releaseA(context.Background())

	releaseB, err := locker.Acquire(context.Background(), "slot-b")
	require.NoError(t, err)
	require.NoError(t, releaseB(context.Background()))
}

func TestLocalLockerWaitExceeded(t *testing.T) {
	locker := NewLocal(Options{Wait: 20 * time.Millisecond})

	release, err := locker.Acquire(context.Background(), "slot")
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), "slot")
	assert.ErrorIs(t, err, ErrWaitExceeded)

	require.NoError(t, release(context.Background()))
	require.NoError(t, release(context.Background()))

	again, err := locker.Acquire(context.Background(), "slot")
	require.NoError(t, err)
	require.NoError(t, again(context.Background()))
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocal(Options{Wait: time.Second})

	release, err := locker.Acquire(context.Background(), "slot")
	require.NoError(t, err)
	defer release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Acquire(ctx, "slot")
	assert.ErrorIs(t, err, context.Canceled)
}
