// Package lock serialises allocation batches that target the same exam slot.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrWaitExceeded is returned when a lock could not be obtained within the configured wait.
var ErrWaitExceeded = errors.New("lock wait exceeded")

// Release gives a held lock back. Calling it more than once is a no-op.
type Release func(context.Context) error

// Locker grants exclusive ownership of a key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Options configures lock behaviour shared by the backends.
type Options struct {
	Prefix string
	TTL    time.Duration
	Wait   time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 30 * time.Second
	}
	if o.Wait <= 0 {
		o.Wait = 10 * time.Second
	}
	return o
}
