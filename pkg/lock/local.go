package lock

import (
	"context"
	"sync"
	"time"
)

type localSlot struct {
	held chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex. Waiters on different keys never block each other.
type LocalLocker struct {
	opts  Options
	mu    sync.Mutex
	slots map[string]*localSlot
}

// NewLocal constructs a LocalLocker.
func NewLocal(opts Options) *LocalLocker {
	return &LocalLocker{opts: opts.withDefaults(), slots: make(map[string]*localSlot)}
}

// Acquire blocks until key is free, ctx is done or the wait elapses.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (Release, error) {
	key = l.opts.Prefix + key
	slot := l.ref(key)

	timer := time.NewTimer(l.opts.Wait)
	defer timer.Stop()

	select {
	case slot.held <- struct{}{}:
	case <-ctx.Done():
		l.unref(key)
		return nil, ctx.Err()
	case <-timer.C:
		l.unref(key)
		return nil, ErrWaitExceeded
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-slot.held
			l.unref(key)
		})
		return nil
	}, nil
}

func (l *LocalLocker) ref(key string) *localSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &localSlot{held: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		return
	}
	slot.refs--
	if slot.refs <= 0 {
		delete(l.slots, key)
	}
}
