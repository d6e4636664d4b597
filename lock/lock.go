// lock/lock.go - Named mutual-exclusion service
package lock

import (
	"context"
	"sync"

	"teammatcher/apperr"
)

// Locker hands out named mutual-exclusion locks shared by all concurrent
// callers, possibly across processes. The release function returned by a
// successful acquisition must be called on every exit path.
type Locker interface {
	// TryAcquire attempts the lock once without waiting.
	TryAcquire(ctx context.Context, key string) (release func(), ok bool, err error)
	// Acquire blocks until the lock is held or ctx expires. Expiry yields an
	// Unavailable error, safe for the caller to retry.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryLocker is a process-local Locker. It backs tests and single-node
// deployments that run without Redis.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]chan struct{})}
}

func (l *MemoryLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	return ch
}

func (l *MemoryLocker) TryAcquire(ctx context.Context, key string) (func(), bool, error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, true, nil
	default:
		return nil, false, nil
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, apperr.Unavailable("lock %q not acquired before deadline", key)
	}
}
