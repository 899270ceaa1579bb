package billing

import (
	"context"
	"sync"
)

// Locker serializes webhook processing per subscriber so duplicate or
// out-of-order redeliveries for the same account cannot interleave.
// Deliveries for different keys proceed fully in parallel.
type Locker interface {
	// Acquire blocks until the key's lock is held or ctx is done.
	// The returned release function must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// keyedMutex is an in-process Locker. Sufficient for single-instance
// deployments; multi-instance setups use the Redis-backed locker.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex returns an in-process per-key lock.
func NewKeyedMutex() Locker {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (m *keyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &keyedLock{ch: make(chan struct{}, 1)}
		m.locks[key] = lock
	}
	lock.refs++
	m.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
		return func() { m.release(key, lock) }, nil
	case <-ctx.Done():
		m.drop(key, lock)
		return nil, ctx.Err()
	}
}

func (m *keyedMutex) release(key string, lock *keyedLock) {
	<-lock.ch
	m.drop(key, lock)
}

// drop decrements the refcount and evicts idle entries so the map does not
// grow with one entry per subscriber ever seen.
func (m *keyedMutex) drop(key string, lock *keyedLock) {
	m.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}
