// Package fifolock provides a context-aware mutual-exclusion lock that
// hands ownership to waiters in the order they arrived.
//
// Unlike sync.Mutex, a waiter can give up: Lock returns ctx.Err() when the
// context ends first, and the abandoned slot is never granted. Ownership is
// not tied to a goroutine; any goroutine may Unlock a held Mutex.
package fifolock

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Mutex is a FIFO lock. Use New; the zero value is not usable.
type Mutex struct {
	sem  *semaphore.Weighted
	held atomic.Bool
}

// New returns an unlocked Mutex.
func New() *Mutex {
	return &Mutex{sem: semaphore.NewWeighted(1)}
}

// Lock blocks until the lock is acquired or ctx is done. Waiters are served
// strictly in arrival order. On failure the lock is not held and ctx.Err()
// is returned.
func (m *Mutex) Lock(ctx context.Context) error {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	m.held.Store(true)
	return nil
}

// TryLock acquires the lock only if it is free and nobody is queued.
func (m *Mutex) TryLock() bool {
	if !m.sem.TryAcquire(1) {
		return false
	}
	m.held.Store(true)
	return true
}

// Unlock releases the lock to the next waiter, if any. It panics if the
// lock is not held.
func (m *Mutex) Unlock() {
	if !m.held.CompareAndSwap(true, false) {
		panic("fifolock: unlock of unlocked mutex")
	}
	m.sem.Release(1)
}

// RunExclusive runs fn while holding the lock and releases it on every exit
// path, including a panic in fn. fn's error is returned unchanged.
func (m *Mutex) RunExclusive(ctx context.Context, fn func() error) error {
	if err := m.Lock(ctx); err != nil {
		return err
	}
	defer m.Unlock()
	return fn()
}

// Do is RunExclusive for a function that produces a value.
func Do[T any](ctx context.Context, m *Mutex, fn func() (T, error)) (T, error) {
	if err := m.Lock(ctx); err != nil {
		var zero T
		return zero, err
	}
	defer m.Unlock()
	return fn()
}
