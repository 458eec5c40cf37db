package rdapclient

import (
	"context"
	"sync"
)

// memo computes a value once and keeps it for the life of the Client.
//
// Concurrent callers share a single in-flight computation. A caller whose
// context ends stops waiting and gets ctx.Err(); the computation keeps
// running for the others. Only when the last waiter has gone is the
// computation itself cancelled, and the next caller starts a fresh one.
// Errors are not memoized.
type memo[T any] struct {
	mu    sync.Mutex
	ready bool
	val   T
	call  *memoCall[T]
}

type memoCall[T any] struct {
	done    chan struct{}
	val     T
	err     error
	waiters int
	cancel  context.CancelFunc
}

func (m *memo[T]) get(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	m.mu.Lock()
	if m.ready {
		v := m.val
		m.mu.Unlock()
		return v, nil
	}
	c := m.call
	if c == nil {
		// Detach from the first caller's cancellation but keep its values
		// (trace parent, logger attributes).
		callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c = &memoCall[T]{done: make(chan struct{}), cancel: cancel}
		m.call = c
		go m.run(callCtx, c, fn)
	}
	c.waiters++
	m.mu.Unlock()

	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		m.mu.Lock()
		c.waiters--
		if c.waiters == 0 && m.call == c {
			m.call = nil
			c.cancel()
		}
		m.mu.Unlock()
		var zero T
		return zero, ctx.Err()
	}
}

func (m *memo[T]) run(ctx context.Context, c *memoCall[T], fn func(context.Context) (T, error)) {
	defer c.cancel()
	c.val, c.err = fn(ctx)

	m.mu.Lock()
	if c.err == nil {
		m.ready, m.val = true, c.val
	}
	if m.call == c {
		m.call = nil
	}
	m.mu.Unlock()
	close(c.done)
}

