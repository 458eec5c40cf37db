package rdapclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoComputesOnce(t *testing.T) {
	var m memo[int]
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.get(context.Background(), fn)
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	v, err := m.get(context.Background(), fn)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.EqualValues(t, 1, calls.Load())
}

func TestMemoDoesNotKeepErrors(t *testing.T) {
	var m memo[string]
	boom := errors.New("boom")
	_, err := m.get(context.Background(), func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)

	v, err := m.get(context.Background(), func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestMemoWaiterLeavesOthersContinue(t *testing.T) {
	var m memo[int]
	started := make(chan struct{})
	release := make(chan struct{})
	var runCtx context.Context
	fn := func(ctx context.Context) (int, error) {
		runCtx = ctx
		close(started)
		select {
		case <-release:
			return 7, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := m.get(ctxA, fn)
		errA <- err
	}()
	<-started

	resB := make(chan int, 1)
	go func() {
		v, _ := m.get(context.Background(), fn)
		resB <- v
	}()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.call != nil && m.call.waiters == 2
	}, time.Second, time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)
	assert.NoError(t, runCtx.Err(), "computation must survive while a waiter remains")

	close(release)
	assert.Equal(t, 7, <-resB)
}

func TestMemoLastWaiterCancels(t *testing.T) {
	var m memo[int]
	stopped := make(chan error, 1)
	fn := func(ctx context.Context) (int, error) {
		<-ctx.Done()
		stopped <- ctx.Err()
		return 0, ctx.Err()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.get(ctx, fn)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, <-stopped, context.Canceled)

	v, err := m.get(context.Background(), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
