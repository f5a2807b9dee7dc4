package asyncrunner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_SubmitRunsTask(t *testing.T) {
	e := New(Options{Concurrency: 2})

	done := make(chan struct{})
	require.NoError(t, e.Submit(func(ctx context.Context) {
		assert.NoError(t, ctx.Err())
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	require.NoError(t, e.Shutdown(context.Background()))
}

func TestExecutor_SubmitDoesNotBlock(t *testing.T) {
	e := New(Options{Concurrency: 1})
	release := make(chan struct{})
	var ran atomic.Int32

	start := time.Now()
	for range 5 {
		require.NoError(t, e.Submit(func(context.Context) {
			<-release
			ran.Add(1)
		}))
	}
	assert.Less(t, time.Since(start), time.Second, "submit must not wait for a worker slot")

	close(release)
	require.NoError(t, e.Shutdown(context.Background()))
	assert.Equal(t, int32(5), ran.Load())
}

func TestExecutor_BoundsConcurrency(t *testing.T) {
	const limit = 3
	e := New(Options{Concurrency: limit})

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for range 12 {
		wg.Add(1)
		require.NoError(t, e.Submit(func(context.Context) {
			defer wg.Done()
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
		}))
	}
	wg.Wait()
	require.NoError(t, e.Shutdown(context.Background()))
	assert.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestExecutor_RecoversPanics(t *testing.T) {
	e := New(Options{Concurrency: 1})

	require.NoError(t, e.Submit(func(context.Context) { panic("boom") }))

	done := make(chan struct{})
	require.NoError(t, e.Submit(func(context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("executor stopped after a panicking task")
	}
	require.NoError(t, e.Shutdown(context.Background()))
}

func TestExecutor_RejectsAfterShutdown(t *testing.T) {
	e := New(Options{})
	require.NoError(t, e.Shutdown(context.Background()))

	assert.ErrorIs(t, e.Submit(func(context.Context) {}), ErrClosed)
	assert.ErrorIs(t, New(Options{}).Submit(nil), ErrNilTask)
}

func TestExecutor_ShutdownTimeoutCancelsTasks(t *testing.T) {
	e := New(Options{Concurrency: 1})

	cancelled := make(chan struct{})
	require.NoError(t, e.Submit(func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := e.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("running task was not cancelled")
	}
}
