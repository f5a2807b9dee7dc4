// Package asyncrunner provides the bounded background executor used for async job dispatch.
package asyncrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/observability/statsd"
)

const defaultConcurrency = 8

var (
	// ErrClosed is returned by Submit after Shutdown has begun.
	ErrClosed = errors.New("async executor is shut down")
	// ErrNilTask is returned when Submit receives a nil task.
	ErrNilTask = errors.New("async task is nil")
)

// Options configures an Executor.
type Options struct {
	Concurrency int
	Logger      *slog.Logger
	Metrics     statsd.Sink
}

// Executor runs submitted tasks on goroutines, at most Concurrency at a time.
// Submit never blocks the caller; excess tasks wait for a slot.
type Executor struct {
	sem     *semaphore.Weighted
	baseCtx context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	metrics statsd.Sink

	mu       sync.Mutex
	closed   bool
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

var _ core.AsyncExecutor = (*Executor)(nil)

// New creates an Executor.
func New(opts Options) *Executor {
	n := opts.Concurrency
	if n <= 0 {
		n = defaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		sem:     semaphore.NewWeighted(int64(n)),
		baseCtx: ctx,
		cancel:  cancel,
		logger:  logger.With("component", "async_executor"),
		metrics: opts.Metrics,
	}
}

// Submit schedules task for background execution.
func (e *Executor) Submit(task core.AsyncTask) error {
	if task == nil {
		return ErrNilTask
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		if err := e.sem.Acquire(e.baseCtx, 1); err != nil {
			e.logger.Warn("async task dropped before start", "error", err)
			e.count("dropped")
			return
		}
		defer e.sem.Release(1)
		e.run(task)
	}()
	return nil
}

func (e *Executor) run(task core.AsyncTask) {
	n := e.inFlight.Add(1)
	e.gauge(n)
	defer func() {
		e.gauge(e.inFlight.Add(-1))
		if r := recover(); r != nil {
			e.logger.Error("async task panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			e.count("panic")
			return
		}
		e.count("completed")
	}()
	task(e.baseCtx)
}

// Shutdown stops accepting tasks and waits for in-flight and queued tasks.
// If ctx ends first, running tasks see their context cancelled and ctx.Err is returned.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		return ctx.Err()
	}
}

// InFlight reports the number of tasks currently running.
func (e *Executor) InFlight() int64 {
	return e.inFlight.Load()
}

func (e *Executor) count(result string) {
	if e.metrics == nil {
		return
	}
	e.metrics.Count("async.task", 1, map[string]string{"result": result})
}

func (e *Executor) gauge(n int64) {
	if e.metrics == nil {
		return
	}
	e.metrics.Gauge("async.in_flight", float64(n), nil)
}
