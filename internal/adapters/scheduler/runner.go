// Package scheduler provides adapters for running the cron scheduler.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/target/mmk-task-service/internal/core"
	obserrors "github.com/target/mmk-task-service/internal/observability/errors"
	"github.com/target/mmk-task-service/internal/observability/metrics"
	"github.com/target/mmk-task-service/internal/observability/statsd"
	"github.com/target/mmk-task-service/internal/service"
)

const (
	defaultSyncInterval = 30 * time.Second
	defaultStopTimeout  = 30 * time.Second
)

// Runner drives a SchedulerService: it starts cron firing, periodically
// reloads job definitions and forwards manual trigger requests.
type Runner struct {
	scheduler    *service.SchedulerService
	triggers     core.TriggerSubscriber
	syncInterval time.Duration
	stopTimeout  time.Duration
	logger       *slog.Logger
	metrics      statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Scheduler    *service.SchedulerService
	Triggers     core.TriggerSubscriber // Optional: manual trigger source
	SyncInterval time.Duration
	StopTimeout  time.Duration // Optional: how long shutdown waits for running jobs
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

// NewRunner creates a new scheduler runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}
	return &Runner{
		scheduler:    opts.Scheduler,
		triggers:     opts.Triggers,
		syncInterval: opts.SyncInterval,
		stopTimeout:  opts.StopTimeout,
		logger:       opts.Logger.With("component", "scheduler_runner"),
		metrics:      opts.Metrics,
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Scheduler == nil {
		return errors.New("scheduler service is required")
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = defaultSyncInterval
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then stops it
// and waits for running jobs up to the stop timeout.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting scheduler runner", "sync_interval", r.syncInterval)

	r.scheduler.Start(ctx)
	r.sync(ctx)

	var wg sync.WaitGroup
	if r.triggers != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.listen(ctx)
		}()
	}

	ticker := time.NewTicker(r.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "scheduler runner stopping", "reason", ctx.Err())
			wg.Wait()

			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.stopTimeout)
			stopErr := r.scheduler.Stop(stopCtx)
			cancel()
			if stopErr != nil {
				return stopErr
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			r.sync(ctx)
		}
	}
}

func (r *Runner) sync(ctx context.Context) {
	start := time.Now()
	res, err := r.scheduler.Sync(ctx)
	r.emitSyncMetrics(res, time.Since(start), err)

	switch {
	case err != nil && ctx.Err() != nil:
		r.logger.DebugContext(ctx, "scheduler sync cancelled", "error", err)
	case err != nil:
		r.logger.ErrorContext(ctx, "scheduler sync failed", "error", err)
	case res.Changed() || res.Invalid > 0:
		r.logger.InfoContext(ctx, "scheduler synced",
			"scheduled", res.Scheduled,
			"added", res.Added,
			"updated", res.Updated,
			"removed", res.Removed,
			"invalid", res.Invalid,
		)
	}
}

// listen keeps a trigger subscription open, resubscribing after failures.
func (r *Runner) listen(ctx context.Context) {
	for {
		err := r.triggers.Subscribe(ctx, r.handleTrigger)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.logger.WarnContext(ctx, "trigger subscription failed, retrying", "error", err)
		}

		timer := time.NewTimer(r.syncInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (r *Runner) handleTrigger(ctx context.Context, jobID string) {
	err := r.scheduler.Trigger(ctx, jobID)
	r.emitTriggerMetrics(err)
	if err != nil {
		r.logger.WarnContext(ctx, "manual trigger rejected", "job_id", jobID, "error", err)
	}
}

func (r *Runner) emitSyncMetrics(res service.SyncResult, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}
	metrics.EmitLoopRun(r.metrics, metrics.LoopRun{
		Component: "scheduler",
		Op:        "sync",
		Changed:   res.Changed(),
		Duration:  elapsed,
		Err:       err,
	})
	if err == nil {
		r.metrics.Gauge("scheduler.jobs_scheduled", float64(res.Scheduled), nil)
		r.metrics.Gauge("scheduler.jobs_invalid", float64(res.Invalid), nil)
	}
}

func (r *Runner) emitTriggerMetrics(err error) {
	if r.metrics == nil {
		return
	}
	tags := map[string]string{"result": metrics.ResultSuccess}
	if err != nil {
		tags["result"] = metrics.ResultError
		tags["error_class"] = obserrors.Classify(err)
	}
	r.metrics.Count("scheduler.manual_trigger", 1, tags)
}
