package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/domain/model"
	"github.com/target/mmk-task-service/internal/observability/metrics"
	"github.com/target/mmk-task-service/internal/observability/statsd"
)

// ExecutionFailedMessage is the history message recorded when execution raised an error.
const ExecutionFailedMessage = "Job execution failed!"

const (
	asyncSubmittedFormat      = "Job [%s] submitted for background async execution."
	executionDiagnosticFormat = "execute [%s] failed! jobId:%s"
)

// JobExecutorDeps groups the collaborators a JobExecutor drives.
type JobExecutorDeps struct {
	Dispatcher   core.Dispatcher      // Required: remote invocation
	History      core.HistoryStore    // Required: history persistence
	Async        core.AsyncExecutor   // Optional: required only for async jobs
	Notifier     core.FailureNotifier // Optional: failure alerts
	Impersonator *Impersonator        // Optional: nil runs under the ambient identity
}

// JobExecutorOptions groups dependencies for JobExecutor.
type JobExecutorOptions struct {
	Deps    JobExecutorDeps
	Logger  *slog.Logger // Optional: structured logger
	Metrics statsd.Sink  // Optional: metrics sink (StatsD-compatible)
}

// JobExecutor runs one triggering of a scheduled job: it impersonates the job's
// identity, dispatches the remote method, alerts on failure and records a
// history row. It holds no state between runs and never reports an error to
// its caller. It never writes job state.
type JobExecutor struct {
	deps    JobExecutorDeps
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time
}

var _ core.JobRunner = (*JobExecutor)(nil)

// NewJobExecutor constructs a JobExecutor.
func NewJobExecutor(opts JobExecutorOptions) (*JobExecutor, error) {
	if opts.Deps.Dispatcher == nil {
		return nil, ErrDispatcherRequired
	}
	if opts.Deps.History == nil {
		return nil, ErrHistoryStoreRequired
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	deps := opts.Deps
	if deps.Impersonator == nil {
		deps.Impersonator = NewImpersonator(ImpersonatorOptions{Logger: logger})
	}

	return &JobExecutor{
		deps:    deps,
		logger:  logger.With("component", "job_executor"),
		metrics: opts.Metrics,
		now:     time.Now,
	}, nil
}

// MustNewJobExecutor constructs a JobExecutor and panics on error.
func MustNewJobExecutor(opts JobExecutorOptions) *JobExecutor {
	e, err := NewJobExecutor(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create JobExecutor: %v", err))
	}
	return e
}

// Run executes job once. Every outcome, including panics in collaborators, is
// contained: exactly one history row is handed to the store and the
// impersonation scope is released before Run returns.
func (e *JobExecutor) Run(ctx context.Context, job *model.Job) {
	if job == nil {
		e.logger.ErrorContext(ctx, "job executor invoked without a job")
		return
	}

	start := e.now()
	history := model.NewJobHistory(job.ID, start)

	var scope *ImpersonationScope
	defer func() {
		scope.Release()
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "job execution bookkeeping panicked",
				"job_id", job.ID,
				"job_name", job.Name,
				"panic", r,
			)
		}
	}()

	e.logger.InfoContext(ctx, "job execution started",
		"job_id", job.ID,
		"job_name", job.Name,
		"module", job.AppModuleCode,
		"async", job.AsyncExe,
	)

	result, err := e.execute(ctx, job, &scope)

	runCtx := ctx
	if scope != nil {
		runCtx = scope.Context()
	}

	history.Elapsed = max(e.now().Sub(start), 0)

	switch {
	case err != nil:
		diagnostic := fmt.Sprintf(executionDiagnosticFormat, job.Name, job.ID)
		history.Successful = false
		history.Message = ExecutionFailedMessage
		history.ExceptionMessage = diagnostic
		e.logger.ErrorContext(runCtx, diagnostic, "error", err)
		e.notify(runCtx, job, diagnostic, err)
	case result.Failed():
		history.Successful = false
		history.Message = result.Message
		e.logger.WarnContext(runCtx, "job reported failure",
			"job_id", job.ID,
			"job_name", job.Name,
			"message", result.Message,
		)
		e.notify(runCtx, job, result.Message, nil)
	default:
		history.Successful = true
		history.Message = result.Message
	}

	e.emitMetrics(job, history, err)
	e.saveHistory(runCtx, history)

	e.logger.InfoContext(runCtx, "job execution finished",
		"job_id", job.ID,
		"job_name", job.Name,
		"successful", history.Successful,
		"elapsed_ms", history.ElapsedMillis(),
	)
}

// execute performs impersonation, parameter decoding and dispatch. Panics are
// converted to errors so they take the same path as any other execution error.
func (e *JobExecutor) execute(
	ctx context.Context,
	job *model.Job,
	scopeOut **ImpersonationScope,
) (result model.DispatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExecutionPanic, r)
		}
	}()

	scope, err := e.deps.Impersonator.Establish(ctx, job.ExeTenantCode, job.ExeAccount)
	if err != nil {
		return result, err
	}
	*scopeOut = scope
	runCtx := scope.Context()

	params, err := model.ParseParams(job.InputParam)
	if err != nil {
		return result, err
	}

	path := job.Path()
	if !job.AsyncExe {
		return e.deps.Dispatcher.Invoke(runCtx, job.AppModuleCode, path, params)
	}

	if e.deps.Async == nil {
		return result, ErrAsyncExecutorMissing
	}
	if err := e.deps.Async.Submit(e.backgroundDispatch(job, path, params)); err != nil {
		return result, fmt.Errorf("submit async dispatch: %w", err)
	}
	return model.SuccessResult(fmt.Sprintf(asyncSubmittedFormat, job.Name)), nil
}

// backgroundDispatch builds the task run by the async executor. It works on a
// copy of the job and opens its own impersonation scope because the
// triggering run releases its scope as soon as it returns. Its outcome is
// logged only.
func (e *JobExecutor) backgroundDispatch(job *model.Job, path string, params model.Params) core.AsyncTask {
	snapshot := *job
	return func(ctx context.Context) {
		start := e.now()
		logger := e.logger.With("job_id", snapshot.ID, "job_name", snapshot.Name, "async", true)

		scope, err := e.deps.Impersonator.Establish(ctx, snapshot.ExeTenantCode, snapshot.ExeAccount)
		if err != nil {
			logger.ErrorContext(ctx, "background dispatch could not impersonate", "error", err)
			return
		}
		defer scope.Release()

		result, err := e.deps.Dispatcher.Invoke(scope.Context(), snapshot.AppModuleCode, path, params)
		elapsed := e.now().Sub(start)
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "background dispatch failed", "error", err, "elapsed_ms", elapsed.Milliseconds())
		case result.Failed():
			logger.WarnContext(ctx, "background dispatch reported failure",
				"message", result.Message,
				"elapsed_ms", elapsed.Milliseconds(),
			)
		default:
			logger.InfoContext(ctx, "background dispatch finished", "elapsed_ms", elapsed.Milliseconds())
		}
	}
}

func (e *JobExecutor) notify(ctx context.Context, job *model.Job, message string, cause error) {
	if e.deps.Notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "failure notifier panicked", "job_id", job.ID, "panic", r)
		}
	}()
	e.deps.Notifier.SendEmail(context.WithoutCancel(ctx), job, message, cause)
}

// saveHistory persists the history row. Failures are logged with the row and
// otherwise dropped.
func (e *JobExecutor) saveHistory(ctx context.Context, history *model.JobHistory) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrExecutionPanic, r)
			}
		}()
		err = e.deps.History.Save(context.WithoutCancel(ctx), history)
	}()
	if err == nil {
		return
	}

	metrics.HistorySaveFailed(e.metrics, err)
	row, marshalErr := json.Marshal(history)
	if marshalErr != nil {
		row = []byte(fmt.Sprintf("%+v", *history))
	}
	e.logger.ErrorContext(ctx, "failed to save job history",
		"job_id", history.JobID,
		"history", string(row),
		"error", err,
	)
}

func (e *JobExecutor) emitMetrics(job *model.Job, history *model.JobHistory, err error) {
	mode := metrics.ModeSync
	if job.AsyncExe {
		mode = metrics.ModeAsync
	}
	result := metrics.ResultSuccess
	switch {
	case err != nil:
		result = metrics.ResultError
	case !history.Successful:
		result = metrics.ResultFailure
	}
	metrics.EmitJobExecution(e.metrics, metrics.JobExecutionMetric{
		Module:   job.AppModuleCode,
		Mode:     mode,
		Result:   result,
		Duration: history.Elapsed,
		Err:      err,
	})
}
