package service

import "errors"

var (
	// ErrExecutionPanic wraps a panic recovered while executing a job.
	ErrExecutionPanic = errors.New("job execution panicked")
	// ErrDispatcherRequired is returned when JobExecutor is built without a dispatcher.
	ErrDispatcherRequired = errors.New("dispatcher is required")
	// ErrHistoryStoreRequired is returned when JobExecutor is built without a history store.
	ErrHistoryStoreRequired = errors.New("history store is required")
	// ErrAsyncExecutorMissing is returned when an async job runs without an async executor.
	ErrAsyncExecutorMissing = errors.New("async executor not configured")
)
