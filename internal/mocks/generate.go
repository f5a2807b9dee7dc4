// Package mocks provides gomock implementations of the task service ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	dispatcher := mocks.NewMockDispatcher(ctrl)
//	dispatcher.EXPECT().Invoke(gomock.Any(), "mod1", "/jobs/run", gomock.Any()).Return(model.SuccessResult("ok"), nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_repository_mock.go github.com/target/mmk-task-service/internal/core JobRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_history_repository_mock.go github.com/target/mmk-task-service/internal/core JobHistoryRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=dispatcher_mock.go github.com/target/mmk-task-service/internal/core Dispatcher
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=async_executor_mock.go github.com/target/mmk-task-service/internal/core AsyncExecutor
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=failure_notifier_mock.go github.com/target/mmk-task-service/internal/core FailureNotifier

// Identity ports: impersonation sessions and the fallback tenant identity.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_mock.go github.com/target/mmk-task-service/internal/core IdentityProvider,TenantDefaults

// Trigger ports used by the HTTP API and the trigger bus.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_runner_mock.go github.com/target/mmk-task-service/internal/core JobRunner,TriggerPublisher
