// Package core defines the ports (interfaces) between the task execution
// engine, its repositories and its outbound adapters.
package core

import (
	"context"
	"time"

	"github.com/target/mmk-task-service/internal/domain/model"
)

// This file contains repository and collaborator interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces, not on concrete adapters.

// JobRepository defines read access to job definitions. Job lifecycle writes are owned elsewhere.
type JobRepository interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, opts model.ListJobsOptions) ([]*model.Job, error)
	ListSchedulable(ctx context.Context) ([]*model.Job, error)
}

// HistoryStore persists job execution history records.
type HistoryStore interface {
	Save(ctx context.Context, history *model.JobHistory) error
}

// DeleteHistoriesParams groups parameters for JobHistoryRepository.DeleteOlderThan.
type DeleteHistoriesParams struct {
	MaxAge    time.Duration
	BatchSize int
}

// JobHistoryRepository is the full history store used by the API and the reaper.
type JobHistoryRepository interface {
	HistoryStore
	ListByJobID(ctx context.Context, jobID string, limit, offset int) ([]*model.JobHistory, error)
	DeleteOlderThan(ctx context.Context, params DeleteHistoriesParams) (int64, error)
}

// Dispatcher invokes the remote operation a job names.
// A returned error is a transport or application failure; a result with
// Successful=false is a business failure reported by the remote method.
type Dispatcher interface {
	Invoke(ctx context.Context, module, path string, params model.Params) (model.DispatchResult, error)
}

// AsyncTask is a unit of background work handed to an AsyncExecutor.
type AsyncTask func(ctx context.Context)

// AsyncExecutor runs tasks in the background without blocking the submitter.
type AsyncExecutor interface {
	Submit(task AsyncTask) error
}

// FailureNotifier alerts operators that a job execution failed. Delivery is best-effort.
type FailureNotifier interface {
	SendEmail(ctx context.Context, job *model.Job, message string, cause error)
}

// IdentityProvider opens and closes impersonation sessions for an identity.
type IdentityProvider interface {
	Impersonate(ctx context.Context, id model.Identity) (model.Identity, error)
	Release(ctx context.Context, id model.Identity) error
}

// TenantDefaults supplies the process-wide fallback execution identity.
// Implementations must read configuration at call time.
type TenantDefaults interface {
	DefaultIdentity() model.Identity
}

// JobRunner executes one triggering of a job.
type JobRunner interface {
	Run(ctx context.Context, job *model.Job)
}

// TriggerPublisher requests an out-of-schedule run of a job.
type TriggerPublisher interface {
	PublishTrigger(ctx context.Context, jobID string) error
}

// TriggerHandler receives manual trigger requests by job ID.
type TriggerHandler func(ctx context.Context, jobID string)

// TriggerSubscriber delivers manual trigger requests until ctx is cancelled.
type TriggerSubscriber interface {
	Subscribe(ctx context.Context, handler TriggerHandler) error
}
