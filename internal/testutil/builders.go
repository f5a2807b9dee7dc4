package testutil

import (
	"github.com/google/uuid"

	"github.com/target/mmk-task-service/internal/domain/model"
)

// JobBuilder provides a fluent interface for building job definitions in tests.
type JobBuilder struct {
	job *model.Job
}

// NewJob creates a JobBuilder with a sync job that calls report/run on the "billing" module.
func NewJob() *JobBuilder {
	return &JobBuilder{
		job: &model.Job{
			ID:            uuid.NewString(),
			Name:          "nightly-report",
			AppModuleCode: "billing",
			APIPath:       "report",
			MethodName:    "run",
			State:         model.JobStateNone,
		},
	}
}

// WithID sets the job ID.
func (b *JobBuilder) WithID(id string) *JobBuilder {
	b.job.ID = id
	return b
}

// WithName sets the job name.
func (b *JobBuilder) WithName(name string) *JobBuilder {
	b.job.Name = name
	return b
}

// WithTarget sets the module, API path and method.
func (b *JobBuilder) WithTarget(module, apiPath, method string) *JobBuilder {
	b.job.AppModuleCode = module
	b.job.APIPath = apiPath
	b.job.MethodName = method
	return b
}

// WithParams sets the raw JSON input parameters.
func (b *JobBuilder) WithParams(raw string) *JobBuilder {
	b.job.InputParam = raw
	return b
}

// Async marks the job for background execution.
func (b *JobBuilder) Async() *JobBuilder {
	b.job.AsyncExe = true
	return b
}

// WithIdentity sets the execution tenant and account.
func (b *JobBuilder) WithIdentity(tenant, account string) *JobBuilder {
	b.job.ExeTenantCode = tenant
	b.job.ExeAccount = account
	return b
}

// Scheduled sets the cron expression and moves the job to NORMAL.
func (b *JobBuilder) Scheduled(cronExpr string) *JobBuilder {
	b.job.CronExpression = cronExpr
	b.job.State = model.JobStateNormal
	return b
}

// WithState sets the job state.
func (b *JobBuilder) WithState(state model.JobState) *JobBuilder {
	b.job.State = state
	return b
}

// Build returns the constructed job.
func (b *JobBuilder) Build() *model.Job {
	return b.job
}
