// Package model defines the core data types shared by the task execution engine,
// its repositories and its adapters.
package model

import (
	"fmt"
	"strings"
	"time"
)

// JobState is the lifecycle state of a scheduled job. The execution engine only
// reads it; transitions belong to the job lifecycle manager.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobState string

const (
	// JobStateNone means the job has no schedule state.
	JobStateNone JobState = "NONE"
	// JobStateNormal means the job is scheduled and eligible to fire.
	JobStateNormal JobState = "NORMAL"
	// JobStatePaused means the job is temporarily suspended.
	JobStatePaused JobState = "PAUSED"
	// JobStateComplete means the job's trigger has finished.
	JobStateComplete JobState = "COMPLETE"
	// JobStateError means the scheduler recorded a trigger error.
	JobStateError JobState = "ERROR"
	// JobStateBlocked means a previous execution is still occupying the job.
	JobStateBlocked JobState = "BLOCKED"
)

var jobStateLabels = map[JobState]string{
	JobStateNone:     "No state",
	JobStateNormal:   "Normal",
	JobStatePaused:   "Paused",
	JobStateComplete: "Complete",
	JobStateError:    "Error",
	JobStateBlocked:  "Blocked",
}

// JobStates returns every known state in declaration order.
func JobStates() []JobState {
	return []JobState{
		JobStateNone,
		JobStateNormal,
		JobStatePaused,
		JobStateComplete,
		JobStateError,
		JobStateBlocked,
	}
}

// Valid reports whether s is one of the known states.
func (s JobState) Valid() bool {
	_, ok := jobStateLabels[s]
	return ok
}

// Label returns the human-readable display label for the state.
func (s JobState) Label() string {
	if label, ok := jobStateLabels[s]; ok {
		return label
	}
	return string(s)
}

// UnmarshalText implements encoding.TextUnmarshaler so states can be parsed from env and JSON.
func (s *JobState) UnmarshalText(text []byte) error {
	v := JobState(strings.ToUpper(strings.TrimSpace(string(text))))
	if v == "" {
		*s = JobStateNone
		return nil
	}
	if !v.Valid() {
		return fmt.Errorf("invalid JobState: %q", string(text))
	}
	*s = v
	return nil
}

// Job is a scheduled job definition: what remote method to invoke, with which
// parameters, in which mode and under which identity.
type Job struct {
	ID             string    `json:"id"               db:"id"`
	Name           string    `json:"name"             db:"name"`
	AppModuleCode  string    `json:"app_module_code"  db:"app_module_code"`
	APIPath        string    `json:"api_path"         db:"api_path"`
	MethodName     string    `json:"method_name"      db:"method_name"`
	InputParam     string    `json:"input_param"      db:"input_param"`
	AsyncExe       bool      `json:"async_exe"        db:"async_exe"`
	ExeTenantCode  string    `json:"exe_tenant_code"  db:"exe_tenant_code"`
	ExeAccount     string    `json:"exe_account"      db:"exe_account"`
	CronExpression string    `json:"cron_expression"  db:"cron_expression"`
	State          JobState  `json:"state"            db:"state"`
	Remark         string    `json:"remark"           db:"remark"`
	CreatedAt      time.Time `json:"created_at"       db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"       db:"updated_at"`
}

// Path returns the dispatch path for the job: apiPath + "/" + methodName.
func (j *Job) Path() string {
	return fmt.Sprintf("%s/%s", j.APIPath, j.MethodName)
}

// Schedulable reports whether the host scheduler should register the job.
func (j *Job) Schedulable() bool {
	return j.State == JobStateNormal && strings.TrimSpace(j.CronExpression) != ""
}

// ListJobsOptions filters job listings.
type ListJobsOptions struct {
	State         *JobState
	AppModuleCode string
	Limit         int
	Offset        int
}
