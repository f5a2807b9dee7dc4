package model

import (
	"encoding/json"
	"time"
)

// JobHistory is the persisted record of a single job execution.
type JobHistory struct {
	ID               string        `json:"id"                          db:"id"`
	JobID            string        `json:"job_id"                      db:"job_id"`
	StartTime        time.Time     `json:"start_time"                  db:"start_time"`
	Elapsed          time.Duration `json:"-"                           db:"-"`
	Successful       bool          `json:"successful"                  db:"successful"`
	Message          string        `json:"message"                     db:"message"`
	ExceptionMessage string        `json:"exception_message,omitempty" db:"exception_message"`
}

// NewJobHistory creates a history record for job started at start.
func NewJobHistory(jobID string, start time.Time) *JobHistory {
	return &JobHistory{
		JobID:     jobID,
		StartTime: start,
	}
}

// ElapsedMillis returns the elapsed time in milliseconds.
func (h *JobHistory) ElapsedMillis() int64 {
	return h.Elapsed.Milliseconds()
}

// MarshalJSON reports Elapsed once, as whole milliseconds under "elapsed_ms".
func (h JobHistory) MarshalJSON() ([]byte, error) {
	type plain JobHistory
	return json.Marshal(struct {
		plain
		ElapsedMS int64 `json:"elapsed_ms"`
	}{plain: plain(h), ElapsedMS: h.ElapsedMillis()})
}
