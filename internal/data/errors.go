package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// Job repository sentinels.
	ErrJobNotFound          = errors.New("job not found")
	ErrJobIDRequired        = errors.New("job_id is required")
	ErrJobRepoNotConfigured = errors.New("job repository not configured")
	ErrInvalidJobState      = errors.New("invalid job state")

	// Job history repository sentinels.
	ErrJobHistoryNotConfigured = errors.New("job history repository not configured")
	ErrJobHistoryRequired      = errors.New("job history is required")
)
