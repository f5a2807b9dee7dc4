// Package notify defines the job failure notification payload, the sink
// contract and the delivery helpers shared by the Slack, PagerDuty and email
// adapters.
package notify

import (
	"context"
	"time"
)

// Severity values understood by every sink.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
)

// JobFailurePayload is what every sink receives for one failed run.
type JobFailurePayload struct {
	JobID         string
	JobName       string
	AppModuleCode string
	// Path is the remote operation, "<apiPath>/<methodName>".
	Path string
	// TenantCode and Account name the identity the run acted as.
	TenantCode string
	Account    string
	// Message is the remote failure message or the execution diagnostic.
	Message    string
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink delivers failure notifications to one channel.
type Sink interface {
	SendJobFailure(ctx context.Context, payload JobFailurePayload) error
}

// SinkFunc lets a plain function act as a Sink.
type SinkFunc func(ctx context.Context, payload JobFailurePayload) error

// SendJobFailure calls f; a nil SinkFunc drops the payload.
func (f SinkFunc) SendJobFailure(ctx context.Context, payload JobFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
