// Package pagerduty raises job failure incidents through the Events API v2.
package pagerduty

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/target/mmk-task-service/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

const (
	maxSummaryLen = 1024
	sinkName      = "pagerduty"
)

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	// Endpoint overrides APIEndpoint; empty uses the public ingest URL.
	Endpoint   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client publishes trigger events for failed jobs.
type Client struct {
	endpoint   string
	routingKey string
	source     string
	component  string
	retryLimit int
	http       *http.Client
}

type event struct {
	RoutingKey  string       `json:"routing_key"`
	EventAction string       `json:"event_action"`
	DedupKey    string       `json:"dedup_key"`
	Payload     eventPayload `json:"payload"`
}

type eventPayload struct {
	Summary       string            `json:"summary"`
	Severity      string            `json:"severity"`
	Source        string            `json:"source"`
	Component     string            `json:"component,omitempty"`
	Group         string            `json:"group,omitempty"`
	Class         string            `json:"class,omitempty"`
	Timestamp     string            `json:"timestamp"`
	CustomDetails map[string]string `json:"custom_details"`
}

// NewClient constructs a PagerDuty events client. A routing key is required.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	return &Client{
		endpoint:   notify.Fallback(strings.TrimSpace(cfg.Endpoint), APIEndpoint),
		routingKey: key,
		source:     notify.Fallback(strings.TrimSpace(cfg.Source), "task-service"),
		component:  notify.Fallback(strings.TrimSpace(cfg.Component), "task-executor"),
		retryLimit: max(cfg.RetryLimit, 0),
		http:       notify.HTTPClient(cfg.Client, cfg.Timeout),
	}, nil
}

// SendJobFailure submits a trigger event. Repeated failures of the same job
// collapse into one incident through the dedup key.
func (c *Client) SendJobFailure(ctx context.Context, payload notify.JobFailurePayload) error {
	ev := c.buildEvent(payload)
	return notify.Retry(ctx, c.retryLimit, func(ctx context.Context) error {
		return notify.PostJSON(ctx, c.http, sinkName, c.endpoint, ev)
	})
}

func (c *Client) buildEvent(payload notify.JobFailurePayload) event {
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return event{
		RoutingKey:  c.routingKey,
		EventAction: "trigger",
		DedupKey:    dedupKey(payload),
		Payload: eventPayload{
			Summary:       summarize(payload),
			Severity:      severity(payload.Severity),
			Source:        c.source,
			Component:     c.component,
			Group:         payload.AppModuleCode,
			Class:         payload.ErrorClass,
			Timestamp:     occurredAt.UTC().Format(time.RFC3339),
			CustomDetails: customDetails(payload),
		},
	}
}

func dedupKey(payload notify.JobFailurePayload) string {
	return "task:" + notify.Fallback(payload.JobID, "unknown")
}

// severity maps onto the four levels the Events API accepts.
func severity(s string) string {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "critical", "error", "warning", "info":
		return v
	default:
		return notify.SeverityCritical
	}
}

// customDetails flattens the payload; metadata never shadows job fields.
func customDetails(payload notify.JobFailurePayload) map[string]string {
	details := make(map[string]string, len(payload.Metadata)+9)
	for k, v := range payload.Metadata {
		details[k] = v
	}
	for k, v := range map[string]string{
		"job_id":          payload.JobID,
		"job_name":        payload.JobName,
		"app_module_code": payload.AppModuleCode,
		"path":            payload.Path,
		"tenant_code":     payload.TenantCode,
		"account":         payload.Account,
		"message":         payload.Message,
		"error":           payload.Error,
		"error_class":     payload.ErrorClass,
	} {
		details[k] = v
	}
	return details
}

func summarize(payload notify.JobFailurePayload) string {
	summary := fmt.Sprintf("Job %s (%s) failed",
		notify.Fallback(payload.JobName, "unknown"),
		notify.Fallback(payload.JobID, "unknown"))
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		summary += ": " + msg
	}
	if len(summary) > maxSummaryLen {
		summary = summary[:maxSummaryLen]
	}
	return summary
}
