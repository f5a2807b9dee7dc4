// Package slack posts job failure notifications to an incoming webhook.
package slack

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/target/mmk-task-service/internal/observability/notify"
)

const sinkName = "slack"

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// JobURLPrefix turns job IDs into links when it is an absolute URL.
	JobURLPrefix string
}

// Client delivers job failure notifications to a Slack webhook.
type Client struct {
	webhookURL string
	channel    string
	username   string
	retryLimit int
	jobURL     *url.URL
	http       *http.Client
}

type message struct {
	Text     string  `json:"text"`
	Username string  `json:"username,omitempty"`
	Channel  string  `json:"channel,omitempty"`
	Blocks   []block `json:"blocks,omitempty"`
}

type block struct {
	Type   string  `json:"type"`
	Text   *text   `json:"text,omitempty"`
	Fields []*text `json:"fields,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func mrkdwn(s string) *text { return &text{Type: "mrkdwn", Text: s} }

// NewClient builds a Slack webhook client.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	return &Client{
		webhookURL: webhookURL,
		channel:    strings.TrimSpace(cfg.Channel),
		username:   notify.Fallback(strings.TrimSpace(cfg.Username), "task-service"),
		retryLimit: max(cfg.RetryLimit, 0),
		jobURL:     parseJobURLPrefix(cfg.JobURLPrefix),
		http:       notify.HTTPClient(cfg.Client, cfg.Timeout),
	}, nil
}

func parseJobURLPrefix(raw string) *url.URL {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	return u
}

// SendJobFailure posts a formatted message to Slack.
func (c *Client) SendJobFailure(ctx context.Context, payload notify.JobFailurePayload) error {
	msg := c.formatMessage(payload)
	return notify.Retry(ctx, c.retryLimit, func(ctx context.Context) error {
		return notify.PostJSON(ctx, c.http, sinkName, c.webhookURL, msg)
	})
}

// formatMessage renders a section-per-concern layout; Text is the
// notification fallback and carries every field as a bullet list.
func (c *Client) formatMessage(payload notify.JobFailurePayload) message {
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	header := headline(payload)
	fields := c.fields(payload)
	fields = append(fields, field{"Timestamp", occurredAt.UTC().Format(time.RFC3339)})

	var fallback strings.Builder
	fallback.WriteString(header)
	for _, f := range fields {
		fmt.Fprintf(&fallback, "\n• %s: %s", f.label, f.value)
	}
	meta := metadataLines(payload.Metadata)
	if meta != "" {
		fallback.WriteString("\n• Metadata:\n")
		fallback.WriteString(meta)
	}

	summary := make([]*text, 0, len(fields))
	for _, f := range fields {
		summary = append(summary, mrkdwn("*"+f.label+"*\n"+f.value))
	}
	blocks := []block{{Type: "section", Text: mrkdwn(header)}}
	// Slack caps a section at ten fields.
	for chunk := range slices.Chunk(summary, 10) {
		blocks = append(blocks, block{Type: "section", Fields: chunk})
	}
	if meta != "" {
		blocks = append(blocks, block{Type: "section", Text: mrkdwn("*Metadata*\n" + meta)})
	}

	return message{
		Text:     fallback.String(),
		Username: c.username,
		Channel:  c.channel,
		Blocks:   blocks,
	}
}

type field struct {
	label string
	value string
}

func headline(payload notify.JobFailurePayload) string {
	var b strings.Builder
	b.WriteString(":rotating_light: *Job failure alert*")
	if payload.JobName != "" {
		b.WriteString(" `" + escape(payload.JobName) + "`")
	}
	if payload.AppModuleCode != "" {
		b.WriteString(" (" + escape(payload.AppModuleCode) + ")")
	}
	return b.String()
}

// fields lists the non-empty payload attributes in display order.
func (c *Client) fields(payload notify.JobFailurePayload) []field {
	all := []field{
		{"Severity", notify.Fallback(payload.Severity, notify.SeverityCritical)},
		{"Job", c.formatJobValue(payload.JobID, payload.JobName)},
		{"Path", escape(payload.Path)},
		{"Tenant", escape(identity(payload.TenantCode, payload.Account))},
		{"Message", escape(payload.Message)},
		{"Error class", payload.ErrorClass},
		{"Error", escape(payload.Error)},
	}
	return slices.DeleteFunc(all, func(f field) bool {
		return strings.TrimSpace(f.value) == ""
	})
}

func identity(tenant, account string) string {
	switch {
	case tenant != "" && account != "":
		return account + "@" + tenant
	case tenant != "":
		return tenant
	default:
		return account
	}
}

func (c *Client) formatJobValue(jobID, jobName string) string {
	id := escape(strings.TrimSpace(jobID))
	name := escape(strings.TrimSpace(jobName))

	label := id
	if name != "" {
		label = name
	}
	suffix := ""
	if name != "" && id != "" {
		suffix = " (" + id + ")"
	}

	if link := c.jobLink(strings.TrimSpace(jobID)); link != "" {
		return "<" + link + "|" + label + ">" + suffix
	}
	return label + suffix
}

func (c *Client) jobLink(jobID string) string {
	if c.jobURL == nil || jobID == "" {
		return ""
	}
	return c.jobURL.JoinPath(jobID).String()
}

func escape(value string) string {
	return mrkdwnEscaper.Replace(value)
}

func metadataLines(metadata map[string]string) string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(metadata)) {
		fmt.Fprintf(&b, "    • %s: %s\n", escape(k), escape(metadata[k]))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
