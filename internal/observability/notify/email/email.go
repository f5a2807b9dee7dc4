// Package email delivers job failure notifications over SMTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/target/mmk-task-service/internal/observability/notify"
)

// Config captures SMTP delivery settings.
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	To            []string
	SubjectPrefix string
	RetryLimit    int
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Client sends failure mail to a fixed recipient list.
type Client struct {
	addr          string
	auth          smtp.Auth
	from          string
	to            []string
	subjectPrefix string
	retryLimit    int
	send          SendFunc
	now           func() time.Time
}

// NewClient validates cfg and builds an SMTP client.
func NewClient(cfg Config) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, errors.New("sender address is required")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("at least one recipient is required")
	}
	port := cfg.Port
	if port <= 0 {
		port = 587
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}

	return &Client{
		addr:          net.JoinHostPort(host, strconv.Itoa(port)),
		auth:          auth,
		from:          from,
		to:            append([]string(nil), cfg.To...),
		subjectPrefix: strings.TrimSpace(cfg.SubjectPrefix),
		retryLimit:    max(cfg.RetryLimit, 0),
		send:          smtp.SendMail,
		now:           time.Now,
	}, nil
}

// SendJobFailure mails the failure to every configured recipient.
func (c *Client) SendJobFailure(ctx context.Context, payload notify.JobFailurePayload) error {
	msg := c.buildMessage(payload)

	return notify.Retry(ctx, c.retryLimit, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return notify.Permanent(err)
		}
		if err := c.send(c.addr, c.auth, c.from, c.to, msg); err != nil {
			return classifySMTP(fmt.Errorf("smtp send: %w", err))
		}
		return nil
	})
}

// classifySMTP treats 5xx replies as final; everything else may be retried.
func classifySMTP(err error) error {
	var reply *textproto.Error
	if errors.As(err, &reply) && reply.Code >= 500 {
		return notify.Permanent(err)
	}
	return err
}

func (c *Client) buildMessage(payload notify.JobFailurePayload) []byte {
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = c.now()
	}

	subject := fmt.Sprintf("Job %s failed", notify.Fallback(payload.JobName, payload.JobID))
	if c.subjectPrefix != "" {
		subject = c.subjectPrefix + " " + subject
	}

	var b strings.Builder
	writeHeader(&b, "From", c.from)
	writeHeader(&b, "To", strings.Join(c.to, ", "))
	writeHeader(&b, "Subject", sanitizeHeader(subject))
	writeHeader(&b, "Date", occurredAt.Format(time.RFC1123Z))
	writeHeader(&b, "MIME-Version", "1.0")
	writeHeader(&b, "Content-Type", `text/plain; charset="utf-8"`)
	b.WriteString("\r\n")

	lines := []struct {
		label string
		value string
	}{
		{"Job", payload.JobName},
		{"Job ID", payload.JobID},
		{"Module", payload.AppModuleCode},
		{"Path", payload.Path},
		{"Tenant", payload.TenantCode},
		{"Account", payload.Account},
		{"Severity", notify.Fallback(payload.Severity, notify.SeverityCritical)},
		{"Message", payload.Message},
		{"Error class", payload.ErrorClass},
		{"Error", payload.Error},
		{"Occurred at", occurredAt.UTC().Format(time.RFC3339)},
	}
	for _, l := range lines {
		if strings.TrimSpace(l.value) == "" {
			continue
		}
		b.WriteString(l.label)
		b.WriteString(": ")
		b.WriteString(sanitizeHeader(l.value))
		b.WriteString("\r\n")
	}

	if len(payload.Metadata) > 0 {
		keys := make([]string, 0, len(payload.Metadata))
		for k := range payload.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\r\nMetadata:\r\n")
		for _, k := range keys {
			b.WriteString("  ")
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(payload.Metadata[k])
			b.WriteString("\r\n")
		}
	}

	return []byte(b.String())
}

func writeHeader(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

// sanitizeHeader replaces CR and LF so values cannot inject headers.
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
