package config

import (
	"slices"
	"strings"
	"time"
)

const (
	defaultServiceName   = "task-service"
	defaultSMTPPort      = 587
	defaultNotifyTimeout = 5 * time.Second
)

// ObservabilityConfig groups metrics emission and failure notification settings.
type ObservabilityConfig struct {
	Metrics       ObservabilityMetricsConfig       `envPrefix:"OBSERVABILITY_METRICS_"`
	Notifications ObservabilityNotificationsConfig `envPrefix:"OBSERVABILITY_NOTIFICATIONS_"`
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Notifications.Sanitize()
}

// ObservabilityMetricsConfig controls DogStatsD emission.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string `env:"PREFIX"         envDefault:"task_service"`

	// Tags are attached to every metric, e.g. "env:prod,region:us-east".
	Tags map[string]string `env:"TAGS" envKeyValSeparator:":"`
}

// Sanitize trims the address; a blank address turns metrics off.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), ".")
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled reports whether metrics should be emitted.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// ObservabilityNotificationsConfig controls outbound job failure notifications.
type ObservabilityNotificationsConfig struct {
	Enabled    bool          `env:"ENABLED"     envDefault:"false"`
	Timeout    time.Duration `env:"TIMEOUT"     envDefault:"5s"`
	RetryLimit int           `env:"RETRY_LIMIT" envDefault:"3"`

	Slack     SlackNotificationConfig     `envPrefix:"SLACK_"`
	PagerDuty PagerDutyNotificationConfig `envPrefix:"PAGERDUTY_"`
	Email     EmailNotificationConfig     `envPrefix:"EMAIL_"`

	// Skipped maps a sink name to the reason Sanitize switched it off.
	Skipped map[string]string
}

// Sanitize normalises values and switches off sinks that are requested but
// incomplete, recording why in Skipped.
func (c *ObservabilityNotificationsConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = defaultNotifyTimeout
	}
	c.RetryLimit = max(c.RetryLimit, 0)

	c.Slack.sanitize()
	c.PagerDuty.sanitize()
	c.Email.sanitize()

	c.Skipped = map[string]string{}
	disable := func(name string, enabled *bool, missing string) {
		if !*enabled {
			return
		}
		*enabled = false
		c.Skipped[name] = missing
	}

	if !c.Enabled {
		disable("slack", &c.Slack.Enabled, "notifications disabled")
		disable("pagerduty", &c.PagerDuty.Enabled, "notifications disabled")
		disable("email", &c.Email.Enabled, "notifications disabled")
		return
	}
	if c.Slack.WebhookURL == "" {
		disable("slack", &c.Slack.Enabled, "webhook url missing")
	}
	if c.PagerDuty.RoutingKey == "" {
		disable("pagerduty", &c.PagerDuty.Enabled, "routing key missing")
	}
	if missing := c.Email.missing(); missing != "" {
		disable("email", &c.Email.Enabled, missing+" missing")
	}
}

// SlackNotificationConfig controls Slack webhook fan-out.
type SlackNotificationConfig struct {
	Enabled      bool   `env:"ENABLED"         envDefault:"false"`
	WebhookURL   string `env:"WEBHOOK_URL"`
	Channel      string `env:"CHANNEL"`
	Username     string `env:"USERNAME"        envDefault:"task-service"`
	JobURLPrefix string `env:"JOB_URL_PREFIX"`
}

func (c *SlackNotificationConfig) sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.Channel = strings.TrimSpace(c.Channel)
	c.JobURLPrefix = strings.TrimSpace(c.JobURLPrefix)
	c.Username = orDefault(c.Username, defaultServiceName)
}

// PagerDutyNotificationConfig controls PagerDuty Events API v2 fan-out.
type PagerDutyNotificationConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	RoutingKey string `env:"ROUTING_KEY"`
	Source     string `env:"SOURCE"      envDefault:"task-service"`
	Component  string `env:"COMPONENT"   envDefault:"task-executor"`
}

func (c *PagerDutyNotificationConfig) sanitize() {
	c.RoutingKey = strings.TrimSpace(c.RoutingKey)
	c.Source = orDefault(c.Source, defaultServiceName)
	c.Component = orDefault(c.Component, defaultServiceName)
}

// EmailNotificationConfig controls SMTP delivery of job failure mail.
type EmailNotificationConfig struct {
	Enabled       bool     `env:"ENABLED"        envDefault:"false"`
	Host          string   `env:"HOST"`
	Port          int      `env:"PORT"           envDefault:"587"`
	Username      string   `env:"USERNAME"`
	Password      string   `env:"PASSWORD"`
	From          string   `env:"FROM"`
	To            []string `env:"TO"             envSeparator:","`
	SubjectPrefix string   `env:"SUBJECT_PREFIX" envDefault:"[task-service]"`
}

func (c *EmailNotificationConfig) sanitize() {
	c.Host = strings.TrimSpace(c.Host)
	c.From = strings.TrimSpace(c.From)
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = defaultSMTPPort
	}
	for i := range c.To {
		c.To[i] = strings.TrimSpace(c.To[i])
	}
	c.To = slices.DeleteFunc(c.To, func(addr string) bool { return addr == "" })
}

func (c *EmailNotificationConfig) missing() string {
	switch {
	case c.Host == "":
		return "host"
	case c.From == "":
		return "sender"
	case len(c.To) == 0:
		return "recipients"
	default:
		return ""
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
