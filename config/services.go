package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeScheduler runs the cron scheduler and the manual trigger listener.
	ServiceModeScheduler ServiceMode = "scheduler"
	// ServiceModeReaper runs the job history reaper.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeScheduler,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for part := range strings.SplitSeq(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeScheduler, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, scheduler, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// SchedulerConfig contains cron scheduler configuration.
type SchedulerConfig struct {
	// Location is the IANA time zone cron expressions are evaluated in.
	Location string `env:"SCHEDULER_LOCATION" envDefault:"UTC"`

	// SyncInterval is how often job definitions are reloaded from the database.
	SyncInterval time.Duration `env:"SCHEDULER_SYNC_INTERVAL" envDefault:"30s"`

	// TriggerChannel is the Redis pub/sub channel carrying manual trigger requests.
	TriggerChannel string `env:"SCHEDULER_TRIGGER_CHANNEL" envDefault:"task:triggers"`

	// RunTimeout bounds a single job execution. Zero disables the bound.
	RunTimeout time.Duration `env:"SCHEDULER_RUN_TIMEOUT" envDefault:"0s"`
}

// Sanitize applies guardrails to scheduler configuration values.
func (s *SchedulerConfig) Sanitize() {
	if s.SyncInterval < time.Second {
		s.SyncInterval = time.Second
	}
	if s.Location = strings.TrimSpace(s.Location); s.Location == "" {
		s.Location = "UTC"
	}
	if s.TriggerChannel = strings.TrimSpace(s.TriggerChannel); s.TriggerChannel == "" {
		s.TriggerChannel = "task:triggers"
	}
	if s.RunTimeout < 0 {
		s.RunTimeout = 0
	}
}

// LoadLocation resolves the configured time zone.
func (s *SchedulerConfig) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Location)
	if err != nil {
		return nil, fmt.Errorf("load scheduler location %q: %w", s.Location, err)
	}
	return loc, nil
}

// AsyncConfig contains background (fire-and-forget) execution configuration.
type AsyncConfig struct {
	// Concurrency is the maximum number of background dispatches in flight.
	Concurrency int `env:"ASYNC_CONCURRENCY" envDefault:"8"`

	// ShutdownTimeout bounds how long shutdown waits for in-flight background work.
	ShutdownTimeout time.Duration `env:"ASYNC_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to async executor configuration values.
func (a *AsyncConfig) Sanitize() {
	if a.Concurrency < 1 {
		a.Concurrency = 1
	}
	if a.Concurrency > 1024 {
		a.Concurrency = 1024
	}
	if a.ShutdownTimeout <= 0 {
		a.ShutdownTimeout = 30 * time.Second
	}
}

// ImpersonationConfig contains impersonation session configuration.
type ImpersonationConfig struct {
	// SessionTTL is how long an impersonation session survives if never released.
	SessionTTL time.Duration `env:"IMPERSONATION_SESSION_TTL" envDefault:"1h"`

	// KeyPrefix namespaces impersonation session keys in Redis.
	KeyPrefix string `env:"IMPERSONATION_KEY_PREFIX" envDefault:"task:impersonation:"`
}

// Sanitize applies guardrails to impersonation configuration values.
func (i *ImpersonationConfig) Sanitize() {
	if i.SessionTTL < time.Minute {
		i.SessionTTL = time.Minute
	}
	if strings.TrimSpace(i.KeyPrefix) == "" {
		i.KeyPrefix = "task:impersonation:"
	}
}

// ReaperConfig contains job history reaper configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1h"`

	// HistoryMaxAge is the maximum age of job history rows before deletion.
	HistoryMaxAge time.Duration `env:"REAPER_HISTORY_MAX_AGE" envDefault:"2160h"` // 90 days

	// BatchSize is the maximum number of rows deleted per statement.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.HistoryMaxAge < 24*time.Hour {
		r.HistoryMaxAge = 24 * time.Hour
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
