package config

import (
	"slices"
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// ReadHeaderTimeout bounds how long the server waits for request headers.
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// TriggerTokens are the bearer tokens accepted by POST /api/jobs/{id}/trigger.
	// With none configured the endpoint answers 401 unless TriggerAllowAnonymous is set.
	TriggerTokens []string `env:"HTTP_TRIGGER_TOKENS" envSeparator:","`

	// TriggerAllowAnonymous opens the trigger endpoint to unauthenticated callers.
	// Only for deployments behind a trusted network boundary.
	TriggerAllowAnonymous bool `env:"HTTP_TRIGGER_ALLOW_ANONYMOUS" envDefault:"false"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
	for i := range h.TriggerTokens {
		h.TriggerTokens[i] = strings.TrimSpace(h.TriggerTokens[i])
	}
	h.TriggerTokens = slices.DeleteFunc(h.TriggerTokens, func(tok string) bool { return tok == "" })
}
