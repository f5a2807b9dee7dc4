package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

const defaultReadinessTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	Checks  map[string]ReadinessCheck
	Timeout time.Duration
	Logger  *slog.Logger
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Live handles GET/HEAD /healthz. It only proves the process is serving HTTP.
func (h *HealthHandlers) Live(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, r, http.StatusOK, readinessResponse{Status: "ok"})
}

// Ready handles GET/HEAD /readyz by running every check concurrently. Any
// failure turns the probe into a 503; failure details are logged, not returned.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultReadinessTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.Checks[name](ctx)
		}()
	}
	wg.Wait()

	resp := readinessResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for i, name := range names {
		if err := results[i]; err != nil {
			resp.Checks[name] = "unavailable"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			if h.Logger != nil {
				h.Logger.WarnContext(r.Context(), "readiness check failed", "check", name, "error", err)
			}
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeProbe(w, r, status, resp)
}

func writeProbe(w http.ResponseWriter, r *http.Request, status int, body readinessResponse) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		return
	}
	WriteJSON(w, status, body)
}
