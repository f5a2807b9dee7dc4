package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/mmk-task-service/internal/core"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs      core.JobRepository
	Histories core.JobHistoryRepository
	Triggers  core.TriggerPublisher // Optional: nil disables POST /api/jobs/{id}/trigger
	Schedule  ScheduleInspector     // Optional: adds next_run to job payloads
	Logger    *slog.Logger

	// ReadinessChecks back GET /readyz, keyed by dependency name.
	ReadinessChecks map[string]ReadinessCheck

	// TriggerTokens guard POST /api/jobs/{id}/trigger, whose runs act as the
	// job's tenant identity. Empty means every trigger is rejected with 401
	// unless AllowAnonymousTrigger is set.
	TriggerTokens         []string
	AllowAnonymousTrigger bool
}

// NewRouter creates the API router wrapped with request ID, logging and panic recovery.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	mux := http.NewServeMux()

	// GET patterns also match HEAD.
	health := &HealthHandlers{Checks: services.ReadinessChecks, Logger: logger}
	mux.HandleFunc("GET /healthz", health.Live)
	mux.HandleFunc("GET /readyz", health.Ready)

	triggerAuth := RequireToken(services.TriggerTokens)
	if services.AllowAnonymousTrigger {
		triggerAuth = func(next http.Handler) http.Handler { return next }
	}
	registerJobRoutes(mux, &JobHandlers{
		Jobs:      services.Jobs,
		Histories: services.Histories,
		Triggers:  services.Triggers,
		Schedule:  services.Schedule,
		Logger:    logger,
	}, triggerAuth)

	return Chain(mux, RequestID(), Logging(logger), Recover(logger))
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers, triggerAuth Middleware) {
	mux.HandleFunc("GET /api/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /api/jobs/{id}/histories", h.ListHistories)
	mux.Handle("POST /api/jobs/{id}/trigger", triggerAuth(http.HandlerFunc(h.TriggerJob)))
}
