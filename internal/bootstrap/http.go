package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-task-service/config"
	httpx "github.com/target/mmk-task-service/internal/http"
)

const defaultHTTPAddr = ":8080"

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	// SchedulerLocal reports whether the scheduler runs in this process,
	// in which case job payloads include next_run.
	SchedulerLocal bool
	Logger         *slog.Logger

	// Optional: readiness probes ping these when set.
	DB          *sql.DB
	RedisClient redis.UniversalClient
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	server := &http.Server{
		Addr:              appCfg.HTTP.Addr,
		Handler:           httpx.NewRouter(buildRouterServices(cfg, logger)),
		ReadHeaderTimeout: appCfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Guard against empty addr to avoid listening on Go default
	if server.Addr == "" {
		server.Addr = defaultHTTPAddr
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// buildRouterServices avoids storing typed nil pointers in the router's
// optional interface fields.
func buildRouterServices(cfg *HTTPServerConfig, logger *slog.Logger) httpx.RouterServices {
	if logger == nil {
		logger = slog.Default()
	}
	services := httpx.RouterServices{Logger: logger}
	if cfg.Services.Jobs != nil {
		services.Jobs = cfg.Services.Jobs
	}
	if cfg.Services.Histories != nil {
		services.Histories = cfg.Services.Histories
	}
	if cfg.Services.Triggers != nil {
		services.Triggers = cfg.Services.Triggers
	}
	if cfg.SchedulerLocal && cfg.Services.Scheduler != nil {
		services.Schedule = cfg.Services.Scheduler
	}
	services.ReadinessChecks = readinessChecks(cfg.DB, cfg.RedisClient)
	if cfg.Config != nil {
		services.TriggerTokens = cfg.Config.HTTP.TriggerTokens
		services.AllowAnonymousTrigger = cfg.Config.HTTP.TriggerAllowAnonymous
	}
	switch {
	case services.AllowAnonymousTrigger:
		logger.Warn("manual trigger endpoint accepts unauthenticated requests",
			"setting", "HTTP_TRIGGER_ALLOW_ANONYMOUS")
	case len(services.TriggerTokens) == 0:
		logger.Warn("no HTTP_TRIGGER_TOKENS configured; manual triggers over HTTP will be rejected")
	}
	return services
}

func readinessChecks(db *sql.DB, redisClient redis.UniversalClient) map[string]httpx.ReadinessCheck {
	checks := make(map[string]httpx.ReadinessCheck, 2)
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
