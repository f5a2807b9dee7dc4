package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-task-service/config"
	"github.com/target/mmk-task-service/internal/adapters/asyncrunner"
	"github.com/target/mmk-task-service/internal/adapters/dispatch"
	redisadapter "github.com/target/mmk-task-service/internal/adapters/redis"
	"github.com/target/mmk-task-service/internal/data"
	"github.com/target/mmk-task-service/internal/observability/notify/email"
	"github.com/target/mmk-task-service/internal/observability/notify/pagerduty"
	"github.com/target/mmk-task-service/internal/observability/notify/slack"
	"github.com/target/mmk-task-service/internal/observability/statsd"
	"github.com/target/mmk-task-service/internal/service"
	"github.com/target/mmk-task-service/internal/service/failurenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs          *data.JobRepo
	Histories     *data.JobHistoryRepo
	Triggers      *redisadapter.TriggerBus
	Async         *asyncrunner.Executor
	Executor      *service.JobExecutor
	Scheduler     *service.SchedulerService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsClient   *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// Sink returns the metrics sink, or nil when metrics are disabled.
//
//nolint:ireturn // a nil interface keeps downstream "nil sink is a no-op" checks simple.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsClient == nil {
		return nil
	}
	return o.MetricsClient
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsClient *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled:    true,
			Address:    cfg.Metrics.StatsdAddress,
			Prefix:     cfg.Metrics.Prefix,
			Logger:     obsLogger,
			GlobalTags: metricsGlobalTags(cfg.Metrics.Tags),
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsClient = client
		}
	}

	return ObservabilityContainer{
		MetricsClient:   metricsClient,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: buildFailureNotifier(obsLogger, cfg.Notifications),
		NotifierConfig:  cfg.Notifications,
	}
}

// metricsGlobalTags tags every metric with the service name unless configured otherwise.
func metricsGlobalTags(configured map[string]string) map[string]string {
	tags := map[string]string{"service": "task-service"}
	for k, v := range configured {
		tags[k] = v
	}
	return tags
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	for name, reason := range cfg.Skipped {
		baseLogger.Warn("failure notification sink skipped", "sink", name, "reason", reason)
	}
	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{Logger: baseLogger})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 3)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:   cfg.Slack.WebhookURL,
			Channel:      cfg.Slack.Channel,
			Username:     cfg.Slack.Username,
			Timeout:      cfg.Timeout,
			RetryLimit:   cfg.RetryLimit,
			JobURLPrefix: cfg.Slack.JobURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	if cfg.Email.Enabled {
		client, err := email.NewClient(email.Config{
			Host:          cfg.Email.Host,
			Port:          cfg.Email.Port,
			Username:      cfg.Email.Username,
			Password:      cfg.Email.Password,
			From:          cfg.Email.From,
			To:            cfg.Email.To,
			SubjectPrefix: cfg.Email.SubjectPrefix,
			RetryLimit:    cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise email notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "email", Sink: client})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger:  baseLogger,
		Sinks:   sinks,
		Timeout: cfg.Timeout,
	})
}

// NewServices wires repositories, adapters and the execution engine.
// ctx bounds start-up work such as OIDC discovery for dispatch auth.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}
	if deps.RedisClient == nil {
		return ServiceContainer{}, errors.New("redis client is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observability := buildObservability(logger, cfg.Observability)
	repoCfg := data.RepoConfig{Logger: logger}
	jobs := data.NewJobRepo(deps.DB, repoCfg)
	histories := data.NewJobHistoryRepo(deps.DB, repoCfg)

	triggers, err := redisadapter.NewTriggerBus(redisadapter.TriggerBusOptions{
		Client:  deps.RedisClient,
		Channel: cfg.Scheduler.TriggerChannel,
		Logger:  logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create trigger bus: %w", err)
	}

	sessions, err := redisadapter.NewImpersonationStore(redisadapter.ImpersonationStoreOptions{
		Client:    deps.RedisClient,
		KeyPrefix: cfg.Impersonation.KeyPrefix,
		TTL:       cfg.Impersonation.SessionTTL,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create impersonation store: %w", err)
	}

	dispatcher, err := dispatch.NewClient(ctx, dispatch.ClientOptions{Config: cfg.Dispatch, Logger: logger})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create dispatch client: %w", err)
	}

	async := asyncrunner.New(asyncrunner.Options{
		Concurrency: cfg.Async.Concurrency,
		Logger:      logger,
		Metrics:     observability.Sink(),
	})

	executor, err := service.NewJobExecutor(service.JobExecutorOptions{
		Deps: service.JobExecutorDeps{
			Dispatcher: dispatcher,
			History:    histories,
			Async:      async,
			Notifier:   observability.FailureNotifier,
			Impersonator: service.NewImpersonator(service.ImpersonatorOptions{
				Provider: sessions,
				Defaults: &config.EnvTenantDefaults{Logger: logger},
				Logger:   logger,
			}),
		},
		Logger:  logger,
		Metrics: observability.Sink(),
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job executor: %w", err)
	}

	loc, err := cfg.Scheduler.LoadLocation()
	if err != nil {
		return ServiceContainer{}, err
	}
	scheduler, err := service.NewSchedulerService(service.SchedulerServiceOptions{
		Deps:       service.SchedulerServiceDeps{Jobs: jobs, Runner: executor},
		Location:   loc,
		RunTimeout: cfg.Scheduler.RunTimeout,
		Logger:     logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create scheduler: %w", err)
	}

	return ServiceContainer{
		Jobs:          jobs,
		Histories:     histories,
		Triggers:      triggers,
		Async:         async,
		Executor:      executor,
		Scheduler:     scheduler,
		Observability: observability,
	}, nil
}

// ServiceOrchestrationConfig groups everything RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:         deps.cfg.Config,
		Services:       deps.cfg.Services,
		SchedulerLocal: deps.enabledServices[config.ServiceModeScheduler],
		Logger:         deps.logger,
		DB:             deps.cfg.DB,
		RedisClient:    deps.cfg.RedisClient,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg,
				)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newSchedulerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeScheduler,
		name: "scheduler",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			var schedulerCfg config.SchedulerConfig
			if deps.cfg.Config != nil {
				schedulerCfg = deps.cfg.Config.Scheduler
			}
			return RunScheduler(ctx, SchedulerConfig{
				Scheduler:    deps.cfg.Services.Scheduler,
				Triggers:     deps.cfg.Services.Triggers,
				SyncInterval: schedulerCfg.SyncInterval,
				StopTimeout:  shutdownWaitTimeout,
				Logger:       deps.logger,
				Metrics:      deps.cfg.Services.Observability.Sink(),
			})
		},
	}
}

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			var reaperCfg config.ReaperConfig
			if deps.cfg.Config != nil {
				reaperCfg = deps.cfg.Config.Reaper
			}
			return RunReaper(ctx, ReaperConfig{
				DB:      deps.cfg.DB,
				Repo:    deps.cfg.Services.Histories,
				Logger:  deps.logger,
				Config:  reaperCfg,
				Metrics: deps.cfg.Services.Observability.Sink(),
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newSchedulerBackgroundService(deps),
		newReaperBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	return waitForShutdown(shutdownConfig{
		ctx:          serviceCtx,
		cancel:       cancel,
		errCh:        errCh,
		httpServer:   result.HTTPServer,
		httpTimeout:  cfg.Config.HTTP.ShutdownTimeout,
		async:        cfg.Services.Async,
		asyncTimeout: cfg.Config.Async.ShutdownTimeout,
		metrics:      cfg.Services.Observability.MetricsClient,
		logger:       logger,
		backgrounds:  result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx          context.Context
	cancel       context.CancelFunc
	errCh        <-chan error
	httpServer   *http.Server
	httpTimeout  time.Duration
	async        *asyncrunner.Executor
	asyncTimeout time.Duration
	metrics      *statsd.Client
	logger       *slog.Logger
	backgrounds  []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop stops the HTTP server, waits for background services, then
// drains in-flight async dispatches.
func gracefulStop(cfg shutdownConfig) error {
	base := context.WithoutCancel(cfg.ctx)
	var errs []error

	if cfg.httpServer != nil {
		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: base,
			Server:  cfg.httpServer,
			Timeout: cfg.httpTimeout,
			Logger:  cfg.logger,
		}); err != nil {
			errs = append(errs, err)
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	if cfg.async != nil {
		timeout := cfg.asyncTimeout
		if timeout <= 0 {
			timeout = shutdownWaitTimeout
		}
		asyncCtx, cancel := context.WithTimeout(base, timeout)
		if err := cfg.async.Shutdown(asyncCtx); err != nil {
			cfg.logger.Warn("async executor did not drain before timeout", "in_flight", cfg.async.InFlight(), "error", err)
			errs = append(errs, fmt.Errorf("drain async executor: %w", err))
		}
		cancel()
	}

	if err := cfg.metrics.Close(); err != nil {
		cfg.logger.Warn("close statsd client failed", "error", err)
	}

	return errors.Join(errs...)
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	timer := time.NewTimer(shutdownWaitTimeout)
	defer timer.Stop()
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-timer.C:
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
