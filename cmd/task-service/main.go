// Command task-service runs the scheduler, the history reaper and the job API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/target/mmk-task-service/config"
	"github.com/target/mmk-task-service/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "task service exited", "error", err)
		os.Exit(1) //nolint:forbidigo // non-zero exit on fatal startup errors
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if err := bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}
	logStartupInfo(ctx, logger, &cfg)

	infra, err := bootstrap.OpenInfrastructure(ctx, &cfg, bootstrap.InfraRequest{Postgres: true, Redis: true}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := infra.Close(); cerr != nil {
			logger.ErrorContext(ctx, "closing infrastructure", "error", cerr)
		}
	}()

	if err := migrateOnStart(ctx, &cfg, infra, logger); err != nil {
		return err
	}

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          infra.DB,
		RedisClient: infra.Redis,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:      &cfg,
		Services:    services,
		DB:          infra.DB,
		RedisClient: infra.Redis,
		Logger:      logger,
	})
}

func migrateOnStart(ctx context.Context, cfg *config.AppConfig, infra *bootstrap.Infrastructure, logger *slog.Logger) error {
	if !cfg.Postgres.RunMigrationsOnStart {
		logger.InfoContext(ctx, "startup migrations disabled; run task-admin migrate instead")
		return nil
	}
	return bootstrap.RunMigrations(ctx, infra.DB, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting task service",
		slog.Group("db",
			"host", cfg.Postgres.Host,
			"port", cfg.Postgres.Port,
			"name", cfg.Postgres.Name,
		),
		slog.Group("scheduler",
			"location", cfg.Scheduler.Location,
			"sync_interval", cfg.Scheduler.SyncInterval,
		),
		"dispatch_gateway", cfg.Dispatch.GatewayURL,
		"enabled_services", bootstrap.GetEnabledServices(cfg),
	)
}
