package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/mmk-task-service/config"
	"github.com/target/mmk-task-service/internal/adapters/reaper"
	redisadapter "github.com/target/mmk-task-service/internal/adapters/redis"
	schedrunner "github.com/target/mmk-task-service/internal/adapters/scheduler"
	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/observability/statsd"
	"github.com/target/mmk-task-service/internal/service"
)

// SchedulerConfig contains configuration for the scheduler runner.
type SchedulerConfig struct {
	Scheduler    *service.SchedulerService
	Triggers     *redisadapter.TriggerBus
	SyncInterval time.Duration
	StopTimeout  time.Duration
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

// RunScheduler starts the scheduler service and blocks until ctx is cancelled.
func RunScheduler(ctx context.Context, cfg SchedulerConfig) error {
	opts := schedrunner.RunnerOptions{
		Scheduler:    cfg.Scheduler,
		SyncInterval: cfg.SyncInterval,
		StopTimeout:  cfg.StopTimeout,
		Logger:       cfg.Logger,
		Metrics:      cfg.Metrics,
	}

	// A nil *TriggerBus must not reach the interface field.
	if cfg.Triggers != nil {
		opts.Triggers = cfg.Triggers
	}

	runner, err := schedrunner.NewRunner(opts)
	if err != nil {
		return fmt.Errorf("create scheduler runner: %w", err)
	}

	return runner.Run(ctx)
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	DB      *sql.DB
	Repo    core.JobHistoryRepository
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Repo:    cfg.Repo,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
