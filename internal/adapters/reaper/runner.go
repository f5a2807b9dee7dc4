// Package reaper runs the job history retention loop outside the scheduler.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mmk-task-service/config"
	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/data"
	"github.com/target/mmk-task-service/internal/observability/statsd"
	"github.com/target/mmk-task-service/internal/service"
)

// Runner owns a ReaperService bound to a history store.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
	cfg    config.ReaperConfig
}

// RunnerOptions holds the dependencies for creating a Runner.
// Repo takes precedence over DB when both are set.
type RunnerOptions struct {
	DB      *sql.DB
	Repo    core.JobHistoryRepository
	Config  config.ReaperConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// NewRunner builds the history store (unless one is injected) and the reaper service.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reaper")

	repo := opts.Repo
	if repo == nil {
		if opts.DB == nil {
			return nil, errors.New("reaper needs a database or a history repository")
		}
		repo = data.NewJobHistoryRepo(opts.DB, data.RepoConfig{Logger: logger})
	}

	cfg := opts.Config
	cfg.Sanitize()

	svc, err := service.NewReaperService(service.ReaperServiceOptions{
		Repo:    repo,
		Config:  cfg,
		Logger:  logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build reaper service: %w", err)
	}
	return &Runner{reaper: svc, logger: logger, cfg: cfg}, nil
}

// Run sweeps on the configured interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "reaper started",
		"interval", r.cfg.Interval,
		"history_max_age", r.cfg.HistoryMaxAge,
	)
	return r.reaper.Run(ctx)
}

// RunOnce performs a single sweep and returns the number of rows removed.
func (r *Runner) RunOnce(ctx context.Context) (int64, error) {
	return r.reaper.RunOnce(ctx)
}
