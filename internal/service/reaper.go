package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/mmk-task-service/config"
	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/observability/metrics"
	"github.com/target/mmk-task-service/internal/observability/statsd"
)

// historyPruner is the subset of the history repository the reaper needs.
type historyPruner interface {
	DeleteOlderThan(ctx context.Context, params core.DeleteHistoriesParams) (int64, error)
}

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    historyPruner       // Required: history repository
	Config  config.ReaperConfig // Required: reaper configuration
	Logger  *slog.Logger        // Optional: structured logger
	Metrics statsd.Sink         // Optional: metrics sink (StatsD-compatible)
}

// ReaperService deletes job history rows past their retention window.
type ReaperService struct {
	repo    historyPruner
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobHistoryRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"history_max_age", opts.Config.HistoryMaxAge,
			"batch_size", opts.Config.BatchSize,
		)
	}

	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Jitter so replicas started together do not prune in lockstep.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logCleanupError(err, "initial cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logCleanupError(err, "cleanup")
			}
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// RunOnce deletes expired history rows in batches until none remain and
// returns how many rows were removed.
func (s *ReaperService) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	var total int64
	var err error

	for {
		var count int64
		count, err = s.repo.DeleteOlderThan(ctx, core.DeleteHistoriesParams{
			MaxAge:    s.config.HistoryMaxAge,
			BatchSize: s.config.BatchSize,
		})
		if err != nil {
			break
		}
		total += count
		if count < int64(s.config.BatchSize) || count == 0 {
			break
		}
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}
	}

	s.emitCleanupMetrics(total, time.Since(start), err)

	if err != nil {
		if isContextCancellation(err) {
			return total, err
		}
		return total, fmt.Errorf("delete old job histories: %w", err)
	}

	if total > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "deleted old job histories",
			"count", total,
			"max_age", s.config.HistoryMaxAge,
		)
	}
	return total, nil
}

func (s *ReaperService) emitCleanupMetrics(count int64, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	tags := metrics.EmitLoopRun(s.metrics, metrics.LoopRun{
		Component: "reaper",
		Op:        "cleanup",
		Changed:   count > 0,
		Duration:  elapsed,
		Err:       suppressContextCancellation(err),
	})
	if count > 0 {
		s.metrics.Count("reaper.histories_deleted", count, tags)
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
