package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/domain/model"
)

var (
	// ErrSchedulerNotStarted is returned by Trigger before Start.
	ErrSchedulerNotStarted = errors.New("scheduler not started")
	// ErrSchedulerStopped is returned by Trigger once Stop has been called.
	ErrSchedulerStopped = errors.New("scheduler stopped")
)

// cronSpecParser accepts 5-field, 6-field (leading seconds) and descriptor (@hourly, @every 5m) specs.
var cronSpecParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// SchedulerServiceDeps groups the collaborators of SchedulerService.
type SchedulerServiceDeps struct {
	Jobs   core.JobRepository
	Runner core.JobRunner
}

// SchedulerServiceOptions holds the dependencies for creating a SchedulerService.
type SchedulerServiceOptions struct {
	Deps       SchedulerServiceDeps
	Location   *time.Location
	RunTimeout time.Duration // Optional: bounds each triggering; 0 means no deadline
	Logger     *slog.Logger
}

// SyncResult summarises one reconciliation of cron entries against the job table.
type SyncResult struct {
	Scheduled int
	Added     int
	Updated   int
	Removed   int
	Invalid   int
}

// Changed reports whether the sync altered any cron entry.
func (r SyncResult) Changed() bool {
	return r.Added+r.Updated+r.Removed > 0
}

// SchedulerService fires jobs on their cron expressions and on manual request.
// Every job has one single-flight slot: a scheduled fire or manual trigger that
// arrives while the previous run is still in the engine waits for it to finish.
// The service never writes job state.
type SchedulerService struct {
	jobs       core.JobRepository
	runner     core.JobRunner
	runTimeout time.Duration
	logger     *slog.Logger
	cron       *cron.Cron

	mu      sync.Mutex
	slots   map[string]*jobSlot
	baseCtx context.Context
	stopped bool
	manual  sync.WaitGroup
}

// jobSlot holds the latest snapshot of a job and its single-flight wrapped runner.
// The wrapper outlives cron entry replacement so the guard survives reschedules.
// A slot is dropped only when it is unscheduled and nothing is running or
// queued on it.
type jobSlot struct {
	mu      sync.RWMutex
	job     *model.Job
	run     cron.Job
	spec    string
	entryID cron.EntryID
	active  bool

	inflight atomic.Int32
}

func (s *jobSlot) snapshot() *model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.job
}

func (s *jobSlot) setJob(job *model.Job) {
	s.mu.Lock()
	s.job = job
	s.mu.Unlock()
}

// NewSchedulerService creates a SchedulerService. Call Start before jobs fire.
func NewSchedulerService(opts SchedulerServiceOptions) (*SchedulerService, error) {
	if opts.Deps.Jobs == nil {
		return nil, errors.New("job repository is required")
	}
	if opts.Deps.Runner == nil {
		return nil, errors.New("job runner is required")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")

	return &SchedulerService{
		jobs:       opts.Deps.Jobs,
		runner:     opts.Deps.Runner,
		runTimeout: opts.RunTimeout,
		logger:     logger,
		cron: cron.New(
			cron.WithParser(cronSpecParser),
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{logger: logger}),
		),
		slots: make(map[string]*jobSlot),
	}, nil
}

// ValidateCronExpression reports whether expr is accepted by the scheduler.
func ValidateCronExpression(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return errors.New("cron expression is empty")
	}
	if _, err := cronSpecParser.Parse(strings.TrimSpace(expr)); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Start begins firing cron entries. Job runs derive their context from ctx.
func (s *SchedulerService) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduler started", "location", s.cron.Location().String())
}

// Stop halts cron firing and waits for running and manually triggered jobs, up to ctx's deadline.
// Triggers are rejected from here on.
func (s *SchedulerService) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronDone := s.cron.Stop().Done()
	manualDone := make(chan struct{})
	go func() {
		s.manual.Wait()
		close(manualDone)
	}()

	for _, done := range []<-chan struct{}{cronDone, manualDone} {
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("scheduler stop: %w", ctx.Err())
		}
	}
	s.logger.InfoContext(ctx, "scheduler stopped")
	return nil
}

// Sync reconciles cron entries with the schedulable jobs in the repository.
// Entries whose expression changed are replaced; jobs no longer schedulable are removed.
func (s *SchedulerService) Sync(ctx context.Context) (SyncResult, error) {
	jobs, err := s.jobs.ListSchedulable(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list schedulable jobs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res SyncResult
	seen := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		if job == nil || !job.Schedulable() {
			continue
		}
		seen[job.ID] = struct{}{}
		slot := s.slotLocked(job)
		slot.setJob(job)

		spec := strings.TrimSpace(job.CronExpression)
		if slot.active && slot.spec == spec {
			res.Scheduled++
			continue
		}

		wasActive := slot.active
		if wasActive {
			s.cron.Remove(slot.entryID)
			slot.active = false
		}
		entryID, addErr := s.cron.AddJob(spec, slot.run)
		if addErr != nil {
			res.Invalid++
			if wasActive {
				res.Removed++
			}
			s.logger.WarnContext(ctx, "skipping job with invalid cron expression",
				"job_id", job.ID,
				"job_name", job.Name,
				"cron_expression", spec,
				"error", addErr,
			)
			continue
		}
		slot.entryID = entryID
		slot.spec = spec
		slot.active = true
		res.Scheduled++
		if wasActive {
			res.Updated++
		} else {
			res.Added++
		}
	}

	for id, slot := range s.slots {
		if _, ok := seen[id]; ok {
			continue
		}
		if slot.active {
			s.cron.Remove(slot.entryID)
			slot.active = false
			slot.spec = ""
			res.Removed++
		}
		if slot.inflight.Load() == 0 {
			delete(s.slots, id)
		}
	}

	return res, nil
}

// Trigger runs a job now, outside its schedule, through the job's single-flight slot.
// It returns once the run is queued; the run itself proceeds in the background.
func (s *SchedulerService) Trigger(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	switch {
	case s.stopped:
		s.mu.Unlock()
		return ErrSchedulerStopped
	case s.baseCtx == nil:
		s.mu.Unlock()
		return ErrSchedulerNotStarted
	}
	slot := s.slotLocked(job)
	slot.inflight.Add(1)
	s.manual.Add(1)
	s.mu.Unlock()

	slot.setJob(job)
	s.logger.InfoContext(ctx, "manual trigger accepted", "job_id", job.ID, "job_name", job.Name)
	go func() {
		defer s.manual.Done()
		defer slot.inflight.Add(-1)
		slot.run.Run()
	}()
	return nil
}

// NextRun returns the next scheduled fire time of a job, if it is scheduled.
func (s *SchedulerService) NextRun(jobID string) (time.Time, bool) {
	s.mu.Lock()
	slot, ok := s.slots[jobID]
	if !ok || !slot.active {
		s.mu.Unlock()
		return time.Time{}, false
	}
	entryID := slot.entryID
	s.mu.Unlock()

	next := s.cron.Entry(entryID).Next
	return next, !next.IsZero()
}

func (s *SchedulerService) slotLocked(job *model.Job) *jobSlot {
	if slot, ok := s.slots[job.ID]; ok {
		return slot
	}
	slot := &jobSlot{job: job}
	guarded := cron.NewChain(
		cron.DelayIfStillRunning(cronLogger{logger: s.logger}),
	).Then(cron.FuncJob(func() { s.fire(slot) }))
	slot.run = cron.FuncJob(func() {
		slot.inflight.Add(1)
		defer slot.inflight.Add(-1)
		guarded.Run()
	})
	s.slots[job.ID] = slot
	return slot
}

func (s *SchedulerService) fire(slot *jobSlot) {
	job := slot.snapshot()
	if job == nil {
		return
	}

	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	copied := *job
	s.runner.Run(ctx, &copied)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
