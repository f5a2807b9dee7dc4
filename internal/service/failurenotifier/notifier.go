package failurenotifier

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/domain/model"
	obserrors "github.com/target/mmk-task-service/internal/observability/errors"
	"github.com/target/mmk-task-service/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
	// Timeout bounds delivery across all sinks. Zero means no bound beyond the caller's context.
	Timeout time.Duration
}

// Service dispatches failure events to all registered sinks.
type Service struct {
	logger  *slog.Logger
	sinks   []SinkRegistration
	timeout time.Duration
	now     func() time.Time
}

var _ core.FailureNotifier = (*Service)(nil)

// NewService constructs a failure notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "failure_notifier")

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{
			Name: name,
			Sink: entry.Sink,
		})
	}

	return &Service{
		logger:  logger,
		sinks:   sinks,
		timeout: opts.Timeout,
		now:     time.Now,
	}
}

// SendEmail reports a failed job execution to every sink. cause is nil when the
// remote method itself reported failure.
func (s *Service) SendEmail(ctx context.Context, job *model.Job, message string, cause error) {
	if job == nil {
		return
	}
	s.NotifyJobFailure(ctx, s.buildPayload(ctx, job, message, cause))
}

func (s *Service) buildPayload(ctx context.Context, job *model.Job, message string, cause error) notify.JobFailurePayload {
	payload := notify.JobFailurePayload{
		JobID:         job.ID,
		JobName:       job.Name,
		AppModuleCode: job.AppModuleCode,
		Path:          job.Path(),
		TenantCode:    job.ExeTenantCode,
		Account:       job.ExeAccount,
		Message:       message,
		Severity:      notify.SeverityError,
		OccurredAt:    s.now().UTC(),
		Metadata: map[string]string{
			"async": strconv.FormatBool(job.AsyncExe),
		},
	}
	if id, ok := model.IdentityFromContext(ctx); ok {
		payload.TenantCode = id.TenantCode
		payload.Account = id.Account
	}
	if cause != nil {
		payload.Error = cause.Error()
		payload.ErrorClass = obserrors.Classify(cause)
		payload.Severity = notify.SeverityCritical
	}
	return payload
}

// NotifyJobFailure fan-outs the job failure payload to all sinks.
func (s *Service) NotifyJobFailure(ctx context.Context, payload notify.JobFailurePayload) {
	if len(s.sinks) == 0 {
		s.logger.DebugContext(ctx, "no failure sinks configured; dropping notification",
			"job_id", payload.JobID,
		)
		return
	}

	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var g errgroup.Group
	for _, entry := range s.sinks {
		g.Go(func() error {
			s.deliver(ctx, entry, payload)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) deliver(ctx context.Context, entry SinkRegistration, payload notify.JobFailurePayload) {
	start := s.now()
	err := entry.Sink.SendJobFailure(ctx, payload)
	if err == nil {
		s.logger.DebugContext(ctx, "failure notification delivered",
			"sink", entry.Name,
			"job_id", payload.JobID,
			"elapsed", s.now().Sub(start),
		)
		return
	}
	s.logger.ErrorContext(ctx, "failure notifier delivery error",
		"sink", entry.Name,
		"job_id", payload.JobID,
		"job_name", payload.JobName,
		"error_class", obserrors.Classify(err),
		"error", err,
	)
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return len(s.sinks) > 0
}
