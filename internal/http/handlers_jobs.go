// Package httpx provides the HTTP API for inspecting jobs and requesting manual runs.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/data"
	"github.com/target/mmk-task-service/internal/domain/model"
)

const (
	defaultJobPageSize     = 50
	maxJobPageSize         = 1000
	defaultHistoryPageSize = 50
	maxHistoryPageSize     = 500
)

var errJobIDRequired = errors.New("job id is required")

// ScheduleInspector reports when a job is next due. Implemented by the in-process scheduler.
type ScheduleInspector interface {
	NextRun(jobID string) (time.Time, bool)
}

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Jobs      core.JobRepository
	Histories core.JobHistoryRepository
	Triggers  core.TriggerPublisher
	Schedule  ScheduleInspector // Optional
	Logger    *slog.Logger
}

type jobView struct {
	*model.Job
	StateLabel string     `json:"state_label"`
	NextRun    *time.Time `json:"next_run,omitempty"`
}

func (h *JobHandlers) view(job *model.Job) jobView {
	v := jobView{Job: job, StateLabel: job.State.Label()}
	if h.Schedule != nil {
		if next, ok := h.Schedule.NextRun(job.ID); ok {
			v.NextRun = &next
		}
	}
	return v
}

// ListJobs handles GET /api/jobs with optional state, app_module_code, limit and offset filters.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := ParseLimitOffset(r, defaultJobPageSize, maxJobPageSize)
	opts := model.ListJobsOptions{
		AppModuleCode: q.Get("app_module_code"),
		Limit:         limit,
		Offset:        offset,
	}
	if raw := q.Get("state"); raw != "" {
		var state model.JobState
		if err := state.UnmarshalText([]byte(raw)); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_state", Err: err})
			return
		}
		opts.State = &state
	}

	jobs, err := h.Jobs.List(r.Context(), opts)
	if err != nil {
		h.serverError(w, r, "list_failed", err)
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, h.view(job))
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":   views,
		"limit":  limit,
		"offset": offset,
	})
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, h.view(job))
}

// ListHistories handles GET /api/jobs/{id}/histories, newest first.
func (h *JobHandlers) ListHistories(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errJobIDRequired})
		return
	}
	limit, offset := ParseLimitOffset(r, defaultHistoryPageSize, maxHistoryPageSize)

	histories, err := h.Histories.ListByJobID(r.Context(), jobID, limit, offset)
	if err != nil {
		h.serverError(w, r, "list_histories_failed", err)
		return
	}

	if histories == nil {
		histories = []*model.JobHistory{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"histories": histories,
		"limit":     limit,
		"offset":    offset,
	})
}

// TriggerJob handles POST /api/jobs/{id}/trigger. The run is queued, not awaited.
func (h *JobHandlers) TriggerJob(w http.ResponseWriter, r *http.Request) {
	if h.Triggers == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "trigger_unavailable",
			Err:     errors.New("manual triggers are not configured"),
		})
		return
	}

	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	if err := h.Triggers.PublishTrigger(r.Context(), job.ID); err != nil {
		h.serverError(w, r, "trigger_failed", err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": "accepted",
	})
}

func (h *JobHandlers) loadJob(w http.ResponseWriter, r *http.Request) (*model.Job, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errJobIDRequired})
		return nil, false
	}

	job, err := h.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: data.ErrJobNotFound})
		} else {
			h.serverError(w, r, "get_job_failed", err)
		}
		return nil, false
	}
	return job, true
}

func (h *JobHandlers) serverError(w http.ResponseWriter, r *http.Request, code string, err error) {
	if h.Logger != nil {
		h.Logger.ErrorContext(r.Context(), "request failed", "error_code", code, "error", err)
	}
	WriteError(w, ErrorParams{
		Code:    http.StatusInternalServerError,
		ErrCode: code,
		Err:     errors.New(http.StatusText(http.StatusInternalServerError)),
	})
}
