package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/target/mmk-task-service/internal/domain/model"
)

const (
	defaultJobListLimit = 50
	maxJobListLimit     = 1000
)

// RepoConfig holds configuration options for the job repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides read access to job definitions plus the upsert used by seeding tools.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := clockOrSystem(cfg.TimeProvider)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       logger.With("component", "job_repo"),
	}
}

const jobColumns = `id, name, app_module_code, api_path, method_name, input_param, async_exe, ` +
	`exe_tenant_code, exe_account, cron_expression, state, remark, created_at, updated_at`

type jobRowScanner interface {
	Scan(dest ...any) error
}

func scanJob(scanner jobRowScanner) (*model.Job, error) {
	job := &model.Job{}
	var state string
	if err := scanner.Scan(
		&job.ID,
		&job.Name,
		&job.AppModuleCode,
		&job.APIPath,
		&job.MethodName,
		&job.InputParam,
		&job.AsyncExe,
		&job.ExeTenantCode,
		&job.ExeAccount,
		&job.CronExpression,
		&state,
		&job.Remark,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := job.State.UnmarshalText([]byte(state)); err != nil {
		return nil, fmt.Errorf("%w: job %s: %w", ErrInvalidJobState, job.ID, err)
	}
	return job, nil
}

// GetByID returns the job with the given id.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if r == nil || r.DB == nil {
		return nil, ErrJobRepoNotConfigured
	}
	if strings.TrimSpace(id) == "" {
		return nil, ErrJobIDRequired
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

type jobFilterQueryBuilder struct {
	query  strings.Builder
	args   []any
	argIdx int
}

func newJobFilterQueryBuilder(base string) *jobFilterQueryBuilder {
	b := &jobFilterQueryBuilder{argIdx: 1}
	b.query.WriteString(base)
	return b
}

func (b *jobFilterQueryBuilder) addFilter(column string, value any) {
	fmt.Fprintf(&b.query, " AND %s = $%d", column, b.argIdx)
	b.args = append(b.args, value)
	b.argIdx++
}

func (b *jobFilterQueryBuilder) addPagination(limit, offset int) {
	fmt.Fprintf(&b.query, " LIMIT $%d OFFSET $%d", b.argIdx, b.argIdx+1)
	b.args = append(b.args, limit, offset)
	b.argIdx += 2
}

func normalizeListOptions(opts model.ListJobsOptions) model.ListJobsOptions {
	if opts.Limit <= 0 {
		opts.Limit = defaultJobListLimit
	}
	if opts.Limit > maxJobListLimit {
		opts.Limit = maxJobListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}

func buildJobListQuery(opts model.ListJobsOptions) (string, []any) {
	opts = normalizeListOptions(opts)
	b := newJobFilterQueryBuilder(`SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`)
	if opts.State != nil {
		b.addFilter("state", string(*opts.State))
	}
	if code := strings.TrimSpace(opts.AppModuleCode); code != "" {
		b.addFilter("app_module_code", code)
	}
	b.query.WriteString(" ORDER BY name ASC, id ASC")
	b.addPagination(opts.Limit, opts.Offset)
	return b.query.String(), b.args
}

// List returns jobs matching the filter, ordered by name.
func (r *JobRepo) List(ctx context.Context, opts model.ListJobsOptions) ([]*model.Job, error) {
	if r == nil || r.DB == nil {
		return nil, ErrJobRepoNotConfigured
	}
	if opts.State != nil && !opts.State.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobState, *opts.State)
	}

	query, args := buildJobListQuery(opts)
	return r.queryJobs(ctx, query, args...)
}

// ListSchedulable returns jobs in the NORMAL state that carry a cron expression.
func (r *JobRepo) ListSchedulable(ctx context.Context) ([]*model.Job, error) {
	if r == nil || r.DB == nil {
		return nil, ErrJobRepoNotConfigured
	}

	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE state = $1 AND btrim(cron_expression) <> ''
		ORDER BY id ASC`
	return r.queryJobs(ctx, query, string(model.JobStateNormal))
}

func (r *JobRepo) queryJobs(ctx context.Context, query string, args ...any) (_ []*model.Job, err error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	jobs := make([]*model.Job, 0)
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Upsert inserts or replaces a job definition. An empty ID is assigned a new UUID.
// It backs the seeding CLI; the execution engine never writes jobs.
func (r *JobRepo) Upsert(ctx context.Context, job *model.Job) (*model.Job, error) {
	if r == nil || r.DB == nil {
		return nil, ErrJobRepoNotConfigured
	}
	if job == nil {
		return nil, errors.New("job is required")
	}
	if job.State == "" {
		job.State = model.JobStateNone
	}
	if !job.State.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobState, job.State)
	}
	if strings.TrimSpace(job.ID) == "" {
		job.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO jobs (
			id, name, app_module_code, api_path, method_name, input_param, async_exe,
			exe_tenant_code, exe_account, cron_expression, state, remark, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			app_module_code = EXCLUDED.app_module_code,
			api_path = EXCLUDED.api_path,
			method_name = EXCLUDED.method_name,
			input_param = EXCLUDED.input_param,
			async_exe = EXCLUDED.async_exe,
			exe_tenant_code = EXCLUDED.exe_tenant_code,
			exe_account = EXCLUDED.exe_account,
			cron_expression = EXCLUDED.cron_expression,
			state = EXCLUDED.state,
			remark = EXCLUDED.remark,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + jobColumns

	now := r.timeProvider.Now().UTC()
	saved, err := scanJob(r.DB.QueryRowContext(ctx, query,
		job.ID,
		job.Name,
		job.AppModuleCode,
		job.APIPath,
		job.MethodName,
		job.InputParam,
		job.AsyncExe,
		job.ExeTenantCode,
		job.ExeAccount,
		job.CronExpression,
		string(job.State),
		job.Remark,
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert job: %w", err)
	}
	r.logger.InfoContext(ctx, "job upserted", "job_id", saved.ID, "job_name", saved.Name)
	return saved, nil
}
