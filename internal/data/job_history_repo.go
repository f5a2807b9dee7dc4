package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/data/pgxutil"
	"github.com/target/mmk-task-service/internal/domain/model"
)

const (
	defaultHistoryListLimit = 50
	maxHistoryListLimit     = 500
	defaultDeleteBatchSize  = 1000
)

// JobHistoryRepo persists job execution history rows.
type JobHistoryRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewJobHistoryRepo constructs a JobHistoryRepo.
func NewJobHistoryRepo(db *sql.DB, cfg RepoConfig) *JobHistoryRepo {
	tp := clockOrSystem(cfg.TimeProvider)
	return &JobHistoryRepo{DB: db, timeProvider: tp}
}

var _ core.JobHistoryRepository = (*JobHistoryRepo)(nil)

// jobHistoryRow mirrors the job_histories table; elapsed is stored in milliseconds.
type jobHistoryRow struct {
	ID               string    `db:"id"`
	JobID            string    `db:"job_id"`
	StartTime        time.Time `db:"start_time"`
	ElapsedMS        int64     `db:"elapsed_ms"`
	Successful       bool      `db:"successful"`
	Message          string    `db:"message"`
	ExceptionMessage string    `db:"exception_message"`
}

func (row jobHistoryRow) toModel() *model.JobHistory {
	return &model.JobHistory{
		ID:               row.ID,
		JobID:            row.JobID,
		StartTime:        row.StartTime,
		Elapsed:          time.Duration(row.ElapsedMS) * time.Millisecond,
		Successful:       row.Successful,
		Message:          row.Message,
		ExceptionMessage: row.ExceptionMessage,
	}
}

// Save inserts the history row in its own transaction. A missing parent job
// surfaces as ErrJobNotFound.
func (r *JobHistoryRepo) Save(ctx context.Context, history *model.JobHistory) error {
	if r == nil || r.DB == nil {
		return ErrJobHistoryNotConfigured
	}
	if history == nil {
		return ErrJobHistoryRequired
	}
	if strings.TrimSpace(history.JobID) == "" {
		return ErrJobIDRequired
	}
	if history.ID == "" {
		history.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO job_histories (
			id, job_id, start_time, elapsed_ms, successful, message, exception_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			_, execErr := tx.ExecContext(ctx, query,
				history.ID,
				history.JobID,
				history.StartTime.UTC(),
				history.ElapsedMillis(),
				history.Successful,
				history.Message,
				history.ExceptionMessage,
				r.timeProvider.Now().UTC(),
			)
			return execErr
		},
	})
	if err == nil {
		return nil
	}

	if pgxutil.PgErrorCode(err) == pgerrcode.ForeignKeyViolation {
		return fmt.Errorf("save job history for %s: %w", history.JobID, ErrJobNotFound)
	}
	return fmt.Errorf("save job history: %w", err)
}

// ListByJobID returns histories for a job, newest first.
func (r *JobHistoryRepo) ListByJobID(
	ctx context.Context,
	jobID string,
	limit, offset int,
) ([]*model.JobHistory, error) {
	if r == nil || r.DB == nil {
		return nil, ErrJobHistoryNotConfigured
	}
	if strings.TrimSpace(jobID) == "" {
		return nil, ErrJobIDRequired
	}
	if limit <= 0 {
		limit = defaultHistoryListLimit
	}
	if limit > maxHistoryListLimit {
		limit = maxHistoryListLimit
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
		SELECT id, job_id, start_time, elapsed_ms, successful, message, exception_message
		FROM job_histories
		WHERE job_id = $1
		ORDER BY start_time DESC, id DESC
		LIMIT $2 OFFSET $3`

	var out []*model.JobHistory
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, jobID, limit, offset)
		if err != nil {
			return fmt.Errorf("query job histories: %w", err)
		}
		defer rows.Close()

		vals, err := pgx.CollectRows(rows, pgx.RowToStructByName[jobHistoryRow])
		if err != nil {
			return fmt.Errorf("collect job histories: %w", err)
		}
		out = make([]*model.JobHistory, 0, len(vals))
		for _, v := range vals {
			out = append(out, v.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOlderThan removes at most one batch of histories whose start time is
// older than MaxAge and returns the number of rows deleted.
func (r *JobHistoryRepo) DeleteOlderThan(ctx context.Context, params core.DeleteHistoriesParams) (int64, error) {
	if r == nil || r.DB == nil {
		return 0, ErrJobHistoryNotConfigured
	}
	if params.MaxAge <= 0 {
		return 0, errors.New("max age must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultDeleteBatchSize
	}
	cutoff := r.timeProvider.Now().Add(-params.MaxAge).UTC()

	const query = `
		DELETE FROM job_histories
		WHERE id IN (
			SELECT id FROM job_histories
			WHERE start_time < $1
			ORDER BY start_time ASC
			LIMIT $2
		)`

	res, err := r.DB.ExecContext(ctx, query, cutoff, batch)
	if err != nil {
		return 0, fmt.Errorf("delete job histories: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
