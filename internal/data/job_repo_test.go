package data

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-task-service/internal/domain/model"
)

var jobColumnNames = []string{
	"id", "name", "app_module_code", "api_path", "method_name", "input_param", "async_exe",
	"exe_tenant_code", "exe_account", "cron_expression", "state", "remark", "created_at", "updated_at",
}

func newMockJobRepo(t *testing.T) (*JobRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := NewJobRepo(db, RepoConfig{
		TimeProvider: NewFixedTimeProvider(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
	})
	return repo, mock
}

func addJobRow(rows *sqlmock.Rows, id, name, state, cronExpr string) *sqlmock.Rows {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, name, "billing", "report", "run", `{"a":1}`, false,
		"t1", "admin", cronExpr, state, "", ts, ts,
	)
}

func TestJobRepo_GetByID(t *testing.T) {
	repo, mock := newMockJobRepo(t)

	mock.ExpectQuery(`FROM jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(addJobRow(sqlmock.NewRows(jobColumnNames), "job-1", "nightly", "NORMAL", "0 0 * * *"))

	job, err := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, "nightly", job.Name)
	assert.Equal(t, model.JobStateNormal, job.State)
	assert.Equal(t, `{"a":1}`, job.InputParam)
	assert.Equal(t, "report/run", job.Path())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepo_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockJobRepo(t)

	mock.ExpectQuery(`FROM jobs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobRepo_GetByID_Validation(t *testing.T) {
	repo, _ := newMockJobRepo(t)
	_, err := repo.GetByID(context.Background(), "  ")
	require.ErrorIs(t, err, ErrJobIDRequired)

	var nilRepo *JobRepo
	_, err = nilRepo.GetByID(context.Background(), "x")
	require.ErrorIs(t, err, ErrJobRepoNotConfigured)
}

func TestJobRepo_GetByID_InvalidState(t *testing.T) {
	repo, mock := newMockJobRepo(t)

	mock.ExpectQuery(`FROM jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(addJobRow(sqlmock.NewRows(jobColumnNames), "job-1", "nightly", "RUNNING", ""))

	_, err := repo.GetByID(context.Background(), "job-1")
	require.ErrorIs(t, err, ErrInvalidJobState)
}

func TestBuildJobListQuery(t *testing.T) {
	state := model.JobStatePaused

	tests := []struct {
		name      string
		opts      model.ListJobsOptions
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "defaults",
			opts:      model.ListJobsOptions{},
			wantWhere: "WHERE 1=1 ORDER BY name ASC, id ASC LIMIT $1 OFFSET $2",
			wantArgs:  []any{defaultJobListLimit, 0},
		},
		{
			name:      "state and module",
			opts:      model.ListJobsOptions{State: &state, AppModuleCode: " billing ", Limit: 5, Offset: 10},
			wantWhere: "WHERE 1=1 AND state = $1 AND app_module_code = $2 ORDER BY name ASC, id ASC LIMIT $3 OFFSET $4",
			wantArgs:  []any{"PAUSED", "billing", 5, 10},
		},
		{
			name:      "clamps limit",
			opts:      model.ListJobsOptions{Limit: 5000, Offset: -3},
			wantWhere: "WHERE 1=1 ORDER BY name ASC, id ASC LIMIT $1 OFFSET $2",
			wantArgs:  []any{maxJobListLimit, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildJobListQuery(tt.opts)
			assert.Contains(t, query, "FROM jobs "+tt.wantWhere)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestJobRepo_List(t *testing.T) {
	repo, mock := newMockJobRepo(t)
	state := model.JobStateNormal

	rows := sqlmock.NewRows(jobColumnNames)
	addJobRow(rows, "a", "alpha", "NORMAL", "@hourly")
	addJobRow(rows, "b", "beta", "NORMAL", "")
	mock.ExpectQuery(`FROM jobs WHERE 1=1 AND state = \$1`).
		WithArgs("NORMAL", 2, 0).
		WillReturnRows(rows)

	jobs, err := repo.List(context.Background(), model.ListJobsOptions{State: &state, Limit: 2})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "alpha", jobs[0].Name)
	assert.Equal(t, "beta", jobs[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepo_List_RejectsUnknownState(t *testing.T) {
	repo, _ := newMockJobRepo(t)
	state := model.JobState("RUNNING")

	_, err := repo.List(context.Background(), model.ListJobsOptions{State: &state})
	require.ErrorIs(t, err, ErrInvalidJobState)
}

func TestJobRepo_ListSchedulable(t *testing.T) {
	repo, mock := newMockJobRepo(t)

	mock.ExpectQuery(`WHERE state = \$1 AND btrim\(cron_expression\) <> ''`).
		WithArgs("NORMAL").
		WillReturnRows(addJobRow(sqlmock.NewRows(jobColumnNames), "a", "alpha", "NORMAL", "0 */5 * * * *"))

	jobs, err := repo.ListSchedulable(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].Schedulable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepo_ListSchedulable_QueryError(t *testing.T) {
	repo, mock := newMockJobRepo(t)

	mock.ExpectQuery(`FROM jobs`).WillReturnError(errors.New("connection reset"))

	_, err := repo.ListSchedulable(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query jobs")
}

func TestJobRepo_Upsert_AssignsIDAndDefaults(t *testing.T) {
	repo, mock := newMockJobRepo(t)
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	job := &model.Job{Name: "seeded", AppModuleCode: "billing", APIPath: "report", MethodName: "run"}
	mock.ExpectQuery(`INSERT INTO jobs`).
		WithArgs(sqlmock.AnyArg(), "seeded", "billing", "report", "run", "", false, "", "", "", "NONE", "", now).
		WillReturnRows(sqlmock.NewRows(jobColumnNames).AddRow(
			"generated", "seeded", "billing", "report", "run", "", false, "", "", "", "NONE", "", now, now,
		))

	saved, err := repo.Upsert(context.Background(), job)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "generated", saved.ID)
	assert.Equal(t, model.JobStateNone, saved.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepo_Upsert_InvalidState(t *testing.T) {
	repo, _ := newMockJobRepo(t)
	_, err := repo.Upsert(context.Background(), &model.Job{Name: "x", State: "WHATEVER"})
	require.ErrorIs(t, err, ErrInvalidJobState)
}

func TestClockOrSystem(t *testing.T) {
	assert.WithinDuration(t, time.Now(), clockOrSystem(nil).Now(), time.Second)

	fixed := NewFixedTimeProvider(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	assert.Same(t, fixed, clockOrSystem(fixed))
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), fixed.Advance(time.Hour))
	assert.Equal(t, fixed.Now(), clockOrSystem(fixed).Now())
}
