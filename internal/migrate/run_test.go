package migrate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions_SortedAndEmbedded(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_jobs", "0002_job_histories", "0003_job_histories_restrict_delete"}, versions)
}

func TestRun_AppliesOnlyPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("0001_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("0002_job_histories").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("0003_job_histories_restrict_delete").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS job_histories").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("0002_job_histories").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, Run(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("0001_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("0002_job_histories").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("0003_job_histories_restrict_delete").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS jobs").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = Run(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec migration 0001_jobs")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPending_LedgerFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnError(errors.New("permission denied"))

	_, err = Pending(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create schema_migrations table")
}

func TestMigrations_HistoryRowsNeverCascade(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)

	for _, version := range versions {
		body, readErr := migrationsFS.ReadFile("migrations/" + version + ".sql")
		require.NoError(t, readErr)
		assert.NotContains(t, strings.ToUpper(string(body)), "ON DELETE CASCADE", version)
	}

	last, err := migrationsFS.ReadFile("migrations/" + versions[len(versions)-1] + ".sql")
	require.NoError(t, err)
	assert.Contains(t, string(last), "ON DELETE RESTRICT")
}
