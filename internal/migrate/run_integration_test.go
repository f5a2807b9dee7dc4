package migrate_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-task-service/internal/testutil"
)

func TestSchema_JobDeleteKeepsHistory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()

		_, err := db.ExecContext(ctx,
			`INSERT INTO jobs (id, name, app_module_code, api_path, method_name) VALUES ($1, $2, $3, $4, $5)`,
			"job-1", "nightly", "crm", "reports", "build")
		require.NoError(t, err)
		_, err = db.ExecContext(ctx,
			`INSERT INTO job_histories (id, job_id, start_time, successful) VALUES ($1, $2, now(), true)`,
			"hist-1", "job-1")
		require.NoError(t, err)

		_, err = db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, "job-1")
		var pgErr *pgconn.PgError
		require.True(t, errors.As(err, &pgErr), "expected a postgres error, got %v", err)
		assert.Equal(t, pgerrcode.ForeignKeyViolation, pgErr.Code)

		var remaining int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT count(*) FROM job_histories WHERE job_id = $1`, "job-1").Scan(&remaining))
		assert.Equal(t, 1, remaining)
	})
}
