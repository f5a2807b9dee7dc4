package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTestDBConfig(t *testing.T) {
	tcs := []struct {
		name string
		env  map[string]string
		want TestDBConfig
	}{
		{
			name: "local defaults",
			want: TestDBConfig{Host: "localhost", Port: "55432", User: "tasks", Password: "tasks", DBName: "tasks"},
		},
		{
			name: "ci overrides",
			env: map[string]string{
				"TEST_DB_HOST": "postgres",
				"TEST_DB_PORT": "5432",
				"TEST_DB_NAME": "tasks_ci",
			},
			want: TestDBConfig{Host: "postgres", Port: "5432", User: "tasks", Password: "tasks", DBName: "tasks_ci"},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			for _, key := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
				t.Setenv(key, tc.env[key])
			}
			assert.Equal(t, tc.want, DefaultTestDBConfig())
		})
	}
}

func TestTestDBConfigDSN(t *testing.T) {
	cfg := TestDBConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "tasks"}

	t.Setenv("DB_SSL_MODE", "")
	assert.Equal(t, "postgres://u:p@db:5432/tasks?sslmode=disable", cfg.DSN())

	t.Setenv("DB_SSL_MODE", "require")
	assert.Equal(t, "postgres://u:p@db:5432/tasks?sslmode=require", cfg.DSN())
}

func TestRequireInfraFlags(t *testing.T) {
	t.Setenv("TEST_REQUIRE_DB", "")
	t.Setenv("TEST_REQUIRE_REDIS", "")
	t.Setenv("TEST_REQUIRE_INFRA", "")
	assert.False(t, requireDB())
	assert.False(t, requireRedis())

	t.Setenv("TEST_REQUIRE_INFRA", "yes")
	assert.True(t, requireDB())
	assert.True(t, requireRedis())
}

func TestJobBuilder(t *testing.T) {
	job := NewJob().WithName("sync").Async().WithIdentity("t1", "admin").Scheduled("0 * * * *").Build()

	assert.Equal(t, "sync", job.Name)
	assert.True(t, job.AsyncExe)
	assert.Equal(t, "t1", job.ExeTenantCode)
	assert.Equal(t, "admin", job.ExeAccount)
	assert.True(t, job.Schedulable())
	assert.Equal(t, "report/run", job.Path())
}
