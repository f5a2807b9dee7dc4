package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-task-service/internal/domain/model"
)

func TestPrintUsageListsCommandsSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	require.Contains(t, out, "Usage: task-admin")
	idxHistory := strings.Index(out, "job-history")
	idxMigrate := strings.Index(out, "migrate")
	idxTrigger := strings.Index(out, "trigger")
	require.Positive(t, idxHistory)
	assert.Less(t, idxHistory, idxMigrate)
	assert.Less(t, idxMigrate, idxTrigger)
}

func TestParseMigrateFlags(t *testing.T) {
	opts, err := parseMigrateFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	_, err = parseMigrateFlags([]string{"--timeout", "0s"})
	require.Error(t, err)
}

func TestParseReapFlags(t *testing.T) {
	opts, err := parseReapFlags([]string{"--max-age", "72h"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, opts.MaxAge)

	opts, err = parseReapFlags(nil, 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, opts.MaxAge)

	_, err = parseReapFlags([]string{"--max-age", "-1h"}, time.Hour)
	require.Error(t, err)
}

func TestParseListJobsFlags(t *testing.T) {
	opts, err := parseListJobsFlags([]string{"--state", "paused", "--module", " billing "})
	require.NoError(t, err)
	require.NotNil(t, opts.State)
	assert.Equal(t, model.JobStatePaused, *opts.State)
	assert.Equal(t, "billing", opts.Module)
	assert.Equal(t, 100, opts.Limit)

	_, err = parseListJobsFlags([]string{"--state", "asleep"})
	require.Error(t, err)

	_, err = parseListJobsFlags([]string{"--limit", "0"})
	require.Error(t, err)
}

func TestParseJobHistoryFlags_RequiresJob(t *testing.T) {
	_, err := parseJobHistoryFlags(nil)
	require.ErrorContains(t, err, "--job")

	opts, err := parseJobHistoryFlags([]string{"--job", "job-1", "--limit", "5"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", opts.JobID)
	assert.Equal(t, 5, opts.Limit)
}

func TestParseSeedJobFlags(t *testing.T) {
	job, err := parseSeedJobFlags([]string{
		"--name", "Nightly report",
		"--module", "reports",
		"--api-path", "/reports",
		"--method", "nightly",
		"--cron", "0 0 2 * * ?",
		"--params", `{"region":"us","limit":10}`,
		"--tenant", "acme",
		"--async",
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStateNormal, job.State)
	assert.Equal(t, "/reports/nightly", job.Path())
	assert.True(t, job.AsyncExe)
	assert.Equal(t, "acme", job.ExeTenantCode)
}

func TestParseSeedJobFlags_Rejects(t *testing.T) {
	base := []string{"--name", "n", "--module", "m", "--api-path", "/p", "--method", "run"}

	tests := []struct {
		name    string
		extra   []string
		wantErr string
	}{
		{name: "normal without cron", extra: nil, wantErr: "--cron"},
		{name: "bad cron", extra: []string{"--cron", "not a cron"}, wantErr: "--cron"},
		{name: "array params", extra: []string{"--cron", "@daily", "--params", `[1,2]`}, wantErr: "--params"},
		{name: "null param value", extra: []string{"--cron", "@daily", "--params", `{"a":null}`}, wantErr: "--params"},
		{name: "bad state", extra: []string{"--cron", "@daily", "--state", "SLEEPING"}, wantErr: "--state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(append([]string{}, base...), tt.extra...)
			_, err := parseSeedJobFlags(args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := parseSeedJobFlags([]string{"--module", "m"})
	require.ErrorContains(t, err, "--name")
}

func TestParseSeedJobFlags_PausedWithoutCron(t *testing.T) {
	job, err := parseSeedJobFlags([]string{
		"--name", "n", "--module", "m", "--api-path", "/p", "--method", "run", "--state", "paused",
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatePaused, job.State)
	assert.Empty(t, job.CronExpression)
}

func TestRenderJobs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderJobs(&buf, nil))
	assert.Equal(t, "No jobs found.\n", buf.String())

	buf.Reset()
	require.NoError(t, renderJobs(&buf, []*model.Job{{
		ID:             "job-1",
		Name:           "Nightly",
		AppModuleCode:  "reports",
		APIPath:        "/reports",
		MethodName:     "nightly",
		CronExpression: "@daily",
		State:          model.JobStateNormal,
	}}))
	out := buf.String()
	assert.Contains(t, out, "job-1")
	assert.Contains(t, out, "/reports/nightly")
	assert.Contains(t, out, "Normal")
}

func TestRenderHistories_ShowsFailureCause(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderHistories(&buf, []*model.JobHistory{{
		ID:               "h-1",
		StartTime:        time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC),
		Elapsed:          1234 * time.Millisecond,
		Message:          "remote said no",
		ExceptionMessage: "status 500:\nupstream exploded",
	}}))

	out := buf.String()
	assert.Contains(t, out, "2026-03-01T02:00:00Z")
	assert.Contains(t, out, "1.234s")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "status 500: upstream exploded")
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n b\tc", 80))
	assert.Equal(t, "abcde...", oneLine(strings.Repeat("abcde", 4), 8))
}
