package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-task-service/internal/domain/model"
	"github.com/target/mmk-task-service/internal/mocks"
	"github.com/target/mmk-task-service/internal/testutil"
)

func newTestScheduler(t *testing.T) (*SchedulerService, *mocks.MockJobRepository, *mocks.MockJobRunner) {
	t.Helper()
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockJobRepository(ctrl)
	runner := mocks.NewMockJobRunner(ctrl)

	svc, err := NewSchedulerService(SchedulerServiceOptions{
		Deps: SchedulerServiceDeps{Jobs: jobs, Runner: runner},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})
	return svc, jobs, runner
}

func TestNewSchedulerService_RequiresDeps(t *testing.T) {
	_, err := NewSchedulerService(SchedulerServiceOptions{})
	require.Error(t, err)

	ctrl := gomock.NewController(t)
	_, err = NewSchedulerService(SchedulerServiceOptions{
		Deps: SchedulerServiceDeps{Jobs: mocks.NewMockJobRepository(ctrl)},
	})
	require.Error(t, err)
}

func TestValidateCronExpression(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "five fields", expr: "*/5 * * * *"},
		{name: "six fields with seconds", expr: "0 30 2 * * *"},
		{name: "descriptor", expr: "@hourly"},
		{name: "every", expr: "@every 10m"},
		{name: "question mark", expr: "0 0 12 ? * MON-FRI"},
		{name: "empty", expr: "  ", wantErr: true},
		{name: "garbage", expr: "not a cron", wantErr: true},
		{name: "out of range", expr: "0 61 * * *", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCronExpression(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSchedulerService_Sync(t *testing.T) {
	svc, jobs, _ := newTestScheduler(t)
	ctx := context.Background()

	a := testutil.NewJob().WithID("a").Scheduled("@hourly").Build()
	b := testutil.NewJob().WithID("b").Scheduled("*/5 * * * *").Build()
	bad := testutil.NewJob().WithID("bad").Scheduled("every tuesday").Build()

	jobs.EXPECT().ListSchedulable(gomock.Any()).Return([]*model.Job{a, b, bad}, nil)
	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Scheduled: 2, Added: 2, Invalid: 1}, res)
	assert.True(t, res.Changed())

	// Unchanged expressions keep their entries.
	jobs.EXPECT().ListSchedulable(gomock.Any()).Return([]*model.Job{a, b}, nil)
	res, err = svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Scheduled: 2}, res)
	assert.False(t, res.Changed())

	// b is rescheduled and a is no longer schedulable.
	b2 := testutil.NewJob().WithID("b").Scheduled("@daily").Build()
	jobs.EXPECT().ListSchedulable(gomock.Any()).Return([]*model.Job{b2}, nil)
	res, err = svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Scheduled: 1, Updated: 1, Removed: 1}, res)
}

func TestSchedulerService_SyncSkipsUnschedulable(t *testing.T) {
	svc, jobs, _ := newTestScheduler(t)

	paused := testutil.NewJob().WithID("p").Scheduled("@hourly").WithState(model.JobStatePaused).Build()
	noCron := testutil.NewJob().WithID("n").WithState(model.JobStateNormal).Build()

	jobs.EXPECT().ListSchedulable(gomock.Any()).Return([]*model.Job{paused, noCron, nil}, nil)
	res, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, res)
}

func TestSchedulerService_SyncRepositoryError(t *testing.T) {
	svc, jobs, _ := newTestScheduler(t)
	boom := errors.New("db down")

	jobs.EXPECT().ListSchedulable(gomock.Any()).Return(nil, boom)
	_, err := svc.Sync(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSchedulerService_TriggerBeforeStart(t *testing.T) {
	svc, jobs, _ := newTestScheduler(t)
	job := testutil.NewJob().Build()

	jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	err := svc.Trigger(context.Background(), job.ID)
	require.ErrorIs(t, err, ErrSchedulerNotStarted)
}

func TestSchedulerService_TriggerAfterStop(t *testing.T) {
	svc, jobs, _ := newTestScheduler(t)
	svc.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))

	job := testutil.NewJob().Build()
	jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	err := svc.Trigger(context.Background(), job.ID)
	require.ErrorIs(t, err, ErrSchedulerStopped)
}

func TestSchedulerService_SyncDropsIdleSlots(t *testing.T) {
	svc, jobs, _ := newTestScheduler(t)
	ctx := context.Background()

	a := testutil.NewJob().WithID("a").Scheduled("@hourly").Build()
	b := testutil.NewJob().WithID("b").Scheduled("@daily").Build()

	jobs.EXPECT().ListSchedulable(gomock.Any()).Return([]*model.Job{a, b}, nil)
	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	jobs.EXPECT().ListSchedulable(gomock.Any()).Return([]*model.Job{b}, nil)
	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.NotContains(t, svc.slots, "a")
	assert.Contains(t, svc.slots, "b")
}

func TestSchedulerService_SyncKeepsBusySlot(t *testing.T) {
	svc, jobs, runner := newTestScheduler(t)
	svc.Start(context.Background())

	job := testutil.NewJob().WithID("busy").Build()
	jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, *model.Job) {
		close(started)
		<-release
	})

	require.NoError(t, svc.Trigger(context.Background(), job.ID))
	<-started

	jobs.EXPECT().ListSchedulable(gomock.Any()).Return(nil, nil)
	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	svc.mu.Lock()
	_, kept := svc.slots["busy"]
	svc.mu.Unlock()
	assert.True(t, kept, "a slot with a running job keeps its single-flight guard")

	close(release)
}

func TestSchedulerService_TriggerUnknownJob(t *testing.T) {
	svc, jobs, _ := newTestScheduler(t)
	svc.Start(context.Background())

	notFound := errors.New("job not found")
	jobs.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, notFound)
	err := svc.Trigger(context.Background(), "missing")
	require.ErrorIs(t, err, notFound)
}

func TestSchedulerService_TriggerRunsJobCopy(t *testing.T) {
	svc, jobs, runner := newTestScheduler(t)
	svc.Start(context.Background())

	job := testutil.NewJob().WithParams(`{"day":"2024-01-01"}`).Build()
	jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)

	done := make(chan *model.Job, 1)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, got *model.Job) {
		done <- got
	})

	require.NoError(t, svc.Trigger(context.Background(), job.ID))

	select {
	case got := <-done:
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, job.InputParam, got.InputParam)
		assert.NotSame(t, job, got)
	case <-time.After(2 * time.Second):
		t.Fatal("triggered job did not run")
	}
}

func TestSchedulerService_TriggerIsSingleFlight(t *testing.T) {
	svc, jobs, runner := newTestScheduler(t)
	svc.Start(context.Background())

	job := testutil.NewJob().Build()
	jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil).Times(2)

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var running, overlap atomic.Int32
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, *model.Job) {
		if running.Add(1) > 1 {
			overlap.Add(1)
		}
		started <- struct{}{}
		<-release
		running.Add(-1)
	}).Times(2)

	require.NoError(t, svc.Trigger(context.Background(), job.ID))
	<-started
	require.NoError(t, svc.Trigger(context.Background(), job.ID))

	select {
	case <-started:
		t.Fatal("second run started while the first was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("queued run did not start after the first finished")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))
	assert.Equal(t, int32(0), overlap.Load())
}

func TestSchedulerService_CronFiresJob(t *testing.T) {
	svc, jobs, runner := newTestScheduler(t)

	job := testutil.NewJob().Scheduled("@every 1s").Build()
	jobs.EXPECT().ListSchedulable(gomock.Any()).Return([]*model.Job{job}, nil)

	fired := make(chan string, 4)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, got *model.Job) {
		select {
		case fired <- got.ID:
		default:
		}
	}).MinTimes(1)

	_, err := svc.Sync(context.Background())
	require.NoError(t, err)
	svc.Start(context.Background())

	next, ok := svc.NextRun(job.ID)
	require.True(t, ok)
	assert.False(t, next.IsZero())

	select {
	case id := <-fired:
		assert.Equal(t, job.ID, id)
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled job did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))
}

func TestSchedulerService_RunTimeoutBoundsContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockJobRepository(ctrl)
	runner := mocks.NewMockJobRunner(ctrl)
	svc, err := NewSchedulerService(SchedulerServiceOptions{
		Deps:       SchedulerServiceDeps{Jobs: jobs, Runner: runner},
		RunTimeout: time.Minute,
	})
	require.NoError(t, err)
	svc.Start(context.Background())

	job := testutil.NewJob().Build()
	jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)

	hasDeadline := make(chan bool, 1)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ *model.Job) {
		_, ok := ctx.Deadline()
		hasDeadline <- ok
	})

	require.NoError(t, svc.Trigger(context.Background(), job.ID))
	select {
	case ok := <-hasDeadline:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("triggered job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))
}

func TestSchedulerService_NextRunUnknownJob(t *testing.T) {
	svc, _, _ := newTestScheduler(t)
	_, ok := svc.NextRun("nope")
	assert.False(t, ok)
}
