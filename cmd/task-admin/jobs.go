package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	redisadapter "github.com/target/mmk-task-service/internal/adapters/redis"
	"github.com/target/mmk-task-service/internal/bootstrap"
	"github.com/target/mmk-task-service/internal/data"
	"github.com/target/mmk-task-service/internal/domain/model"
	"github.com/target/mmk-task-service/internal/service"
)

type listJobsOptions struct {
	State  *model.JobState
	Module string
	Limit  int
	Offset int
}

func runListJobs(cmdCtx *commandContext, args []string) error {
	opts, err := parseListJobsFlags(args)
	if err != nil {
		return err
	}

	return withInfra(cmdCtx, infraRequest{WantDB: true}, func(ctx context.Context, deps *bootstrap.Infrastructure) error {
		repo := data.NewJobRepo(deps.DB, data.RepoConfig{Logger: cmdCtx.Logger})
		jobs, err := repo.List(ctx, model.ListJobsOptions{
			State:         opts.State,
			AppModuleCode: opts.Module,
			Limit:         opts.Limit,
			Offset:        opts.Offset,
		})
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		return renderJobs(cmdCtx.Out, jobs)
	})
}

func parseListJobsFlags(args []string) (listJobsOptions, error) {
	fs := flag.NewFlagSet("list-jobs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var state string
	opts := listJobsOptions{}
	fs.StringVar(&state, "state", "", "Filter by state (NONE, NORMAL, PAUSED, COMPLETE, ERROR, BLOCKED)")
	fs.StringVar(&opts.Module, "module", "", "Filter by application module code")
	fs.IntVar(&opts.Limit, "limit", 100, "Maximum rows to print")
	fs.IntVar(&opts.Offset, "offset", 0, "Rows to skip")

	if err := fs.Parse(args); err != nil {
		return listJobsOptions{}, err
	}

	if strings.TrimSpace(state) != "" {
		var s model.JobState
		if err := s.UnmarshalText([]byte(state)); err != nil {
			return listJobsOptions{}, fmt.Errorf("--state: %w", err)
		}
		opts.State = &s
	}
	if opts.Limit <= 0 {
		return listJobsOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return listJobsOptions{}, errors.New("--offset must not be negative")
	}
	opts.Module = strings.TrimSpace(opts.Module)
	return opts, nil
}

func renderJobs(out io.Writer, jobs []*model.Job) error {
	if len(jobs) == 0 {
		return writeln(out, "No jobs found.")
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "ID\tName\tModule\tPath\tCron\tState\tAsync"); err != nil {
		return fmt.Errorf("write jobs header: %w", err)
	}
	for _, job := range jobs {
		cron := job.CronExpression
		if cron == "" {
			cron = "-"
		}
		if err := writef(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			job.ID, job.Name, job.AppModuleCode, job.Path(), cron, job.State.Label(), job.AsyncExe,
		); err != nil {
			return fmt.Errorf("write job %s: %w", job.ID, err)
		}
	}
	return w.Flush()
}

type jobHistoryOptions struct {
	JobID string
	Limit int
}

func runJobHistory(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobHistoryFlags(args)
	if err != nil {
		return err
	}

	return withInfra(cmdCtx, infraRequest{WantDB: true}, func(ctx context.Context, deps *bootstrap.Infrastructure) error {
		repo := data.NewJobHistoryRepo(deps.DB, data.RepoConfig{Logger: cmdCtx.Logger})
		rows, err := repo.ListByJobID(ctx, opts.JobID, opts.Limit, 0)
		if err != nil {
			return fmt.Errorf("list job history: %w", err)
		}
		return renderHistories(cmdCtx.Out, rows)
	})
}

func parseJobHistoryFlags(args []string) (jobHistoryOptions, error) {
	fs := flag.NewFlagSet("job-history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := jobHistoryOptions{}
	fs.StringVar(&opts.JobID, "job", "", "Job ID (required)")
	fs.IntVar(&opts.Limit, "limit", 20, "Maximum rows to print")

	if err := fs.Parse(args); err != nil {
		return jobHistoryOptions{}, err
	}
	opts.JobID = strings.TrimSpace(opts.JobID)
	if opts.JobID == "" {
		return jobHistoryOptions{}, errors.New("--job is required")
	}
	if opts.Limit <= 0 {
		return jobHistoryOptions{}, errors.New("--limit must be greater than zero")
	}
	return opts, nil
}

func renderHistories(out io.Writer, rows []*model.JobHistory) error {
	if len(rows) == 0 {
		return writeln(out, "No executions recorded.")
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "Started\tElapsed\tResult\tMessage"); err != nil {
		return fmt.Errorf("write history header: %w", err)
	}
	for _, h := range rows {
		result := "ok"
		msg := h.Message
		if !h.Successful {
			result = "failed"
			if h.ExceptionMessage != "" {
				msg = h.ExceptionMessage
			}
		}
		if err := writef(w, "%s\t%s\t%s\t%s\n",
			h.StartTime.UTC().Format(time.RFC3339), h.Elapsed.Round(time.Millisecond), result, oneLine(msg, 80),
		); err != nil {
			return fmt.Errorf("write history %s: %w", h.ID, err)
		}
	}
	return w.Flush()
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-3]) + "..."
	}
	return s
}

func runTrigger(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("trigger", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jobID := fs.String("job", "", "Job ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id := strings.TrimSpace(*jobID)
	if id == "" {
		return errors.New("--job is required")
	}

	req := infraRequest{WantDB: true, WantRedis: true}
	return withInfra(cmdCtx, req, func(ctx context.Context, deps *bootstrap.Infrastructure) error {
		repo := data.NewJobRepo(deps.DB, data.RepoConfig{Logger: cmdCtx.Logger})
		if _, err := repo.GetByID(ctx, id); err != nil {
			return fmt.Errorf("load job %s: %w", id, err)
		}

		bus, err := redisadapter.NewTriggerBus(redisadapter.TriggerBusOptions{
			Client:  deps.Redis,
			Channel: cmdCtx.Config.Scheduler.TriggerChannel,
			Logger:  cmdCtx.Logger,
		})
		if err != nil {
			return err
		}
		if err := bus.PublishTrigger(ctx, id); err != nil {
			return fmt.Errorf("publish trigger: %w", err)
		}
		return writef(cmdCtx.Out, "trigger for job %s published on %s\n", id, cmdCtx.Config.Scheduler.TriggerChannel)
	})
}

func runSeedJob(cmdCtx *commandContext, args []string) error {
	job, err := parseSeedJobFlags(args)
	if err != nil {
		return err
	}

	return withInfra(cmdCtx, infraRequest{WantDB: true}, func(ctx context.Context, deps *bootstrap.Infrastructure) error {
		repo := data.NewJobRepo(deps.DB, data.RepoConfig{Logger: cmdCtx.Logger})
		saved, err := repo.Upsert(ctx, job)
		if err != nil {
			return fmt.Errorf("save job: %w", err)
		}
		return writef(cmdCtx.Out, "saved job %s (%s) state=%s\n", saved.ID, saved.Path(), saved.State)
	})
}

func parseSeedJobFlags(args []string) (*model.Job, error) {
	fs := flag.NewFlagSet("seed-job", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	job := &model.Job{}
	var state string
	fs.StringVar(&job.ID, "id", "", "Job ID; empty generates one")
	fs.StringVar(&job.Name, "name", "", "Display name (required)")
	fs.StringVar(&job.AppModuleCode, "module", "", "Application module code (required)")
	fs.StringVar(&job.APIPath, "api-path", "", "Remote API path, e.g. /reports (required)")
	fs.StringVar(&job.MethodName, "method", "", "Remote method name (required)")
	fs.StringVar(&job.InputParam, "params", "", "JSON object of input parameters")
	fs.BoolVar(&job.AsyncExe, "async", false, "Dispatch in the background")
	fs.StringVar(&job.ExeTenantCode, "tenant", "", "Tenant to execute as")
	fs.StringVar(&job.ExeAccount, "account", "", "Account to execute as")
	fs.StringVar(&job.CronExpression, "cron", "", "Cron expression (5 or 6 fields, or a descriptor)")
	fs.StringVar(&state, "state", string(model.JobStateNormal), "Initial state")
	fs.StringVar(&job.Remark, "remark", "", "Free-form remark")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := validateSeedJob(job, state); err != nil {
		return nil, err
	}
	return job, nil
}

func validateSeedJob(job *model.Job, state string) error {
	required := []struct {
		flag  string
		value *string
	}{
		{"name", &job.Name},
		{"module", &job.AppModuleCode},
		{"api-path", &job.APIPath},
		{"method", &job.MethodName},
	}
	for _, r := range required {
		*r.value = strings.TrimSpace(*r.value)
		if *r.value == "" {
			return fmt.Errorf("--%s is required", r.flag)
		}
	}

	if err := job.State.UnmarshalText([]byte(state)); err != nil {
		return fmt.Errorf("--state: %w", err)
	}

	job.CronExpression = strings.TrimSpace(job.CronExpression)
	if job.CronExpression != "" {
		if err := service.ValidateCronExpression(job.CronExpression); err != nil {
			return fmt.Errorf("--cron: %w", err)
		}
	} else if job.State == model.JobStateNormal {
		return errors.New("--cron is required for NORMAL jobs")
	}

	job.InputParam = strings.TrimSpace(job.InputParam)
	if job.InputParam != "" {
		if _, err := model.ParseParams(job.InputParam); err != nil {
			return fmt.Errorf("--params: %w", err)
		}
	}
	return nil
}
