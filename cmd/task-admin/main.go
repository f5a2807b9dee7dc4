package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/target/mmk-task-service/config"
	"github.com/target/mmk-task-service/internal/adapters/reaper"
	"github.com/target/mmk-task-service/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 30 * time.Second
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		if errors.Is(runErr, flag.ErrHelp) {
			return
		}
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"list-jobs": {
			name:        "list-jobs",
			description: "List job definitions, optionally filtered by state or module",
			run:         runListJobs,
		},
		"job-history": {
			name:        "job-history",
			description: "Show recent execution history for a job",
			run:         runJobHistory,
		},
		"trigger": {
			name:        "trigger",
			description: "Ask the running scheduler to execute a job now",
			run:         runTrigger,
		},
		"seed-job": {
			name:        "seed-job",
			description: "Create or replace a job definition",
			run:         runSeedJob,
		},
		"reap": {
			name:        "reap",
			description: "Delete job history older than the configured retention once",
			run:         runReap,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: task-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-16s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

type migrateOptions struct {
	Timeout time.Duration
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withInfra(cmdCtx, infraRequest{Timeout: opts.Timeout, WantDB: true}, func(ctx context.Context, deps *bootstrap.Infrastructure) error {
		cmdCtx.Logger.Info("running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, deps.DB, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}
		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{}
	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete",
	)

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}

	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

type reapOptions struct {
	Timeout time.Duration
	MaxAge  time.Duration
}

func runReap(cmdCtx *commandContext, args []string) error {
	opts, err := parseReapFlags(args, cmdCtx.Config.Reaper.HistoryMaxAge)
	if err != nil {
		return err
	}

	return withInfra(cmdCtx, infraRequest{Timeout: opts.Timeout, WantDB: true}, func(ctx context.Context, deps *bootstrap.Infrastructure) error {
		reaperCfg := cmdCtx.Config.Reaper
		reaperCfg.HistoryMaxAge = opts.MaxAge

		runner, err := reaper.NewRunner(reaper.RunnerOptions{
			DB:     deps.DB,
			Config: reaperCfg,
			Logger: cmdCtx.Logger,
		})
		if err != nil {
			return fmt.Errorf("create reaper: %w", err)
		}

		deleted, err := runner.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("reap job history: %w", err)
		}
		return writef(cmdCtx.Out, "deleted %d job history rows older than %s\n", deleted, opts.MaxAge)
	})
}

func parseReapFlags(args []string, defaultMaxAge time.Duration) (reapOptions, error) {
	fs := flag.NewFlagSet("reap", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := reapOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "Maximum duration for the cleanup")
	fs.DurationVar(&opts.MaxAge, "max-age", defaultMaxAge, "Delete history rows older than this")

	if err := fs.Parse(args); err != nil {
		return reapOptions{}, err
	}
	if opts.Timeout <= 0 {
		return reapOptions{}, errors.New("--timeout must be greater than zero")
	}
	if opts.MaxAge <= 0 {
		return reapOptions{}, errors.New("--max-age must be greater than zero")
	}
	return opts, nil
}

// signalContext bounds a command by timeout and cancels it on SIGINT/SIGTERM.
func signalContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
