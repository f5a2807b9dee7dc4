package main

import (
	"context"
	"time"

	"github.com/target/mmk-task-service/internal/bootstrap"
)

type infraRequest struct {
	Timeout   time.Duration
	WantDB    bool
	WantRedis bool
}

// withInfra connects the requested dependencies, runs f under a signal-aware
// timeout and closes everything afterwards.
func withInfra(cmdCtx *commandContext, req infraRequest, f func(context.Context, *bootstrap.Infrastructure) error) error {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	ctx, cancel := signalContext(cmdCtx.Ctx, timeout)
	defer cancel()

	deps, err := bootstrap.OpenInfrastructure(ctx, &cmdCtx.Config, bootstrap.InfraRequest{
		Postgres: req.WantDB,
		Redis:    req.WantRedis,
	}, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("close infrastructure failed", "error", closeErr)
		}
	}()

	return f(ctx, deps)
}
