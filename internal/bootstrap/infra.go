package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-task-service/config"
)

// Infrastructure holds the shared connections a process opened. Either field
// may be nil when it was not requested.
type Infrastructure struct {
	DB    *sql.DB
	Redis redis.UniversalClient
}

// InfraRequest selects which connections OpenInfrastructure establishes.
type InfraRequest struct {
	Postgres bool
	Redis    bool
}

// OpenInfrastructure connects the requested dependencies. On partial failure
// everything already opened is closed again.
func OpenInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	req InfraRequest,
	logger *slog.Logger,
) (*Infrastructure, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	deps := DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}
	infra := &Infrastructure{}

	if req.Postgres {
		db, err := ConnectDB(ctx, deps)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		infra.DB = db
	}

	if req.Redis {
		client, err := ConnectRedis(ctx, deps)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect redis: %w", err), infra.Close())
		}
		infra.Redis = client
	}

	return infra, nil
}

// Close releases every open connection and reports all failures.
func (i *Infrastructure) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
