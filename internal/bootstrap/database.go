package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-task-service/config"
	"github.com/target/mmk-task-service/internal/migrate"
)

const (
	connectAttempts    = 5
	connectBackoff     = 500 * time.Millisecond
	connectPingTimeout = 5 * time.Second
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// ConnectDB opens the Postgres pool and waits for the server to answer,
// retrying with backoff so the service can start alongside its database.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", postgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBConfig.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DBConfig.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConfig.ConnMaxLifetime)

	if pingErr := pingWithRetry(ctx, "postgres", cfg.Logger, db.PingContext); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
			"max_open_conns", cfg.DBConfig.MaxOpenConns,
		)
	}

	return db, nil
}

// postgresDSN builds a pgx URL; url.URL escapes special characters in credentials.
func postgresDSN(cfg config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	q.Set("application_name", "task-service")
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectRedis connects a standalone, sentinel or cluster client depending on cfg.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	opts, mode, err := redisUniversalOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}

	var client redis.UniversalClient
	switch mode {
	case redisModeCluster:
		client = redis.NewClusterClient(opts.Cluster())
	case redisModeSentinel:
		client = redis.NewFailoverClient(opts.Failover())
	default:
		client = redis.NewClient(opts.Simple())
	}

	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if pingErr := pingWithRetry(ctx, "redis", cfg.Logger, ping); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "redis connected", "mode", mode, "addrs", strings.Join(opts.Addrs, ","), "db", opts.DB)
	}

	return client, nil
}

type redisMode string

const (
	redisModeStandalone redisMode = "standalone"
	redisModeSentinel   redisMode = "sentinel"
	redisModeCluster    redisMode = "cluster"
)

// redisUniversalOptions folds the three deployment shapes into one option set.
// A redis:// or rediss:// URI contributes address, credentials, TLS and DB;
// explicit config fields fill whatever the URI leaves unset.
func redisUniversalOptions(cfg config.RedisConfig) (*redis.UniversalOptions, redisMode, error) {
	opts := &redis.UniversalOptions{
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	if uri := strings.TrimSpace(cfg.URI); uri != "" {
		if isRedisURL(uri) {
			parsed, err := redis.ParseURL(uri)
			if err != nil {
				return nil, "", fmt.Errorf("parse redis url: %w", err)
			}
			opts.Addrs = []string{parsed.Addr}
			opts.Username = parsed.Username
			opts.TLSConfig = parsed.TLSConfig
			if parsed.Password != "" {
				opts.Password = parsed.Password
			}
			if parsed.DB != 0 {
				opts.DB = parsed.DB
			}
		} else {
			opts.Addrs = []string{uri}
		}
	}

	switch {
	case cfg.UseCluster:
		if nodes := normalizeAddrs(cfg.ClusterNodes); len(nodes) > 0 {
			opts.Addrs = nodes
		}
		if len(opts.Addrs) == 0 {
			return nil, "", errors.New("redis cluster configuration requires at least one address")
		}
		// Cluster mode has a single keyspace.
		opts.DB = 0
		return opts, redisModeCluster, nil

	case cfg.UseSentinel:
		nodes := normalizeAddrs(cfg.SentinelNodes)
		if len(nodes) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		opts.Addrs = nodes
		opts.MasterName = cfg.SentinelMasterName
		opts.SentinelPassword = cfg.SentinelPassword
		return opts, redisModeSentinel, nil
	}

	if len(opts.Addrs) == 0 {
		return nil, "", errors.New("redis direct configuration requires a URI")
	}
	return opts, redisModeStandalone, nil
}

func normalizeAddrs(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}

// pingWithRetry calls ping until it succeeds, doubling the wait between
// attempts. Each attempt gets its own timeout.
func pingWithRetry(ctx context.Context, name string, logger *slog.Logger, ping func(context.Context) error) error {
	backoff := connectBackoff
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, connectPingTimeout)
		err = ping(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		if logger != nil {
			logger.WarnContext(ctx, "dependency not reachable yet; retrying",
				"dependency", name,
				"attempt", attempt,
				"retry_in", backoff,
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%s unreachable after %d attempts: %w", name, connectAttempts, err)
}

// RunMigrations applies pending embedded migrations and logs which versions ran.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	pending, err := migrate.Pending(ctx, db)
	if err != nil {
		return fmt.Errorf("check pending migrations: %w", err)
	}
	if len(pending) == 0 {
		if logger != nil {
			logger.InfoContext(ctx, "database schema is up to date")
		}
		return nil
	}

	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed", "applied", pending)
	}

	return nil
}
