package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/mmk-task-service/config"
)

// envFileVar names a comma separated list of dotenv files to load instead of
// the default ".env". Files named there must exist.
const envFileVar = "ENV_FILE"

// InitLogger installs the process-wide logger: JSON at info in production,
// text at debug when DEV or APP_ENV asks for it.
func InitLogger() *slog.Logger {
	logger := newLogger(os.Stdout, isDevEnvironment())
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, dev bool) *slog.Logger {
	if !dev {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func isDevEnvironment() bool {
	if dev := strings.ToLower(os.Getenv("DEV")); dev == "1" || dev == "true" {
		return true
	}
	appEnv := os.Getenv("APP_ENV")
	return appEnv == "development" || appEnv == "dev"
}

// LoadConfig reads dotenv files (if any) and then the environment.
func LoadConfig() (config.AppConfig, error) {
	if err := loadDotenv(os.Getenv(envFileVar)); err != nil {
		return config.AppConfig{}, err
	}
	cfg, err := env.ParseAs[config.AppConfig]()
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// loadDotenv never overrides variables already set in the environment.
func loadDotenv(files string) error {
	if strings.TrimSpace(files) == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env file: %w", err)
		}
		return nil
	}

	var paths []string
	for p := range strings.SplitSeq(files, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load %s: %w", envFileVar, err)
	}
	return nil
}

// ValidateServiceConfig rejects configs the service cannot start with. All
// problems are reported together.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}

	var errs []error
	services, err := cfg.GetEnabledServices()
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid service configuration: %w", err))
	case len(services) == 0:
		errs = append(errs, errors.New("no services enabled"))
	}
	if _, err := cfg.Scheduler.LoadLocation(); err != nil {
		errs = append(errs, err)
	}
	if gw := cfg.Dispatch.GatewayURL; gw != "" {
		if u, err := url.Parse(gw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid dispatch gateway url %q", gw))
		}
	}
	return errors.Join(errs...)
}

// GetEnabledServices lists enabled modes in startup order. An invalid service
// list yields nothing; ValidateServiceConfig reports it.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return []string{}
	}

	names := make([]string, 0, len(services))
	for _, mode := range config.ValidServiceModes() {
		if services[mode] {
			names = append(names, string(mode))
		}
	}
	return names
}
