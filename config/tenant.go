package config

import (
	"log/slog"
	"strings"

	env "github.com/caarlos0/env/v11"

	"github.com/target/mmk-task-service/internal/domain/model"
)

// TenantDefaultsConfig holds the fallback execution identity for jobs that do
// not name their own tenant and account.
type TenantDefaultsConfig struct {
	TenantCode string `env:"TASK_DEFAULT_TENANT_CODE"`
	Admin      string `env:"TASK_DEFAULT_TENANT_ADMIN"`
}

// EnvTenantDefaults reads TenantDefaultsConfig from the environment on every
// call so operators can rotate the fallback identity without a restart.
type EnvTenantDefaults struct {
	// Environment overrides the process environment when non-nil.
	Environment map[string]string
	Logger      *slog.Logger
}

// DefaultIdentity returns the current fallback identity, or the zero Identity
// when it cannot be read.
func (d *EnvTenantDefaults) DefaultIdentity() model.Identity {
	cfg, err := env.ParseAsWithOptions[TenantDefaultsConfig](env.Options{Environment: d.Environment})
	if err != nil {
		if d.Logger != nil {
			d.Logger.Warn("failed to read default tenant identity", "error", err)
		}
		return model.Identity{}
	}
	return model.Identity{
		TenantCode: strings.TrimSpace(cfg.TenantCode),
		Account:    strings.TrimSpace(cfg.Admin),
	}
}
