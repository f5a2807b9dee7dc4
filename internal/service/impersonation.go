package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/domain/model"
)

// ImpersonatorOptions groups dependencies for Impersonator.
type ImpersonatorOptions struct {
	Provider core.IdentityProvider // Optional: opens sessions; nil carries the identity in context only
	Defaults core.TenantDefaults   // Optional: fallback identity, read on every call
	Logger   *slog.Logger          // Optional: structured logger
}

// Impersonator resolves the identity a job runs as and opens a scope for it.
type Impersonator struct {
	provider core.IdentityProvider
	defaults core.TenantDefaults
	logger   *slog.Logger
}

// NewImpersonator constructs an Impersonator.
func NewImpersonator(opts ImpersonatorOptions) *Impersonator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Impersonator{
		provider: opts.Provider,
		defaults: opts.Defaults,
		logger:   logger.With("component", "impersonator"),
	}
}

// ResolveIdentity picks the job's own identity when both parts are set, then
// the configured default, and reports false when neither is complete.
func (i *Impersonator) ResolveIdentity(tenantCode, account string) (model.Identity, bool) {
	own := model.Identity{TenantCode: strings.TrimSpace(tenantCode), Account: strings.TrimSpace(account)}
	if own.Complete() {
		return own, true
	}
	if i == nil || i.defaults == nil {
		return model.Identity{}, false
	}
	def := i.defaults.DefaultIdentity()
	if def.Complete() {
		return def, true
	}
	return model.Identity{}, false
}

// Establish opens an impersonation scope. The returned scope must be released
// exactly once by the caller; Release is idempotent. When no identity can be
// resolved the scope is a no-op carrying the caller's context unchanged.
func (i *Impersonator) Establish(ctx context.Context, tenantCode, account string) (*ImpersonationScope, error) {
	id, ok := i.ResolveIdentity(tenantCode, account)
	if !ok {
		return &ImpersonationScope{ctx: ctx}, nil
	}

	if i.provider != nil {
		session, err := i.provider.Impersonate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("impersonate %s@%s: %w", id.Account, id.TenantCode, err)
		}
		id = session
	}

	scope := &ImpersonationScope{
		ctx:      model.ContextWithIdentity(ctx, id),
		identity: id,
		active:   true,
	}
	if i.provider != nil {
		provider := i.provider
		logger := i.logger
		scope.release = func(ctx context.Context) {
			if err := provider.Release(ctx, id); err != nil {
				logger.WarnContext(ctx, "failed to release impersonation session",
					"tenant_code", id.TenantCode,
					"account", id.Account,
					"error", err,
				)
			}
		}
	}
	return scope, nil
}

// ImpersonationScope is the acting identity for a single job execution.
type ImpersonationScope struct {
	ctx      context.Context
	identity model.Identity
	active   bool
	release  func(ctx context.Context)
	once     sync.Once
}

// Context returns the context carrying the acting identity.
func (s *ImpersonationScope) Context() context.Context {
	return s.ctx
}

// Identity returns the acting identity and whether impersonation is in effect.
func (s *ImpersonationScope) Identity() (model.Identity, bool) {
	return s.identity, s.active
}

// Release ends the impersonation. It runs even when the scope's context has
// been cancelled and is safe to call more than once.
func (s *ImpersonationScope) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.release != nil {
			s.release(context.WithoutCancel(s.ctx))
		}
	})
}
