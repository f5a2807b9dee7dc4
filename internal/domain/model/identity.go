package model

import (
	"context"
	"strings"
)

// Identity is the tenant/account pair an execution acts as.
type Identity struct {
	TenantCode   string `json:"tenant_code"`
	Account      string `json:"account"`
	SessionToken string `json:"session_token,omitempty"`
}

// IsZero reports whether neither tenant nor account is set.
func (i Identity) IsZero() bool {
	return strings.TrimSpace(i.TenantCode) == "" && strings.TrimSpace(i.Account) == ""
}

// Complete reports whether both tenant and account are set.
func (i Identity) Complete() bool {
	return strings.TrimSpace(i.TenantCode) != "" && strings.TrimSpace(i.Account) != ""
}

type identityKey struct{}

// ContextWithIdentity returns a copy of ctx carrying id.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the acting identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
