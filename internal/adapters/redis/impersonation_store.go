// Package redis provides Redis-backed adapters for impersonation sessions and manual job triggers.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-task-service/internal/core"
	"github.com/target/mmk-task-service/internal/domain/model"
)

const (
	defaultSessionPrefix = "task:impersonation:"
	defaultSessionTTL    = time.Hour
)

// ErrNotFound is returned when a session token is unknown or expired.
var ErrNotFound error = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "impersonation session not found" }

// ImpersonationStoreOptions configures an ImpersonationStore.
type ImpersonationStoreOptions struct {
	Client    redis.UniversalClient
	KeyPrefix string
	TTL       time.Duration
}

// ImpersonationStore opens impersonation sessions as Redis keys holding the
// acting identity. Keys expire after TTL so an unreleased session cannot outlive it.
type ImpersonationStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ core.IdentityProvider = (*ImpersonationStore)(nil)

type impersonationSession struct {
	TenantCode string    `json:"tenant_code"`
	Account    string    `json:"account"`
	IssuedAt   time.Time `json:"issued_at"`
}

// NewImpersonationStore creates a Redis-backed identity provider.
func NewImpersonationStore(opts ImpersonationStoreOptions) (*ImpersonationStore, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := opts.KeyPrefix
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultSessionPrefix
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &ImpersonationStore{client: opts.Client, prefix: prefix, ttl: ttl}, nil
}

// Impersonate opens a session for id and returns id with its session token set.
func (s *ImpersonationStore) Impersonate(ctx context.Context, id model.Identity) (model.Identity, error) {
	if !id.Complete() {
		return model.Identity{}, errors.New("impersonation requires tenant code and account")
	}

	data, err := json.Marshal(impersonationSession{
		TenantCode: id.TenantCode,
		Account:    id.Account,
		IssuedAt:   time.Now().UTC(),
	})
	if err != nil {
		return model.Identity{}, fmt.Errorf("marshal session: %w", err)
	}

	token := uuid.NewString()
	if err := s.client.Set(ctx, s.prefix+token, data, s.ttl).Err(); err != nil {
		return model.Identity{}, fmt.Errorf("redis set session: %w", err)
	}
	id.SessionToken = token
	return id, nil
}

// Release deletes the session behind id.SessionToken. Releasing an identity
// without a token is a no-op.
func (s *ImpersonationStore) Release(ctx context.Context, id model.Identity) error {
	if id.SessionToken == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.prefix+id.SessionToken).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// Lookup resolves a session token back to the identity it impersonates.
func (s *ImpersonationStore) Lookup(ctx context.Context, token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, ErrNotFound
	}
	data, err := s.client.Get(ctx, s.prefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Identity{}, ErrNotFound
		}
		return model.Identity{}, fmt.Errorf("redis get session: %w", err)
	}

	var sess impersonationSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return model.Identity{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return model.Identity{TenantCode: sess.TenantCode, Account: sess.Account, SessionToken: token}, nil
}
