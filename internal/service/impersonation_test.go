package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-task-service/internal/domain/model"
	"github.com/target/mmk-task-service/internal/mocks"
)

func TestImpersonator_ResolveIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defaults := mocks.NewMockTenantDefaults(ctrl)
	imp := NewImpersonator(ImpersonatorOptions{Defaults: defaults})

	id, ok := imp.ResolveIdentity(" t1 ", " alice ")
	require.True(t, ok)
	assert.Equal(t, model.Identity{TenantCode: "t1", Account: "alice"}, id)

	defaults.EXPECT().DefaultIdentity().Return(model.Identity{TenantCode: "d", Account: "root"})
	id, ok = imp.ResolveIdentity("t1", "")
	require.True(t, ok)
	assert.Equal(t, "root", id.Account)

	defaults.EXPECT().DefaultIdentity().Return(model.Identity{Account: "root"})
	_, ok = imp.ResolveIdentity("", "")
	assert.False(t, ok)

	_, ok = NewImpersonator(ImpersonatorOptions{}).ResolveIdentity("", "bob")
	assert.False(t, ok)
}

func TestImpersonator_DefaultsReadOnEveryCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	defaults := mocks.NewMockTenantDefaults(ctrl)
	imp := NewImpersonator(ImpersonatorOptions{Defaults: defaults})

	gomock.InOrder(
		defaults.EXPECT().DefaultIdentity().Return(model.Identity{TenantCode: "a", Account: "x"}),
		defaults.EXPECT().DefaultIdentity().Return(model.Identity{TenantCode: "b", Account: "y"}),
	)

	first, _ := imp.ResolveIdentity("", "")
	second, _ := imp.ResolveIdentity("", "")
	assert.Equal(t, "a", first.TenantCode)
	assert.Equal(t, "b", second.TenantCode)
}

func TestImpersonationScope_ReleaseOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	imp := NewImpersonator(ImpersonatorOptions{Provider: provider})

	id := model.Identity{TenantCode: "t", Account: "a"}
	session := model.Identity{TenantCode: "t", Account: "a", SessionToken: "tok"}
	provider.EXPECT().Impersonate(gomock.Any(), id).Return(session, nil)
	provider.EXPECT().Release(gomock.Any(), session).Return(errors.New("redis gone")).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	scope, err := imp.Establish(ctx, "t", "a")
	require.NoError(t, err)

	got, active := scope.Identity()
	assert.True(t, active)
	assert.Equal(t, session, got)

	ctxID, ok := model.IdentityFromContext(scope.Context())
	require.True(t, ok)
	assert.Equal(t, "tok", ctxID.SessionToken)

	cancel()
	scope.Release()
	scope.Release()
}

func TestImpersonator_NoopScope(t *testing.T) {
	imp := NewImpersonator(ImpersonatorOptions{})
	ctx := context.Background()

	scope, err := imp.Establish(ctx, "", "")
	require.NoError(t, err)
	_, active := scope.Identity()
	assert.False(t, active)
	assert.Equal(t, ctx, scope.Context())
	assert.NotPanics(t, scope.Release)

	var nilScope *ImpersonationScope
	assert.NotPanics(t, nilScope.Release)
}

func TestImpersonator_ProviderError(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	imp := NewImpersonator(ImpersonatorOptions{Provider: provider})

	boom := errors.New("boom")
	provider.EXPECT().Impersonate(gomock.Any(), gomock.Any()).Return(model.Identity{}, boom)

	scope, err := imp.Establish(context.Background(), "t", "a")
	assert.Nil(t, scope)
	assert.ErrorIs(t, err, boom)
}
