package service

import (
	"context"
	"slotbook/cmd/internal/domain/entity"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ns, err := env.tenants.Resolve(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", ns.TenantID())
	assert.Equal(t, "acme_bookings", ns.Table("bookings"))

	_, err = env.tenants.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrTenantNotFound)
	_, err = env.tenants.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestResolveRejectsUnsafeNamespace(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.tenantRepo.Save(context.Background(), &entity.Tenant{
		ID: "evil", Name: "evil", Namespace: "x; DROP TABLE tenants", IsolationMode: entity.IsolationPrefix, Active: true,
	}))

	_, err := env.tenants.Resolve(context.Background(), "evil")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestResolveExpiredSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	expires := testNow.Add(time.Hour).UnixMilli()
	require.NoError(t, env.tenantRepo.Save(ctx, &entity.Tenant{
		ID: "trial", Name: "trial", Namespace: "trial", IsolationMode: entity.IsolationPrefix,
		Active: true, SubscriptionExpiresAt: &expires,
	}))

	_, err := env.tenants.Resolve(ctx, "trial")
	require.NoError(t, err)

	env.clock.now = testNow.Add(2 * time.Hour)
	_, err = env.tenants.Resolve(ctx, "trial")
	assert.ErrorIs(t, err, ErrTenantSuspended)
}

func TestSetActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.tenants.SetActive(ctx, "globex", false))
	_, err := env.tenants.Resolve(ctx, "globex")
	assert.ErrorIs(t, err, ErrTenantSuspended)

	active, err := env.tenants.ResolveActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "acme", active[0].TenantID())

	assert.ErrorIs(t, env.tenants.SetActive(ctx, "missing", true), ErrTenantNotFound)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindSlotConflict, KindOf(slotTaken(tuesday, 600, 30)))
	assert.Equal(t, KindPolicyViolation, KindOf(policyViolation("closed")))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "limit_exceeded", outcome(ErrLimitExceeded))
}
