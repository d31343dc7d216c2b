package tenant_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencouncil/councilkit/pkg/tenant"
)

// countingStore wraps a Store and counts point-lookup calls that reach it.
type countingStore struct {
	tenant.Store
	lookups atomic.Int64
}

func (s *countingStore) GetBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	s.lookups.Add(1)
	return s.Store.GetBySubdomain(ctx, subdomain)
}

func (s *countingStore) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	s.lookups.Add(1)
	return s.Store.GetByID(ctx, id)
}

func TestCachedStore_ReadThrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &countingStore{Store: tenant.NewMemoryStore()}
	cached := tenant.NewCachedStore(inner, time.Minute)

	springfield := newTestTenant("springfield")
	require.NoError(t, cached.Create(ctx, springfield))

	got, err := cached.GetBySubdomain(ctx, "springfield")
	require.NoError(t, err)
	assert.Equal(t, springfield.ID, got.ID)
	assert.EqualValues(t, 1, inner.lookups.Load())

	// A subdomain hit primes the id key too.
	_, err = cached.GetBySubdomain(ctx, "springfield")
	require.NoError(t, err)
	_, err = cached.GetByID(ctx, springfield.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, inner.lookups.Load())
}

func TestCachedStore_WritesInvalidate(t *testing.T) {
	t.Parallel()

	t.Run("update", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		inner := &countingStore{Store: tenant.NewMemoryStore()}
		cached := tenant.NewCachedStore(inner, time.Minute)

		springfield := newTestTenant("springfield")
		require.NoError(t, cached.Create(ctx, springfield))
		_, err := cached.GetBySubdomain(ctx, "springfield")
		require.NoError(t, err)

		updated := *springfield
		updated.Name = "Springfield Municipality"
		require.NoError(t, cached.Update(ctx, &updated))

		got, err := cached.GetBySubdomain(ctx, "springfield")
		require.NoError(t, err)
		assert.Equal(t, "Springfield Municipality", got.Name)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		cached := tenant.NewCachedStore(tenant.NewMemoryStore(), time.Minute)

		springfield := newTestTenant("springfield")
		require.NoError(t, cached.Create(ctx, springfield))
		_, err := cached.GetByID(ctx, springfield.ID)
		require.NoError(t, err)

		require.NoError(t, cached.Delete(ctx, springfield.ID))

		_, err = cached.GetByID(ctx, springfield.ID)
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
		_, err = cached.GetBySubdomain(ctx, "springfield")
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})
}

func TestCachedStore_TTLExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &countingStore{Store: tenant.NewMemoryStore()}
	cached := tenant.NewCachedStore(inner, 10*time.Millisecond)

	springfield := newTestTenant("springfield")
	require.NoError(t, cached.Create(ctx, springfield))

	_, err := cached.GetBySubdomain(ctx, "springfield")
	require.NoError(t, err)
	assert.EqualValues(t, 1, inner.lookups.Load())

	time.Sleep(20 * time.Millisecond)

	_, err = cached.GetBySubdomain(ctx, "springfield")
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.lookups.Load(), "expired entry must be re-fetched")
}

func TestCachedStore_ListBypassesCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := tenant.NewMemoryStore()
	cached := tenant.NewCachedStore(inner, time.Hour)

	require.NoError(t, cached.Create(ctx, newTestTenant("springfield")))

	// Created directly against the inner store, invisible to any cache layer.
	require.NoError(t, inner.Create(ctx, newTestTenant("ogdenville")))

	tenants, err := cached.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 2)
}
