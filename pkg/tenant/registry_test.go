package tenant_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencouncil/councilkit/pkg/tenant"
)

func newTestTenant(subdomain string) *tenant.Tenant {
	return &tenant.Tenant{
		Subdomain:  subdomain,
		DatabaseID: "db_" + subdomain,
		Name:       "City of " + subdomain,
		Active:     true,
	}
}

func TestMemoryStore_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := tenant.NewMemoryStore()

	springfield := newTestTenant("springfield")
	require.NoError(t, store.Create(ctx, springfield))
	require.NotEqual(t, uuid.Nil, springfield.ID)

	t.Run("get by subdomain", func(t *testing.T) {
		got, err := store.GetBySubdomain(ctx, "springfield")
		require.NoError(t, err)
		assert.Equal(t, springfield.ID, got.ID)
		assert.Equal(t, "db_springfield", got.DatabaseID)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := store.GetByID(ctx, springfield.ID)
		require.NoError(t, err)
		assert.Equal(t, "springfield", got.Subdomain)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := store.GetBySubdomain(ctx, "shelbyville")
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)

		_, err = store.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("update mutable fields", func(t *testing.T) {
		updated := *springfield
		updated.Name = "Springfield Municipality"
		updated.Active = false
		require.NoError(t, store.Update(ctx, &updated))

		got, err := store.GetByID(ctx, springfield.ID)
		require.NoError(t, err)
		assert.Equal(t, "Springfield Municipality", got.Name)
		assert.False(t, got.Active)
	})

	t.Run("subdomain is immutable", func(t *testing.T) {
		renamed := *springfield
		renamed.Subdomain = "new-springfield"
		assert.ErrorIs(t, store.Update(ctx, &renamed), tenant.ErrImmutableField)
	})

	t.Run("database id is immutable", func(t *testing.T) {
		moved := *springfield
		moved.DatabaseID = "db_other"
		assert.ErrorIs(t, store.Update(ctx, &moved), tenant.ErrImmutableField)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, springfield.ID))
		_, err := store.GetBySubdomain(ctx, "springfield")
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})
}

func TestMemoryStore_ListOrderedByID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := tenant.NewMemoryStore()

	for _, sub := range []string{"ogdenville", "springfield", "capital-city"} {
		require.NoError(t, store.Create(ctx, newTestTenant(sub)))
	}

	first, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := store.List(ctx)
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "list order must be stable across calls")
	}
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].ID.String(), first[i].ID.String())
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := tenant.NewMemoryStore()
	springfield := newTestTenant("springfield")
	require.NoError(t, store.Create(ctx, springfield))

	t.Run("by uuid", func(t *testing.T) {
		t.Parallel()

		got, err := tenant.Lookup(ctx, store, springfield.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "springfield", got.Subdomain)
	})

	t.Run("by subdomain", func(t *testing.T) {
		t.Parallel()

		got, err := tenant.Lookup(ctx, store, "springfield")
		require.NoError(t, err)
		assert.Equal(t, springfield.ID, got.ID)
	})

	t.Run("empty identifier", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.Lookup(ctx, store, "")
		assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
	})
}

type releaserStub struct {
	released []string
	err      error
	// set by the test to observe ordering relative to Delete
	onRelease func()
}

func (r *releaserStub) ReleaseAll(_ context.Context, databaseID string) error {
	r.released = append(r.released, databaseID)
	if r.onRelease != nil {
		r.onRelease()
	}
	return r.err
}

func TestDeprovision(t *testing.T) {
	t.Parallel()

	t.Run("releases connections before deleting the record", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := tenant.NewMemoryStore()
		springfield := newTestTenant("springfield")
		require.NoError(t, store.Create(ctx, springfield))

		releaser := &releaserStub{}
		releaser.onRelease = func() {
			// The registry row must still exist while connections drain.
			_, err := store.GetByID(ctx, springfield.ID)
			assert.NoError(t, err)
		}

		require.NoError(t, tenant.Deprovision(ctx, store, releaser, springfield.ID))
		assert.Equal(t, []string{"db_springfield"}, releaser.released)

		_, err := store.GetByID(ctx, springfield.ID)
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("release failure aborts the delete", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := tenant.NewMemoryStore()
		springfield := newTestTenant("springfield")
		require.NoError(t, store.Create(ctx, springfield))

		releaser := &releaserStub{err: assert.AnError}
		require.Error(t, tenant.Deprovision(ctx, store, releaser, springfield.ID))

		_, err := store.GetByID(ctx, springfield.ID)
		assert.NoError(t, err, "record must survive a failed connection release")
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()

		err := tenant.Deprovision(context.Background(), tenant.NewMemoryStore(), &releaserStub{}, uuid.New())
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})
}
