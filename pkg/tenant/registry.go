package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Registry is the read side of the tenant directory. It is the authority for
// which tenants exist and how to reach their storage; everything else in the
// platform resolves tenants through it.
type Registry interface {
	// GetBySubdomain returns the tenant owning the routing key.
	// Returns ErrTenantNotFound if no tenant matches.
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)

	// GetByID returns the tenant with the given id.
	// Returns ErrTenantNotFound if no tenant matches.
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// List returns all tenants ordered by id. The order is stable across
	// calls so that cross-tenant iteration is deterministic.
	List(ctx context.Context) ([]*Tenant, error)
}

// Store extends Registry with the administrative write operations.
type Store interface {
	Registry

	// Create inserts a new tenant record. The tenant's storage must already
	// exist; provisioning it is the job of the external workflow.
	Create(ctx context.Context, t *Tenant) error

	// Update replaces the mutable attributes of an existing tenant.
	// Returns ErrImmutableField if the subdomain or database identifier
	// differs from the stored record.
	Update(ctx context.Context, t *Tenant) error

	// Delete removes a tenant record. Callers must release the tenant's
	// pooled connections first; use Deprovision for the full sequence.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Lookup resolves an explicit identifier (UUID or subdomain) against the
// registry. Background jobs use this instead of host-based resolution.
func Lookup(ctx context.Context, reg Registry, identifier string) (*Tenant, error) {
	if identifier == "" {
		return nil, ErrInvalidIdentifier
	}
	if id, err := uuid.Parse(identifier); err == nil {
		return reg.GetByID(ctx, id)
	}
	return reg.GetBySubdomain(ctx, identifier)
}

// ConnectionReleaser closes any pooled storage connections for one tenant.
// Implemented by dbrouter.Router.
type ConnectionReleaser interface {
	ReleaseAll(ctx context.Context, databaseID string) error
}

// Deprovision removes a tenant in the order the connection lifecycle
// requires: pooled connections are drained and closed before the registry
// row disappears, so no worker can re-create a pool for a dead tenant from a
// stale borrow.
func Deprovision(ctx context.Context, store Store, conns ConnectionReleaser, id uuid.UUID) error {
	t, err := store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if conns != nil {
		if err := conns.ReleaseAll(ctx, t.DatabaseID); err != nil {
			return errors.Join(errors.New("failed to release tenant connections"), err)
		}
	}

	return store.Delete(ctx, id)
}
