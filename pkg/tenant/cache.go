package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCacheTTL bounds how long a stale tenant record can be served after
// an out-of-band change. Mutations through CachedStore invalidate
// immediately; the TTL covers changes made by other processes.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	tenant    *Tenant
	expiresAt time.Time
}

// CachedStore wraps a Store with a read-through in-memory cache keyed by both
// subdomain and id. The registry is read on every request, so point lookups
// must not hit the central database each time; writes invalidate both keys.
type CachedStore struct {
	store Store
	ttl   time.Duration

	mu          sync.RWMutex
	bySubdomain map[string]cacheEntry
	byID        map[uuid.UUID]cacheEntry
}

// NewCachedStore wraps the given store. A non-positive ttl falls back to
// DefaultCacheTTL.
func NewCachedStore(store Store, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		store:       store,
		ttl:         ttl,
		bySubdomain: make(map[string]cacheEntry),
		byID:        make(map[uuid.UUID]cacheEntry),
	}
}

var _ Store = (*CachedStore)(nil)

func (c *CachedStore) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	c.mu.RLock()
	entry, ok := c.bySubdomain[subdomain]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return cloneTenant(entry.tenant), nil
	}

	t, err := c.store.GetBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	c.put(t)
	return t, nil
}

func (c *CachedStore) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	c.mu.RLock()
	entry, ok := c.byID[id]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return cloneTenant(entry.tenant), nil
	}

	t, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(t)
	return t, nil
}

// List always goes to the underlying store: enumeration is used by the
// aggregator, which must see the authoritative tenant set.
func (c *CachedStore) List(ctx context.Context) ([]*Tenant, error) {
	return c.store.List(ctx)
}

func (c *CachedStore) Create(ctx context.Context, t *Tenant) error {
	return c.store.Create(ctx, t)
}

func (c *CachedStore) Update(ctx context.Context, t *Tenant) error {
	if err := c.store.Update(ctx, t); err != nil {
		return err
	}
	c.Invalidate(t)
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, id uuid.UUID) error {
	t, err := c.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	c.Invalidate(t)
	return nil
}

// Invalidate drops a tenant from the cache under both keys. Exposed so that
// out-of-band change notifications (e.g. a pub/sub listener) can evict too.
func (c *CachedStore) Invalidate(t *Tenant) {
	if t == nil {
		return
	}
	c.mu.Lock()
	delete(c.bySubdomain, t.Subdomain)
	delete(c.byID, t.ID)
	c.mu.Unlock()
}

func (c *CachedStore) put(t *Tenant) {
	entry := cacheEntry{tenant: cloneTenant(t), expiresAt: time.Now().Add(c.ttl)}
	c.mu.Lock()
	c.bySubdomain[t.Subdomain] = entry
	c.byID[t.ID] = entry
	c.mu.Unlock()
}
