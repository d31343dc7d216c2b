package tenant

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation. It backs tests and
// single-node development setups where running a central database is
// overkill; production uses PGStore.
type MemoryStore struct {
	mu          sync.RWMutex
	byID        map[uuid.UUID]*Tenant
	bySubdomain map[string]uuid.UUID
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:        make(map[uuid.UUID]*Tenant),
		bySubdomain: make(map[string]uuid.UUID),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	if subdomain == "" {
		return nil, ErrInvalidIdentifier
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySubdomain[subdomain]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return cloneTenant(s.byID[id]), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return cloneTenant(t), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenants := make([]*Tenant, 0, len(s.byID))
	for _, t := range s.byID {
		tenants = append(tenants, cloneTenant(t))
	}
	sort.Slice(tenants, func(i, j int) bool {
		return bytes.Compare(tenants[i].ID[:], tenants[j].ID[:]) < 0
	})
	return tenants, nil
}

func (s *MemoryStore) Create(ctx context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if _, exists := s.byID[t.ID]; exists {
		return ErrImmutableField
	}
	if _, exists := s.bySubdomain[t.Subdomain]; exists {
		return ErrImmutableField
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	s.byID[t.ID] = cloneTenant(t)
	s.bySubdomain[t.Subdomain] = t.ID
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[t.ID]
	if !ok {
		return ErrTenantNotFound
	}
	if current.Subdomain != t.Subdomain || current.DatabaseID != t.DatabaseID {
		return ErrImmutableField
	}

	t.UpdatedAt = time.Now().UTC()
	t.CreatedAt = current.CreatedAt
	s.byID[t.ID] = cloneTenant(t)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return ErrTenantNotFound
	}
	delete(s.bySubdomain, t.Subdomain)
	delete(s.byID, id)
	return nil
}

func cloneTenant(t *Tenant) *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
