package switchboard

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/opencouncil/councilkit/pkg/dbrouter"
	"github.com/opencouncil/councilkit/pkg/guard"
	"github.com/opencouncil/councilkit/pkg/tenant"
)

// DB is the query surface a scope hands to business code. Satisfied by
// *pgxpool.Pool and by routed tenant pools.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scopeMode int

const (
	modeNone scopeMode = iota
	modeCentral
	modeTenant
)

// Scope is the per-unit-of-work tenant context: exactly one exists per HTTP
// request or job execution, and it is never shared between concurrent units
// of work. All tenant-scoped resource pointers live here; there is no
// package-level "current tenant" anywhere in the platform, which is what
// makes cross-request leakage structurally impossible.
//
// A scope starts empty, is activated by the pipeline (tenant mode) or
// created directly in central mode, and is deactivated before the worker
// picks up its next unit of work.
type Scope struct {
	mode   scopeMode
	tenant *tenant.Tenant

	// activated tracks which tasks completed Activate, in order, so that
	// deactivation and rollback walk exactly those tasks in reverse.
	activated []Task

	// Resource pointers, populated by switch tasks during activation.
	db       *dbrouter.Handle
	cache    *Namespace
	guards   *guard.Router
	settings Settings

	// Central-mode resources, fixed at scope construction.
	centralDB    DB
	cacheClient  redis.UniversalClient
	centralKeyNS string
}

// Tenant returns the active tenant, or nil in central mode.
func (s *Scope) Tenant() *tenant.Tenant {
	return s.tenant
}

// IsCentral reports whether this scope serves central (non-tenant) work.
func (s *Scope) IsCentral() bool {
	return s.mode == modeCentral
}

// Active reports whether any context (central or tenant) is established.
func (s *Scope) Active() bool {
	return s.mode != modeNone
}

// DB returns the connection for the current context: the tenant's routed
// pool, or the central pool in central mode. Returns ErrScopeNotActive when
// no context has been established; business code must never run against a
// guessed connection.
func (s *Scope) DB() (DB, error) {
	switch s.mode {
	case modeCentral:
		return s.centralDB, nil
	case modeTenant:
		if s.db == nil {
			return nil, ErrScopeNotActive
		}
		return s.db.DB(), nil
	default:
		return nil, ErrScopeNotActive
	}
}

// Cache returns the key namespace for the current context.
func (s *Scope) Cache() (*Namespace, error) {
	switch s.mode {
	case modeCentral:
		return NewNamespace(s.cacheClient, s.centralKeyNS), nil
	case modeTenant:
		if s.cache == nil {
			return nil, ErrScopeNotActive
		}
		return s.cache, nil
	default:
		return nil, ErrScopeNotActive
	}
}

// Guard resolves the auth guard for the current context. Resolution happens
// fresh on every call; the result must not be cached across units of work.
func (s *Scope) Guard() (*guard.Guard, error) {
	switch s.mode {
	case modeCentral:
		return s.guards.Central(), nil
	case modeTenant:
		if s.guards == nil || s.db == nil {
			return nil, ErrScopeNotActive
		}
		return s.guards.ForTenant(s.db.DB()), nil
	default:
		return nil, ErrScopeNotActive
	}
}

// PasswordBroker resolves the password-reset broker for the current context.
// Under a tenant context the token store is the tenant's own, never the
// central one.
func (s *Scope) PasswordBroker() (*guard.PasswordBroker, error) {
	switch s.mode {
	case modeCentral:
		return s.guards.CentralBroker(), nil
	case modeTenant:
		if s.guards == nil || s.db == nil {
			return nil, ErrScopeNotActive
		}
		return s.guards.BrokerForTenant(s.db.DB()), nil
	default:
		return nil, ErrScopeNotActive
	}
}

// Settings returns the tenant settings loaded during activation. Central
// scopes have no tenant settings and get an empty map.
func (s *Scope) Settings() (Settings, error) {
	switch s.mode {
	case modeCentral:
		return Settings{}, nil
	case modeTenant:
		return s.settings, nil
	default:
		return nil, ErrScopeNotActive
	}
}

// reset returns the scope to its initial state. Every resource pointer is
// cleared unconditionally; this runs at the end of deactivation and rollback.
func (s *Scope) reset() {
	s.mode = modeNone
	s.tenant = nil
	s.activated = nil
	s.db = nil
	s.cache = nil
	s.guards = nil
	s.settings = nil
}

// scopeContextKey is a private type to prevent collisions with other context keys.
type scopeContextKey struct{}

// WithScope adds the scope to the context.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// ScopeFromContext retrieves the scope from the context.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return s, ok
}

// MustScopeFromContext retrieves the scope and panics if none is present.
// Use only in handlers that run behind the switchboard middleware.
func MustScopeFromContext(ctx context.Context) *Scope {
	s, ok := ScopeFromContext(ctx)
	if !ok || s == nil {
		panic("switchboard: no scope in context")
	}
	return s
}
