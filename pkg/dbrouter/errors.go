package dbrouter

import "errors"

var (
	// ErrConnectionUnavailable is returned when a tenant pool cannot be
	// constructed or fails its liveness probe even after one eviction-and-retry.
	ErrConnectionUnavailable = errors.New("tenant database connection unavailable")

	// ErrTenantEvicted is returned when a borrow arrives while the tenant's
	// pool is draining for eviction or deletion.
	ErrTenantEvicted = errors.New("tenant connection is being released")

	// ErrRouterClosed is returned after Close.
	ErrRouterClosed = errors.New("connection router is closed")

	// ErrUnknownTenant is returned when Acquire is called without a tenant or
	// with no database identifier.
	ErrUnknownTenant = errors.New("tenant has no database identifier")
)
