package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when no tenant matches the identifier.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidIdentifier is returned when the identifier format is invalid.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrUnknownHost is returned when a host is neither a central domain nor
	// under the configured tenant base domain.
	ErrUnknownHost = errors.New("host does not belong to the platform")

	// ErrNoTenantInContext is returned when no tenant is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrInactiveTenant is returned when trying to use an inactive tenant.
	ErrInactiveTenant = errors.New("tenant is inactive")

	// ErrImmutableField is returned when an update attempts to change the
	// subdomain or database identifier of an existing tenant.
	ErrImmutableField = errors.New("subdomain and database identifier are immutable")
)
