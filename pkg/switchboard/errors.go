package switchboard

import "errors"

var (
	// ErrActivationFailed wraps any switch task failure during activation.
	// By the time it is returned, all previously-activated tasks have been
	// rolled back; no half-activated scope is ever observable.
	ErrActivationFailed = errors.New("tenant context activation failed")

	// ErrScopeAlreadyActive is a programming error: activating a scope that
	// already has an active context. The pipeline never silently switches.
	ErrScopeAlreadyActive = errors.New("scope already has an active tenant context")

	// ErrScopeNotActive is a programming error: using tenant-scoped resources
	// before the pipeline has established a context.
	ErrScopeNotActive = errors.New("no active context in scope")

	// ErrNilTenant is returned when Activate is called without a tenant.
	ErrNilTenant = errors.New("cannot activate a nil tenant")

	// ErrTaskOrder is returned when a task runs before one it depends on,
	// e.g. the settings task before the database task.
	ErrTaskOrder = errors.New("switch task executed out of order")

	// ErrUnknownTask is returned when the configured task order names a task
	// that does not exist.
	ErrUnknownTask = errors.New("unknown switch task identifier")

	// ErrCacheMiss is returned by Namespace.Get when the key is absent.
	ErrCacheMiss = errors.New("cache key not found")
)
