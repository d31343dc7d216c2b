package switchboard

import (
	"context"

	"github.com/opencouncil/councilkit/pkg/tenant"
)

// RunInTenant executes fn under an activated tenant context. It is the
// background-job counterpart of the HTTP middleware: the tenant is named
// explicitly (UUID or subdomain) instead of resolved from a host.
//
// Deactivation is deferred and therefore unconditional: fn panicking or the
// context being cancelled does not leave the worker with a live tenant
// pointer.
func RunInTenant(ctx context.Context, p *Pipeline, registry tenant.Registry, identifier string, fn func(ctx context.Context, sc *Scope) error) error {
	t, err := tenant.Lookup(ctx, registry, identifier)
	if err != nil {
		return err
	}

	sc := p.NewScope()
	defer p.Deactivate(ctx, sc)

	if err := p.Activate(ctx, sc, t); err != nil {
		return err
	}

	ctx = tenant.WithTenant(ctx, t)
	ctx = WithScope(ctx, sc)
	return fn(ctx, sc)
}
