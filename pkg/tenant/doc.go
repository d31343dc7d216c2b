// Package tenant is the tenant directory of the platform: the Tenant record,
// the Registry that stores it, and the resolver that maps inbound hosts to
// registry entries.
//
// # Architecture
//
// Three cooperating pieces:
//
//  1. HostResolver turns an already-normalized request host into a tenant
//     subdomain. Hosts on the configured central-domain list resolve to the
//     empty identifier, which means "central context" and is not an error.
//  2. Registry and Store: point lookup by subdomain or id and enumeration of
//     all tenants; PGStore is the Postgres implementation, MemoryStore backs
//     tests, CachedStore adds a read-through cache with invalidation on
//     update and delete.
//  3. The context carrier, WithTenant / FromContext, threads the resolved tenant
//     through a request or job without any package-level mutable state.
//
// Resolution never partially succeeds: either a fully-populated Tenant comes
// back from the registry, or the caller gets ErrTenantNotFound before any
// tenant-scoped resource is touched.
//
// Activation of tenant-scoped resources (database connection, cache
// namespace, auth guard) is the job of pkg/switchboard; this package only
// answers "which tenant is this?".
package tenant
