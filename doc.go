// Package councilkit is the tenant core of a multi-tenant citizen-services
// platform: every municipal council gets an isolated database reachable via
// its own subdomain, while a central application manages the tenant registry
// and cross-tenant reporting.
//
// The packages under pkg/ implement the context and connection-routing layer:
//
//   - pkg/tenant: tenant records, the registry, and host resolution
//   - pkg/dbrouter: one warm connection pool per tenant database
//   - pkg/switchboard: the activate/deactivate context switch pipeline
//   - pkg/guard: per-context auth guard and password broker selection
//   - pkg/census: cross-tenant health and statistics aggregation
//
// Platform wires them together from environment configuration. Business
// handlers mount on Platform.Routes and read their tenant-scoped resources
// from the switchboard scope in the request context.
package councilkit
