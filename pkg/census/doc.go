// Package census is the cross-tenant aggregator: a central-side batch
// process that visits every tenant in the registry, switches context in and
// out around a caller-supplied probe, and collects per-tenant outcomes while
// isolating per-tenant failures.
//
// Central resources are checked before the loop; when the central database
// or Redis is unreachable the run reports overall "down" immediately and
// never enumerates tenants. One tenant's failure, whether an activation error or a probe
// timeout, is recorded as that tenant's "down" result and never prevents
// the remaining tenants from being visited, and every visit deactivates its
// context unconditionally before the next one starts.
//
// Both the health endpoint and dashboard statistics drive the same Run with
// different probes rather than duplicating the switch-and-catch loop.
package census
