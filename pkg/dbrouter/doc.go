// Package dbrouter maintains one long-lived connection pool per tenant
// database. Pools are constructed lazily on first use under a singleflight
// group, stay warm across requests, and are the only resource in the tenant
// core shared by concurrent workers.
//
// Lifecycle rules:
//
//   - Borrowers get a Handle and never own the pool; Release must be called
//     exactly once (extra calls are no-ops).
//   - A pool that fails its liveness probe on Acquire is evicted and rebuilt
//     once; a second failure yields ErrConnectionUnavailable.
//   - ReleaseAll (tenant deletion, administrative eviction) stops new borrows
//     immediately and closes the pool after in-flight borrows drain.
package dbrouter
