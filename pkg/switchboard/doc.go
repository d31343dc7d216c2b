// Package switchboard is the context switch pipeline: the ordered, reversible
// steps that point every tenant-scoped resource (database connection, cache
// key namespace, auth guard, settings cache) at one tenant for the duration
// of one unit of work.
//
// # Model
//
// A Scope is the per-request (or per-job) tenant context. The Pipeline
// activates a scope by running its switch tasks in a fixed order and
// deactivates it in reverse order. Three guarantees hold:
//
//   - Activation is all-or-nothing: a task failure rolls back every
//     previously-activated task, in reverse, before the error propagates.
//   - Deactivation always completes: a failing step is logged and the rest
//     still run, so a broken cache step cannot block release of the database
//     borrow. Deactivation ignores context cancellation.
//   - Re-activating an active scope is rejected with ErrScopeAlreadyActive;
//     forgetting to release context between units of work fails loudly
//     instead of leaking one tenant's resources into the next request.
//
// The HTTP middleware and RunInTenant wrap these calls so business handlers
// only ever see a fully-activated scope, and workers are always clean before
// their next unit of work.
package switchboard
