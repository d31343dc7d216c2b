// Package guard selects the correct authentication stores for the current
// context: the central realm uses the central database's users and reset
// tokens, a tenant realm uses the tenant's own database for both.
//
// The Router is the only long-lived object; guards and password brokers are
// cheap value objects constructed fresh for every call so that a worker
// serving a central request immediately after a tenant request can never
// reuse a stale store binding. Reset tokens are HMAC-signed, carry their
// realm, and only their SHA-256 hash is persisted. A token issued under one
// tenant can never be redeemed against central storage or another tenant.
package guard
