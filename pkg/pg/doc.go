// Package pg bootstraps the central PostgreSQL connection pool using the
// pgx/v5 driver: pool construction with retry, a health check closure, goose
// schema migrations for the central registry schema, and error classifiers
// for common SQLSTATE codes.
//
// Per-tenant pools are owned by pkg/dbrouter; this package only handles the
// central database that stores the tenant registry itself.
package pg
