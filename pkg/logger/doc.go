// Package logger provides slog.Attr helper constructors so that attribute
// naming stays consistent across the platform.
//
// The helpers cover the identifiers that matter when debugging tenant
// isolation issues: tenant id, subdomain, database id, and the name of the
// context switch task that produced a log record.
//
//	log.ErrorContext(ctx, "activation failed",
//	    logger.TenantID(t.ID),
//	    logger.Task("database"),
//	    logger.Error(err),
//	)
package logger
