package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// TenantID records the tenant identifier under the key "tenant_id".
// If id is nil, it returns an empty Attr.
func TenantID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("tenant_id", id)
}

// Subdomain records the tenant routing key under the key "subdomain".
func Subdomain(s string) slog.Attr {
	return slog.String("subdomain", s)
}

// DatabaseID records the tenant storage identifier under the key "database_id".
func DatabaseID(id string) slog.Attr {
	return slog.String("database_id", id)
}

// Task records a context switch task name under the key "task".
func Task(name string) slog.Attr {
	return slog.String("task", name)
}

// Status records a health status under the key "status".
func Status(s string) slog.Attr {
	return slog.String("status", s)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Host records the request host under the key "host".
func Host(h string) slog.Attr {
	return slog.String("host", h)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}
