package switchboard

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/opencouncil/councilkit/pkg/dbrouter"
	"github.com/opencouncil/councilkit/pkg/logger"
	"github.com/opencouncil/councilkit/pkg/tenant"
)

// ErrorHandler renders tenant resolution and activation failures.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	errorHandler  ErrorHandler
	skipPaths     []string
	requireActive bool
	log           *slog.Logger
}

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*middlewareConfig)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithSkipPaths sets path prefixes that bypass tenant resolution entirely
// (health probes, static assets).
func WithSkipPaths(paths []string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.skipPaths = paths
	}
}

// WithRequireActive controls whether inactive tenants are rejected.
// Enabled by default.
func WithRequireActive(require bool) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.requireActive = require
	}
}

// WithMiddlewareLogger sets the middleware logger.
func WithMiddlewareLogger(log *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// Middleware resolves the request host to a tenant and brackets the handler
// between context activation and deactivation.
//
// Central hosts get a central scope and never touch tenant resources.
// Unknown hosts and unknown tenants are rejected with 404 before any
// tenant-scoped resource is touched. An activation failure yields 503: the
// request must fail rather than fall back to central storage under a tenant
// hostname.
//
// Deactivation is deferred, so it runs even when the handler panics or the
// request context is cancelled: the worker is always clean before its next
// request.
func Middleware(resolver *tenant.HostResolver, registry tenant.Registry, p *Pipeline, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		errorHandler:  defaultErrorHandler,
		requireActive: true,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			subdomain, err := resolver.Resolve(r.Host)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			// Central host: establish the central scope and continue.
			if subdomain == "" {
				ctx := WithScope(r.Context(), p.CentralScope())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			t, err := registry.GetBySubdomain(r.Context(), subdomain)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}
			if cfg.requireActive && !t.Active {
				cfg.errorHandler(w, r, tenant.ErrInactiveTenant)
				return
			}

			sc := p.NewScope()
			defer p.Deactivate(r.Context(), sc)

			if err := p.Activate(r.Context(), sc, t); err != nil {
				cfg.log.ErrorContext(r.Context(), "tenant activation failed",
					logger.Component("switchboard"),
					logger.TenantID(t.ID),
					logger.Host(r.Host),
					logger.Error(err),
				)
				cfg.errorHandler(w, r, err)
				return
			}

			ctx := tenant.WithTenant(r.Context(), t)
			ctx = WithScope(ctx, sc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tenant.ErrTenantNotFound),
		errors.Is(err, tenant.ErrUnknownHost),
		errors.Is(err, tenant.ErrInvalidIdentifier):
		http.Error(w, "Unknown tenant", http.StatusNotFound)
	case errors.Is(err, tenant.ErrInactiveTenant):
		http.Error(w, "Tenant is inactive", http.StatusForbidden)
	case errors.Is(err, ErrActivationFailed),
		errors.Is(err, dbrouter.ErrConnectionUnavailable),
		errors.Is(err, dbrouter.ErrTenantEvicted):
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
