package switchboard_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencouncil/councilkit/pkg/switchboard"
	"github.com/opencouncil/councilkit/pkg/tenant"
)

type middlewareEnv struct {
	registry *tenant.MemoryStore
	resolver *tenant.HostResolver
	pipeline *switchboard.Pipeline
	rec      *recorder
	task     *fakeTask
}

func newMiddlewareEnv(t *testing.T) *middlewareEnv {
	t.Helper()

	rec := &recorder{}
	task := &fakeTask{name: "database", rec: rec}
	p, err := switchboard.New(switchboard.Config{}, switchboard.Deps{}, switchboard.WithTasks(task))
	require.NoError(t, err)

	return &middlewareEnv{
		registry: tenant.NewMemoryStore(),
		resolver: tenant.NewHostResolver(tenant.ResolverConfig{
			BaseDomain:     "council.example",
			CentralDomains: []string{"admin.example"},
		}),
		pipeline: p,
		rec:      rec,
		task:     task,
	}
}

func (env *middlewareEnv) handler(t *testing.T, inner http.HandlerFunc, opts ...switchboard.MiddlewareOption) http.Handler {
	t.Helper()
	if inner == nil {
		inner = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}
	}
	mw := switchboard.Middleware(env.resolver, env.registry, env.pipeline, opts...)
	return mw(inner)
}

func get(t *testing.T, h http.Handler, host, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://"+host+path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestMiddleware_CentralHost(t *testing.T) {
	t.Parallel()

	env := newMiddlewareEnv(t)

	var seen *switchboard.Scope
	h := env.handler(t, func(w http.ResponseWriter, r *http.Request) {
		seen = switchboard.MustScopeFromContext(r.Context())
		_, hasTenant := tenant.FromContext(r.Context())
		assert.False(t, hasTenant)
		w.WriteHeader(http.StatusOK)
	})

	w := get(t, h, "admin.example", "/dashboard")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	assert.True(t, seen.IsCentral())
	assert.Empty(t, env.rec.all(), "central requests must not run switch tasks")
}

func TestMiddleware_TenantHost(t *testing.T) {
	t.Parallel()

	env := newMiddlewareEnv(t)
	require.NoError(t, env.registry.Create(context.Background(), newActiveTenant("springfield")))

	var seenTenant *tenant.Tenant
	h := env.handler(t, func(w http.ResponseWriter, r *http.Request) {
		seenTenant = tenant.MustFromContext(r.Context())
		sc := switchboard.MustScopeFromContext(r.Context())
		assert.True(t, sc.Active())
		assert.False(t, sc.IsCentral())
		w.WriteHeader(http.StatusOK)
	})

	w := get(t, h, "springfield.council.example", "/news")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seenTenant)
	assert.Equal(t, "springfield", seenTenant.Subdomain)

	// The context was released once the handler returned.
	assert.Equal(t, []string{"activate:database", "deactivate:database"}, env.rec.all())
}

func TestMiddleware_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("unknown subdomain", func(t *testing.T) {
		t.Parallel()

		env := newMiddlewareEnv(t)
		w := get(t, env.handler(t, nil), "shelbyville.council.example", "/")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, env.rec.all(), "no switch task may run for an unknown tenant")
	})

	t.Run("foreign host", func(t *testing.T) {
		t.Parallel()

		env := newMiddlewareEnv(t)
		w := get(t, env.handler(t, nil), "evil.example.org", "/")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("inactive tenant", func(t *testing.T) {
		t.Parallel()

		env := newMiddlewareEnv(t)
		dormant := newActiveTenant("dormant")
		dormant.Active = false
		require.NoError(t, env.registry.Create(context.Background(), dormant))

		w := get(t, env.handler(t, nil), "dormant.council.example", "/")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, env.rec.all())
	})

	t.Run("inactive tenant allowed when not required", func(t *testing.T) {
		t.Parallel()

		env := newMiddlewareEnv(t)
		dormant := newActiveTenant("dormant")
		dormant.Active = false
		require.NoError(t, env.registry.Create(context.Background(), dormant))

		w := get(t, env.handler(t, nil, switchboard.WithRequireActive(false)), "dormant.council.example", "/")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("activation failure", func(t *testing.T) {
		t.Parallel()

		env := newMiddlewareEnv(t)
		env.task.activateErr = errors.New("database unreachable")
		require.NoError(t, env.registry.Create(context.Background(), newActiveTenant("springfield")))

		w := get(t, env.handler(t, nil), "springfield.council.example", "/")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestMiddleware_SkipPaths(t *testing.T) {
	t.Parallel()

	env := newMiddlewareEnv(t)
	h := env.handler(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := switchboard.ScopeFromContext(r.Context())
		assert.False(t, ok, "skipped paths must not resolve a scope")
		w.WriteHeader(http.StatusOK)
	}, switchboard.WithSkipPaths([]string{"/livez"}))

	// Even a foreign host passes on a skipped path.
	w := get(t, h, "evil.example.org", "/livez")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_DeactivatesOnPanic(t *testing.T) {
	t.Parallel()

	env := newMiddlewareEnv(t)
	require.NoError(t, env.registry.Create(context.Background(), newActiveTenant("springfield")))

	h := env.handler(t, func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	})

	req := httptest.NewRequest(http.MethodGet, "http://springfield.council.example/", nil)
	assert.Panics(t, func() {
		h.ServeHTTP(httptest.NewRecorder(), req)
	})

	// The deferred deactivation must have run anyway.
	assert.Equal(t, []string{"activate:database", "deactivate:database"}, env.rec.all())
}

func TestMiddleware_CustomErrorHandler(t *testing.T) {
	t.Parallel()

	env := newMiddlewareEnv(t)

	var handled error
	h := env.handler(t, nil, switchboard.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
		handled = err
		w.WriteHeader(http.StatusTeapot)
	}))

	w := get(t, h, "shelbyville.council.example", "/")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.ErrorIs(t, handled, tenant.ErrTenantNotFound)
}

func newActiveTenant(subdomain string) *tenant.Tenant {
	return &tenant.Tenant{
		Subdomain:  subdomain,
		DatabaseID: "db_" + subdomain,
		Name:       "City of " + subdomain,
		Active:     true,
	}
}
