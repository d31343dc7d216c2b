package tenant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencouncil/councilkit/pkg/tenant"
)

func newResolver() *tenant.HostResolver {
	return tenant.NewHostResolver(tenant.ResolverConfig{
		BaseDomain:     "council.example",
		CentralDomains: []string{"admin.example", "portal.example"},
	})
}

func TestHostResolver_CentralDomains(t *testing.T) {
	t.Parallel()

	resolver := newResolver()

	centralHosts := []string{
		"admin.example",
		"portal.example",
		"council.example",      // base domain itself
		"www.council.example",  // www variant of the base domain
		"ADMIN.example",        // case-insensitive
		"admin.example:8443",   // port stripped
	}

	for _, host := range centralHosts {
		id, err := resolver.Resolve(host)
		require.NoError(t, err, "host %q", host)
		assert.Empty(t, id, "host %q must resolve to central context", host)
	}
}

func TestHostResolver_TenantHosts(t *testing.T) {
	t.Parallel()

	resolver := newResolver()

	t.Run("extracts subdomain", func(t *testing.T) {
		t.Parallel()

		id, err := resolver.Resolve("springfield.council.example")
		require.NoError(t, err)
		assert.Equal(t, "springfield", id)
	})

	t.Run("strips port", func(t *testing.T) {
		t.Parallel()

		id, err := resolver.Resolve("springfield.council.example:8080")
		require.NoError(t, err)
		assert.Equal(t, "springfield", id)
	})

	t.Run("lowercases host", func(t *testing.T) {
		t.Parallel()

		id, err := resolver.Resolve("Springfield.Council.Example")
		require.NoError(t, err)
		assert.Equal(t, "springfield", id)
	})

	t.Run("trailing dot is ignored", func(t *testing.T) {
		t.Parallel()

		id, err := resolver.Resolve("springfield.council.example.")
		require.NoError(t, err)
		assert.Equal(t, "springfield", id)
	})
}

func TestHostResolver_RejectsForeignAndMalformedHosts(t *testing.T) {
	t.Parallel()

	resolver := newResolver()

	t.Run("host outside the platform", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.Resolve("evil.example.org")
		assert.ErrorIs(t, err, tenant.ErrUnknownHost)
	})

	t.Run("nested subdomain labels", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.Resolve("a.b.council.example")
		assert.ErrorIs(t, err, tenant.ErrUnknownHost)
	})

	t.Run("invalid subdomain label", func(t *testing.T) {
		t.Parallel()

		for _, host := range []string{
			"under_score.council.example",
			"-leadinghyphen.council.example",
			"trailinghyphen-.council.example",
		} {
			_, err := resolver.Resolve(host)
			assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier, "host %q", host)
		}
	})
}

func TestHostResolver_NoBaseDomain(t *testing.T) {
	t.Parallel()

	resolver := tenant.NewHostResolver(tenant.ResolverConfig{
		CentralDomains: []string{"localhost"},
	})

	id, err := resolver.Resolve("localhost:8080")
	require.NoError(t, err)
	assert.Empty(t, id)

	_, err = resolver.Resolve("springfield.council.example")
	assert.ErrorIs(t, err, tenant.ErrUnknownHost)
}
