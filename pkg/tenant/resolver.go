package tenant

import (
	"fmt"
	"regexp"
	"strings"
)

// ResolverConfig is the load-time configuration of host resolution.
type ResolverConfig struct {
	// BaseDomain is the shared parent domain of all tenant subdomains,
	// e.g. "council.example" for hosts like "springfield.council.example".
	BaseDomain string `env:"TENANT_BASE_DOMAIN"`

	// CentralDomains are hosts that never resolve to a tenant: the central
	// administration UI, the marketing site, etc.
	CentralDomains []string `env:"CENTRAL_DOMAINS" envSeparator:","`
}

// subdomainPattern matches a single valid DNS label.
var subdomainPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// HostResolver maps a normalized request host to a tenant subdomain.
//
// The empty identifier with a nil error means "central context": the host is
// one of the configured central domains and must never touch tenant-scoped
// resources. That is a routing outcome, not an error.
type HostResolver struct {
	suffix  string
	base    string
	central map[string]struct{}
}

// NewHostResolver builds a resolver from load-time configuration. The base
// domain itself and its www variant are treated as central even when not
// listed explicitly.
func NewHostResolver(cfg ResolverConfig) *HostResolver {
	central := make(map[string]struct{}, len(cfg.CentralDomains)+2)
	for _, d := range cfg.CentralDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			central[d] = struct{}{}
		}
	}

	base := strings.ToLower(strings.Trim(cfg.BaseDomain, "."))
	if base != "" {
		central[base] = struct{}{}
		central["www."+base] = struct{}{}
	}

	return &HostResolver{
		suffix:  "." + base,
		base:    base,
		central: central,
	}
}

// Resolve extracts a tenant subdomain from an already-normalized host.
//
// Returns ("", nil) for central hosts, the subdomain label for hosts under
// the base domain, ErrUnknownHost for hosts that belong to neither, and
// ErrInvalidIdentifier for malformed subdomain labels. The caller is
// responsible for the registry lookup; this function never partially
// resolves.
func (r *HostResolver) Resolve(host string) (string, error) {
	host = strings.ToLower(host)

	// Strip port if present.
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	host = strings.TrimSuffix(host, ".")

	if _, ok := r.central[host]; ok {
		return "", nil
	}

	if r.base == "" || !strings.HasSuffix(host, r.suffix) {
		return "", fmt.Errorf("%w: %q", ErrUnknownHost, host)
	}

	label := strings.TrimSuffix(host, r.suffix)
	// Nested labels like "a.b.council.example" are not valid tenant hosts.
	if label == "" || strings.Contains(label, ".") {
		return "", fmt.Errorf("%w: %q", ErrUnknownHost, host)
	}

	if !subdomainPattern.MatchString(label) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, label)
	}

	return label, nil
}
