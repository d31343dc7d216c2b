package guard

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Router selects the correct user store and reset-token store for the
// current context. Selection is a pure function of its inputs: the central
// guard always binds to the central connection, a tenant guard binds to the
// connection handed in by the caller (the switchboard scope's active pool).
//
// Guards and brokers are built fresh on every call. The same worker process
// serves central and tenant traffic back to back, so caching a guard across
// requests is exactly the leak this layer exists to prevent.
type Router struct {
	central    DB
	secret     string
	resetTTL   time.Duration
	bcryptCost int
}

// Option configures the Router.
type Option func(*Router)

// WithResetTokenTTL sets the lifetime of issued reset tokens.
func WithResetTokenTTL(ttl time.Duration) Option {
	return func(r *Router) {
		if ttl > 0 {
			r.resetTTL = ttl
		}
	}
}

// WithBcryptCost sets the bcrypt cost for credential hashing.
func WithBcryptCost(cost int) Option {
	return func(r *Router) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			r.bcryptCost = cost
		}
	}
}

// NewRouter creates a guard router. The central connection is fixed at
// construction; tenant connections arrive per call because they change with
// every unit of work.
func NewRouter(central DB, tokenSecret string, opts ...Option) *Router {
	r := &Router{
		central:    central,
		secret:     tokenSecret,
		resetTTL:   time.Hour,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Central returns the guard for the central realm.
func (r *Router) Central() *Guard {
	return &Guard{
		Realm:      RealmCentral,
		Users:      NewUserStore(r.central),
		bcryptCost: r.bcryptCost,
	}
}

// ForTenant returns a guard bound to the tenant's active connection.
func (r *Router) ForTenant(db DB) *Guard {
	return &Guard{
		Realm:      RealmTenant,
		Users:      NewUserStore(db),
		bcryptCost: r.bcryptCost,
	}
}

// CentralBroker returns a password broker whose token store lives on the
// central connection.
func (r *Router) CentralBroker() *PasswordBroker {
	return &PasswordBroker{
		Realm:      RealmCentral,
		Users:      NewUserStore(r.central),
		Tokens:     NewTokenStore(r.central),
		secret:     r.secret,
		ttl:        r.resetTTL,
		bcryptCost: r.bcryptCost,
	}
}

// BrokerForTenant returns a password broker whose token store lives in the
// tenant's own database, never the central one.
func (r *Router) BrokerForTenant(db DB) *PasswordBroker {
	return &PasswordBroker{
		Realm:      RealmTenant,
		Users:      NewUserStore(db),
		Tokens:     NewTokenStore(db),
		secret:     r.secret,
		ttl:        r.resetTTL,
		bcryptCost: r.bcryptCost,
	}
}
