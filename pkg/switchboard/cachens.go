package switchboard

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const centralKeyNamespace = "central"

func tenantKeyNamespace(databaseID string) string {
	return "tenant:" + databaseID
}

// Namespace is a tenant-scoped view over the shared Redis instance. Every
// key is prefixed with the namespace, so two tenants can use identical
// logical keys without ever observing each other's values.
type Namespace struct {
	client redis.UniversalClient
	prefix string
}

// NewNamespace scopes the client to the given key prefix.
func NewNamespace(client redis.UniversalClient, prefix string) *Namespace {
	return &Namespace{client: client, prefix: prefix}
}

// Prefix returns the namespace prefix, mostly useful in logs and tests.
func (n *Namespace) Prefix() string {
	return n.prefix
}

// Key returns the fully-qualified key for a logical key.
func (n *Namespace) Key(key string) string {
	return n.prefix + ":" + key
}

// Get retrieves a value. Returns ErrCacheMiss when absent.
func (n *Namespace) Get(ctx context.Context, key string) (string, error) {
	v, err := n.client.Get(ctx, n.Key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return v, nil
}

// Set stores a value with a TTL. A zero ttl stores without expiry.
func (n *Namespace) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return n.client.Set(ctx, n.Key(key), value, ttl).Err()
}

// Delete removes the given logical keys.
func (n *Namespace) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	qualified := make([]string, len(keys))
	for i, k := range keys {
		qualified[i] = n.Key(k)
	}
	return n.client.Del(ctx, qualified...).Err()
}
