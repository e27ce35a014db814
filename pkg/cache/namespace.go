package cache

import (
	"context"
	"time"
)

// Namespaced prefixes every key of an inner cache. Use it when several
// applications share one Redis or MongoDB deployment.
//
// Example usage:
//
//	shared := cache.Namespace(redisCache, "reposolve:")
type Namespaced struct {
	inner  Cache
	prefix string
}

// Namespace wraps inner so that all keys are prefixed with prefix.
// A nil inner is replaced with a [NullCache].
func Namespace(inner Cache, prefix string) Cache {
	if inner == nil {
		inner = NewNullCache()
	}
	return &Namespaced{inner: inner, prefix: prefix}
}

// Get retrieves a prefixed key.
func (c *Namespaced) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, c.prefix+key)
}

// Set stores a prefixed key.
func (c *Namespaced) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, c.prefix+key, data, ttl)
}

// Delete removes a prefixed key.
func (c *Namespaced) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, c.prefix+key)
}

// Close closes the inner cache.
func (c *Namespaced) Close() error {
	return c.inner.Close()
}
