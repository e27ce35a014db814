// Package cache stores previously fetched text so that repeated repository
// queries do not repeat network or filesystem work.
//
// # Backends
//
//   - [Memory]: process-lifetime map, the default
//   - [FileCache]: JSON files on disk, shared between CLI runs
//   - [RedisCache]: a Redis server, shared between machines
//   - [MongoCache]: a MongoDB collection, shared between machines
//   - [NullCache]: stores nothing
//
// All backends are safe for concurrent use. Repositories receive their cache
// at construction, so tests can use isolated instances.
//
// # Keys
//
// Entries are addressed by a four-part [Key]: the source host ("localhost"
// for local directories), a kind tag such as "deps", the package name and
// the version string.
package cache

import (
	"context"
	"strings"
	"time"
)

// LocalHost is the host part of keys produced by local sources.
const LocalHost = "localhost"

// Cache is a byte-blob key/value store.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Key identifies a cached blob.
type Key struct {
	Host    string // index host or LocalHost
	Kind    string // what is cached, e.g. "deps"
	Name    string // normalized package name
	Version string // version string
}

// String joins the key parts with ":".
func (k Key) String() string {
	return strings.Join([]string{strings.ToLower(k.Host), k.Kind, k.Name, k.Version}, ":")
}
