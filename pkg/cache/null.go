package cache

import (
	"context"
	"time"
)

// NullCache backs the "none" backend and the index cache of warehouse
// repositories that always fetch listings fresh. Reads miss and writes are
// dropped, so every dependency lookup reads the archive again.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
