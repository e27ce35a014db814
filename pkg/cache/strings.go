package cache

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/reposolve/pkg/observability"
)

// LoadStrings reads a string list stored with [StoreStrings].
// A corrupt entry is deleted and reported as a miss.
func LoadStrings(ctx context.Context, c Cache, k Key) ([]string, bool, error) {
	data, ok, err := c.Get(ctx, k.String())
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, k.Kind)
		return nil, false, err
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		_ = c.Delete(ctx, k.String())
		observability.Cache().OnCacheMiss(ctx, k.Kind)
		return nil, false, nil
	}
	observability.Cache().OnCacheHit(ctx, k.Kind)
	return values, true, nil
}

// StoreStrings stores values under k without expiration. Storing the same
// value twice is harmless.
func StoreStrings(ctx context.Context, c Cache, k Key, values []string) error {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, k.String(), data, 0); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, k.Kind, len(data))
	return nil
}
