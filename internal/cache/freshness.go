package cache

import (
	"context"
	"log/slog"
	"time"
)

// ComputeFunc produces the value for a cache key on miss or expiry
type ComputeFunc func(ctx context.Context) ([]byte, error)

// FreshnessCache is a get-or-compute layer over a Cache backend. It is used
// to avoid redundant provider calls and redundant expensive aggregate
// queries.
//
// A failed compute is returned to the caller as-is: the previous entry is
// never served as a fallback, so a broken provider cannot hide behind stale
// data.
type FreshnessCache struct {
	backend Cache
}

// NewFreshnessCache wraps a Cache backend
func NewFreshnessCache(backend Cache) *FreshnessCache {
	return &FreshnessCache{backend: backend}
}

// GetOrCompute returns the cached payload for key if present and unexpired,
// otherwise invokes compute, stores the result with the given TTL, and
// returns it.
func (f *FreshnessCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, error) {
	cached, err := f.backend.Get(ctx, key)
	if err != nil {
		// A broken cache backend degrades to compute-every-time
		slog.Warn("cache read failed, computing directly", "key", key, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := f.backend.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("failed to store computed value", "key", key, "error", err)
	}

	return value, nil
}

// Invalidate removes a key so the next GetOrCompute recomputes it
func (f *FreshnessCache) Invalidate(ctx context.Context, key string) error {
	return f.backend.Delete(ctx, key)
}
