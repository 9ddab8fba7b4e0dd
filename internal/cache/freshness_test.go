package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrComputeCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	fc := NewFreshnessCache(NewMemoryCache())

	computeCalls := 0
	compute := func(ctx context.Context) ([]byte, error) {
		computeCalls++
		return []byte(`{"value":42}`), nil
	}

	first, err := fc.GetOrCompute(ctx, "artist:catalog:abc", time.Minute, compute)
	require.NoError(t, err)

	second, err := fc.GetOrCompute(ctx, "artist:catalog:abc", time.Minute, compute)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, computeCalls, "compute should run exactly once within TTL")
}

func TestGetOrComputeRecomputesAfterExpiry(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryCache()

	// Pin the backend clock so expiry is deterministic
	now := time.Now()
	backend.now = func() time.Time { return now }

	fc := NewFreshnessCache(backend)

	computeCalls := 0
	compute := func(ctx context.Context) ([]byte, error) {
		computeCalls++
		return []byte("payload"), nil
	}

	_, err := fc.GetOrCompute(ctx, "key", 10*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, computeCalls)

	now = now.Add(11 * time.Second)

	_, err = fc.GetOrCompute(ctx, "key", 10*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, computeCalls, "compute should run exactly once after expiry")
}

func TestGetOrComputeFailureIsNotMasked(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryCache()

	now := time.Now()
	backend.now = func() time.Time { return now }

	fc := NewFreshnessCache(backend)

	// Seed an entry, let it expire, then break the compute function
	_, err := fc.GetOrCompute(ctx, "key", time.Second, func(ctx context.Context) ([]byte, error) {
		return []byte("stale payload"), nil
	})
	require.NoError(t, err)

	now = now.Add(2 * time.Second)

	computeErr := errors.New("provider down")
	value, err := fc.GetOrCompute(ctx, "key", time.Second, func(ctx context.Context) ([]byte, error) {
		return nil, computeErr
	})

	assert.ErrorIs(t, err, computeErr)
	assert.Nil(t, value, "expired entry must not be served as a fallback")
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	fc := NewFreshnessCache(NewMemoryCache())

	computeCalls := 0
	compute := func(ctx context.Context) ([]byte, error) {
		computeCalls++
		return []byte("v"), nil
	}

	_, err := fc.GetOrCompute(ctx, "key", time.Minute, compute)
	require.NoError(t, err)

	require.NoError(t, fc.Invalidate(ctx, "key"))

	_, err = fc.GetOrCompute(ctx, "key", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, computeCalls)
}

func TestMemoryCacheBasics(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	value, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	value, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "k"))
	exists, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}
