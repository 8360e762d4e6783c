package cache

import (
	"context"
	"strings"
	"time"

	"github.com/saviornt/CacheManager/internal/types"
)

// CachedFunc memoizes the results of an expensive computation. Results
// are keyed by the function name plus its arguments, so distinct
// argument tuples cache independently.
type CachedFunc struct {
	manager *Manager
	name    string
	ttl     time.Duration
}

// Cached returns a memoization handle for a named computation. A zero
// ttl defers to adaptive and layer defaults.
func (m *Manager) Cached(name string, ttl time.Duration) *CachedFunc {
	return &CachedFunc{
		manager: m,
		name:    name,
		ttl:     ttl,
	}
}

// Key returns the cache key for an argument tuple.
func (f *CachedFunc) Key(args ...string) string {
	if len(args) == 0 {
		return f.name
	}
	return f.name + ":" + strings.Join(args, ":")
}

// Do loads the memoized result for args into dest, invoking compute on
// a miss. Concurrent misses for the same argument tuple share a single
// compute call.
func (f *CachedFunc) Do(ctx context.Context, dest any, compute func(ctx context.Context) (any, error), args ...string) error {
	var opts []types.Option
	if f.ttl > 0 {
		opts = append(opts, types.WithTTL(f.ttl))
	}
	return f.manager.GetOrCreate(ctx, f.Key(args...), dest, func() (any, error) {
		return compute(ctx)
	}, opts...)
}

// Invalidate drops the memoized result for args. It reports whether a
// result was cached.
func (f *CachedFunc) Invalidate(ctx context.Context, args ...string) (bool, error) {
	return f.manager.Delete(ctx, f.Key(args...))
}
