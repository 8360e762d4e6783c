package cache

import (
	"context"
	"time"

	"github.com/saviornt/CacheManager/internal/types"
)

// DisabledLayer is a no-op layer used when a tier is switched off in
// configuration but callers still hold a layer reference.
type DisabledLayer struct {
	name string
}

// NewDisabledLayer creates a disabled layer with the given name.
func NewDisabledLayer(name string) *DisabledLayer {
	return &DisabledLayer{name: name + "-disabled"}
}

// Name returns the cache layer name.
func (c *DisabledLayer) Name() string { return c.name }

// Type returns the layer type.
func (c *DisabledLayer) Type() types.LayerType { return types.LayerDisabled }

// IsAvailable returns false as this layer is disabled.
func (c *DisabledLayer) IsAvailable() bool { return false }

// Get always misses.
func (c *DisabledLayer) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// GetMany returns an empty map.
func (c *DisabledLayer) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	return make(map[string][]byte), nil
}

// Set does nothing.
func (c *DisabledLayer) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

// SetMany does nothing.
func (c *DisabledLayer) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing and reports the key as absent.
func (c *DisabledLayer) Delete(ctx context.Context, key string) (bool, error) {
	return false, nil
}

// Clear does nothing.
func (c *DisabledLayer) Clear(ctx context.Context) error { return nil }

// ClearPattern does nothing.
func (c *DisabledLayer) ClearPattern(ctx context.Context, pattern string) (int, error) {
	return 0, nil
}

// Close does nothing.
func (c *DisabledLayer) Close() error { return nil }

// Stats returns empty statistics.
func (c *DisabledLayer) Stats() types.LayerStats { return types.LayerStats{} }

// EntryCount returns 0.
func (c *DisabledLayer) EntryCount() int { return 0 }

var _ types.CacheLayer = (*DisabledLayer)(nil)
var _ types.PatternClearer = (*DisabledLayer)(nil)
