// Package types provides shared types for the cache engine.
// This package breaks import cycles between pkg/cachemanager and internal/cache.
package types

import "time"

// LayerType identifies a cache layer backend.
type LayerType string

const (
	LayerMemory   LayerType = "memory"
	LayerDisk     LayerType = "disk"
	LayerRedis    LayerType = "redis"
	LayerDisabled LayerType = "disabled"
)

func (t LayerType) String() string {
	return string(t)
}

// EvictionPolicy selects how the memory layer chooses victims when full.
type EvictionPolicy string

const (
	EvictLRU  EvictionPolicy = "lru"
	EvictFIFO EvictionPolicy = "fifo"
	EvictLFU  EvictionPolicy = "lfu"
)

func (p EvictionPolicy) String() string {
	return string(p)
}

func (p EvictionPolicy) Valid() bool {
	switch p {
	case EvictLRU, EvictFIFO, EvictLFU:
		return true
	default:
		return false
	}
}

// CacheOptions carries per-operation settings.
type CacheOptions struct {
	// TTL overrides adaptive and per-layer TTLs when positive.
	TTL time.Duration

	// Role is the caller identity checked by access control, if enabled.
	Role string

	// SkipAdaptive bypasses adaptive TTL adjustment for this operation.
	SkipAdaptive bool

	// FireAndForget enables async writes on layers that support queuing.
	FireAndForget bool
}

func DefaultOptions() *CacheOptions {
	return &CacheOptions{}
}

// LayerStats holds per-layer operation counters.
type LayerStats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Deletes   int64
	Evictions int64
	Errors    int64
}

// ManagerStats is an aggregate snapshot across all layers.
type ManagerStats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Deletes   int64
	Errors    int64
	LayerHits map[string]int64
}

// HitRate returns the hit ratio over all lookups, or 0 with no traffic.
func (s ManagerStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
