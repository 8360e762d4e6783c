package cachemanager

import (
	"github.com/saviornt/CacheManager/internal/cache"
	"github.com/saviornt/CacheManager/internal/types"
	"github.com/saviornt/CacheManager/internal/warmup"
)

type (
	// Manager is the layered cache orchestrator.
	Manager = cache.Manager

	// CachedFunc memoizes the results of an expensive computation.
	CachedFunc = cache.CachedFunc

	// CacheOptions contains per-operation settings.
	CacheOptions = types.CacheOptions

	// ManagerStats is an aggregate counter snapshot across all layers.
	ManagerStats = types.ManagerStats

	// LayerStats holds per-layer operation counters.
	LayerStats = types.LayerStats

	// LayerType identifies a cache layer backend.
	LayerType = types.LayerType

	// EvictionPolicy selects how the memory layer chooses victims.
	EvictionPolicy = types.EvictionPolicy

	// Serializer provides serialization and deserialization operations.
	Serializer = types.Serializer

	// MetricsRecorder provides operations for recording cache metrics.
	MetricsRecorder = types.MetricsRecorder

	// Logger provides logging operations.
	Logger = types.Logger

	// WarmupProvider produces the value for a key during cache warmup.
	WarmupProvider = warmup.Provider

	// WarmupStats summarizes one warmup run.
	WarmupStats = warmup.Stats
)

const (
	// LayerMemory is the in-process memory layer.
	LayerMemory = types.LayerMemory
	// LayerDisk is the persistent bbolt-backed layer.
	LayerDisk = types.LayerDisk
	// LayerRedis is the shared Redis layer.
	LayerRedis = types.LayerRedis
)

const (
	// EvictLRU evicts the least recently used entry.
	EvictLRU = types.EvictLRU
	// EvictFIFO evicts the oldest insertion.
	EvictFIFO = types.EvictFIFO
	// EvictLFU evicts the least frequently used entry.
	EvictLFU = types.EvictLFU
)

// DefaultOptions returns a default CacheOptions configuration.
func DefaultOptions() *CacheOptions {
	return types.DefaultOptions()
}
