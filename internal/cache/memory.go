package cache

import (
	"container/list"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saviornt/CacheManager/internal/config"
	"github.com/saviornt/CacheManager/internal/types"
)

// memEntry is a single cached value with its expiry and bookkeeping for
// the eviction policies.
//
//nolint:govet // Field order mirrors lifecycle, not alignment
type memEntry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero means no expiry
	freq      int64
	seq       uint64
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is the in-process cache layer. It holds entries in a map
// bounded by MaxEntries and evicts synchronously during Set according to
// the configured policy (LRU, FIFO or LFU).
type MemoryCache struct {
	config config.MemoryConfig
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // LRU recency order or FIFO insertion order
	seq     uint64

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
	errors    atomic.Int64

	janitorStop chan struct{}
	closed      atomic.Bool
}

// NewMemoryCache creates a new memory cache with the given configuration.
func NewMemoryCache(cfg config.MemoryConfig, logger *slog.Logger) (*MemoryCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.EvictionPolicy.Valid() {
		cfg.EvictionPolicy = types.EvictLRU
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}

	mc := &MemoryCache{
		config:  cfg,
		logger:  logger.With("component", "memory-cache"),
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}

	if cfg.CleanupInterval > 0 {
		mc.janitorStop = make(chan struct{})
		go mc.janitor(cfg.CleanupInterval)
	}

	return mc, nil
}

// Name returns the cache layer name.
func (c *MemoryCache) Name() string {
	return "memory"
}

// Type returns the layer type.
func (c *MemoryCache) Type() types.LayerType {
	return types.LayerMemory
}

// IsAvailable returns true if the cache is not closed.
func (c *MemoryCache) IsAvailable() bool {
	return !c.closed.Load()
}

// DefaultTTL returns the TTL applied when callers pass none.
func (c *MemoryCache) DefaultTTL() time.Duration {
	return c.config.DefaultTTL
}

// Get retrieves a value from the memory cache.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.closed.Load() {
		return nil, false, types.ErrClosed
	}

	c.mu.Lock()
	elem, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false, nil
	}

	entry := elem.Value.(*memEntry)
	if entry.expired(time.Now()) {
		c.removeLocked(key, elem)
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false, nil
	}

	c.touchLocked(elem, entry)
	value := entry.value
	c.mu.Unlock()

	c.hits.Add(1)
	return value, true, nil
}

// GetMany retrieves multiple keys, returning only the ones present.
func (c *MemoryCache) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, found, err := c.Get(ctx, key)
		if err != nil {
			return result, err
		}
		if found {
			result[key] = value
		}
	}
	return result, nil
}

// Set stores a value. When the entry count exceeds MaxEntries the
// configured policy evicts synchronously before Set returns.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return types.ErrClosed
	}

	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*memEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.touchLocked(elem, entry)
	} else {
		c.seq++
		entry := &memEntry{
			key:       key,
			value:     value,
			expiresAt: expiresAt,
			freq:      1,
			seq:       c.seq,
		}
		c.entries[key] = c.order.PushBack(entry)
	}

	for len(c.entries) > c.config.MaxEntries {
		c.evictOneLocked()
	}
	c.mu.Unlock()

	c.sets.Add(1)
	return nil
}

// SetMany stores multiple entries with a shared TTL.
func (c *MemoryCache) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	for key, value := range items {
		if err := c.Set(ctx, key, value, ttl); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a value and reports whether it existed.
func (c *MemoryCache) Delete(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, types.ErrClosed
	}

	c.mu.Lock()
	elem, ok := c.entries[key]
	if ok {
		c.removeLocked(key, elem)
	}
	c.mu.Unlock()

	if ok {
		c.deletes.Add(1)
	}
	return ok, nil
}

// Contains checks if a non-expired key exists without policy bookkeeping.
func (c *MemoryCache) Contains(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, types.ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return !elem.Value.(*memEntry).expired(time.Now()), nil
}

// Clear removes all entries from the memory cache.
func (c *MemoryCache) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return types.ErrClosed
	}

	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.order = list.New()
	c.mu.Unlock()
	return nil
}

// ClearPattern removes entries matching the given glob-style pattern and
// returns the number removed.
func (c *MemoryCache) ClearPattern(ctx context.Context, pattern string) (int, error) {
	if c.closed.Load() {
		return 0, types.ErrClosed
	}

	c.mu.Lock()
	var keysToDelete []string
	for key := range c.entries {
		if matchPattern(key, pattern) {
			keysToDelete = append(keysToDelete, key)
		}
	}
	for _, key := range keysToDelete {
		c.removeLocked(key, c.entries[key])
	}
	c.mu.Unlock()

	c.logger.Debug("Cleared entries by pattern",
		"pattern", pattern,
		"deleted", len(keysToDelete),
	)

	return len(keysToDelete), nil
}

// PurgeExpired removes all expired entries and returns the number removed.
func (c *MemoryCache) PurgeExpired() int {
	now := time.Now()

	c.mu.Lock()
	var keysToDelete []string
	for key, elem := range c.entries {
		if elem.Value.(*memEntry).expired(now) {
			keysToDelete = append(keysToDelete, key)
		}
	}
	for _, key := range keysToDelete {
		c.removeLocked(key, c.entries[key])
	}
	c.mu.Unlock()

	return len(keysToDelete)
}

// Close closes the memory cache and releases resources.
func (c *MemoryCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.janitorStop != nil {
		close(c.janitorStop)
	}
	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.order = list.New()
	c.mu.Unlock()
	return nil
}

// Stats returns memory cache statistics.
func (c *MemoryCache) Stats() types.LayerStats {
	return types.LayerStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Deletes:   c.deletes.Load(),
		Evictions: c.evictions.Load(),
		Errors:    c.errors.Load(),
	}
}

// EntryCount returns the number of entries in the memory cache.
func (c *MemoryCache) EntryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// HitRatio returns the cache hit ratio.
func (c *MemoryCache) HitRatio() float64 {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// touchLocked applies per-policy bookkeeping on access or update.
func (c *MemoryCache) touchLocked(elem *list.Element, entry *memEntry) {
	switch c.config.EvictionPolicy {
	case types.EvictLRU:
		c.order.MoveToBack(elem)
	case types.EvictLFU:
		entry.freq++
	case types.EvictFIFO:
		// Insertion order is immutable
	}
}

// evictOneLocked removes one victim according to the policy.
// LRU and FIFO take the list front; LFU scans for the lowest frequency,
// breaking ties by earliest insertion.
func (c *MemoryCache) evictOneLocked() {
	if len(c.entries) == 0 {
		return
	}

	var victim *list.Element
	if c.config.EvictionPolicy == types.EvictLFU {
		for _, elem := range c.entries {
			if victim == nil {
				victim = elem
				continue
			}
			e, v := elem.Value.(*memEntry), victim.Value.(*memEntry)
			if e.freq < v.freq || (e.freq == v.freq && e.seq < v.seq) {
				victim = elem
			}
		}
	} else {
		victim = c.order.Front()
	}

	if victim != nil {
		entry := victim.Value.(*memEntry)
		c.removeLocked(entry.key, victim)
		c.evictions.Add(1)
	}
}

func (c *MemoryCache) removeLocked(key string, elem *list.Element) {
	delete(c.entries, key)
	c.order.Remove(elem)
}

func (c *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.janitorStop:
			return
		case <-ticker.C:
			if purged := c.PurgeExpired(); purged > 0 {
				c.logger.Debug("Purged expired entries", "count", purged)
			}
		}
	}
}

func matchPattern(key, pattern string) bool {
	if pattern == "*" {
		return true
	}

	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(key, prefix)
	}

	if strings.HasPrefix(pattern, "*") {
		suffix := strings.TrimPrefix(pattern, "*")
		return strings.HasSuffix(key, suffix)
	}

	if strings.Contains(pattern, "*") {
		parts := strings.Split(pattern, "*")
		if len(parts) == 2 {
			return strings.HasPrefix(key, parts[0]) && strings.HasSuffix(key, parts[1])
		}
	}

	return key == pattern
}

var _ types.CacheLayer = (*MemoryCache)(nil)
var _ types.PatternClearer = (*MemoryCache)(nil)
var _ types.DefaultTTLProvider = (*MemoryCache)(nil)
