package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/saviornt/CacheManager/internal/config"
	"github.com/saviornt/CacheManager/internal/resilience"
	"github.com/saviornt/CacheManager/internal/types"
)

var (
	bucketEntries = []byte("entries")
	bucketExpiry  = []byte("expiry")
)

const (
	diskFileName       = "cache.db"
	diskFileMode       = 0o600
	diskAcquireTimeout = 250 * time.Millisecond
	compactTxMaxSize   = 1 << 20
)

// DiskCache is the persistent cache layer backed by a bbolt file.
// Payloads live in the entries bucket, expiry timestamps in a parallel
// expiry bucket. A bulkhead bounds concurrent file operations and two
// circuit breakers isolate read and write failures independently: an
// open read breaker degrades to misses while an open write breaker
// rejects writes outright.
type DiskCache struct {
	config config.DiskConfig
	logger *slog.Logger

	dbMu sync.RWMutex
	db   *bolt.DB
	path string

	workers      *resilience.Bulkhead
	readBreaker  resilience.Breaker
	writeBreaker resilience.Breaker

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
	errors    atomic.Int64

	closed atomic.Bool
}

// NewDiskCache opens (or creates) the cache database under cfg.Dir.
func NewDiskCache(cfg config.DiskConfig, breakerCfg config.CircuitBreakerConfig, logger *slog.Logger) (*DiskCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, types.NewCacheError("open", "", "disk", err)
	}

	path := filepath.Join(cfg.Dir, diskFileName)
	db, err := bolt.Open(path, diskFileMode, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, types.NewCacheError("open", "", "disk", err)
	}

	if err := createDiskBuckets(db); err != nil {
		_ = db.Close()
		return nil, types.NewCacheError("open", "", "disk", err)
	}

	dc := &DiskCache{
		config:  cfg,
		logger:  logger.With("component", "disk-cache"),
		db:      db,
		path:    path,
		workers: resilience.NewBulkhead(cfg.Workers, cfg.Workers*4, diskAcquireTimeout),
	}

	if breakerCfg.Enabled {
		dc.readBreaker = resilience.NewCircuitBreaker("disk-read", breakerCfg)
		dc.writeBreaker = resilience.NewCircuitBreaker("disk-write", breakerCfg)
	} else {
		dc.readBreaker = resilience.NewDisabledCircuitBreaker()
		dc.writeBreaker = resilience.NewDisabledCircuitBreaker()
	}

	dc.logger.Info("Disk cache opened", "path", path, "workers", cfg.Workers)
	return dc, nil
}

// Name returns the cache layer name.
func (c *DiskCache) Name() string {
	return "disk"
}

// Type returns the layer type.
func (c *DiskCache) Type() types.LayerType {
	return types.LayerDisk
}

// IsAvailable reports whether the layer can serve requests. Breaker
// state is handled per path: an open read breaker degrades reads to
// misses and an open write breaker rejects writes, so neither takes
// the whole layer out.
func (c *DiskCache) IsAvailable() bool {
	return !c.closed.Load()
}

// DefaultTTL returns the TTL applied when callers pass none.
func (c *DiskCache) DefaultTTL() time.Duration {
	return c.config.DefaultTTL
}

// ReadBreaker exposes the read-path breaker for health reporting.
func (c *DiskCache) ReadBreaker() resilience.Breaker { return c.readBreaker }

// WriteBreaker exposes the write-path breaker for health reporting.
func (c *DiskCache) WriteBreaker() resilience.Breaker { return c.writeBreaker }

// Get retrieves a value. An open read breaker degrades to a miss so the
// orchestrator can fall through to the next layer.
func (c *DiskCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.closed.Load() {
		return nil, false, types.ErrClosed
	}
	if !c.readBreaker.Allow() {
		c.misses.Add(1)
		return nil, false, nil
	}

	var value []byte
	var found, expired bool

	err := c.workers.ExecuteCtx(ctx, func(ctx context.Context) error {
		c.dbMu.RLock()
		defer c.dbMu.RUnlock()

		return c.db.View(func(tx *bolt.Tx) error {
			data := tx.Bucket(bucketEntries).Get([]byte(key))
			if data == nil {
				return nil
			}
			if expiryExceeded(tx.Bucket(bucketExpiry).Get([]byte(key)), time.Now()) {
				expired = true
				return nil
			}
			value = append([]byte(nil), data...)
			found = true
			return nil
		})
	})
	if err != nil {
		c.readBreaker.RecordFailure()
		c.errors.Add(1)
		return nil, false, types.NewCacheError("get", key, "disk", err)
	}
	c.readBreaker.RecordSuccess()

	if expired {
		// Lazy expiry: remove the stale entry out of band
		_, _ = c.Delete(ctx, key)
		c.misses.Add(1)
		return nil, false, nil
	}
	if !found {
		c.misses.Add(1)
		return nil, false, nil
	}

	c.hits.Add(1)
	return value, true, nil
}

// GetMany retrieves multiple keys in one transaction.
func (c *DiskCache) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}
	result := make(map[string][]byte, len(keys))
	if !c.readBreaker.Allow() {
		return result, nil
	}

	now := time.Now()
	err := c.workers.ExecuteCtx(ctx, func(ctx context.Context) error {
		c.dbMu.RLock()
		defer c.dbMu.RUnlock()

		return c.db.View(func(tx *bolt.Tx) error {
			entries := tx.Bucket(bucketEntries)
			expiry := tx.Bucket(bucketExpiry)
			for _, key := range keys {
				data := entries.Get([]byte(key))
				if data == nil || expiryExceeded(expiry.Get([]byte(key)), now) {
					continue
				}
				result[key] = append([]byte(nil), data...)
			}
			return nil
		})
	})
	if err != nil {
		c.readBreaker.RecordFailure()
		c.errors.Add(1)
		return nil, types.NewCacheError("getmany", "", "disk", err)
	}
	c.readBreaker.RecordSuccess()
	return result, nil
}

// Set stores a value. An open write breaker rejects the write.
func (c *DiskCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.SetMany(ctx, map[string][]byte{key: value}, ttl)
}

// SetMany stores multiple entries in one transaction.
func (c *DiskCache) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	if !c.writeBreaker.Allow() {
		return types.NewCacheError("set", "", "disk", types.ErrCircuitOpen)
	}

	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	var expiresAt []byte
	if ttl > 0 {
		expiresAt = encodeExpiry(time.Now().Add(ttl))
	}

	err := c.workers.ExecuteCtx(ctx, func(ctx context.Context) error {
		c.dbMu.RLock()
		defer c.dbMu.RUnlock()

		return c.db.Update(func(tx *bolt.Tx) error {
			entries := tx.Bucket(bucketEntries)
			expiry := tx.Bucket(bucketExpiry)
			for key, value := range items {
				if err := entries.Put([]byte(key), value); err != nil {
					return err
				}
				if expiresAt != nil {
					if err := expiry.Put([]byte(key), expiresAt); err != nil {
						return err
					}
				} else if err := expiry.Delete([]byte(key)); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		c.writeBreaker.RecordFailure()
		c.errors.Add(1)
		return types.NewCacheError("set", "", "disk", err)
	}

	c.writeBreaker.RecordSuccess()
	c.sets.Add(int64(len(items)))
	return nil
}

// Delete removes a value and reports whether it existed.
func (c *DiskCache) Delete(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, types.ErrClosed
	}
	if !c.writeBreaker.Allow() {
		return false, types.NewCacheError("delete", key, "disk", types.ErrCircuitOpen)
	}

	var existed bool
	err := c.workers.ExecuteCtx(ctx, func(ctx context.Context) error {
		c.dbMu.RLock()
		defer c.dbMu.RUnlock()

		return c.db.Update(func(tx *bolt.Tx) error {
			entries := tx.Bucket(bucketEntries)
			existed = entries.Get([]byte(key)) != nil
			if err := entries.Delete([]byte(key)); err != nil {
				return err
			}
			return tx.Bucket(bucketExpiry).Delete([]byte(key))
		})
	})
	if err != nil {
		c.writeBreaker.RecordFailure()
		c.errors.Add(1)
		return false, types.NewCacheError("delete", key, "disk", err)
	}

	c.writeBreaker.RecordSuccess()
	if existed {
		c.deletes.Add(1)
	}
	return existed, nil
}

// Clear removes the backing file and opens a fresh one, reclaiming the
// space a bbolt file never gives back on bucket deletion.
func (c *DiskCache) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return types.ErrClosed
	}

	c.dbMu.Lock()
	defer c.dbMu.Unlock()

	if err := c.db.Close(); err != nil {
		c.errors.Add(1)
		return types.NewCacheError("clear", "", "disk", err)
	}
	if err := os.Remove(c.path); err != nil {
		c.errors.Add(1)
		return types.NewCacheError("clear", "", "disk", err)
	}

	db, err := bolt.Open(c.path, diskFileMode, &bolt.Options{Timeout: time.Second})
	if err != nil {
		c.errors.Add(1)
		return types.NewCacheError("clear", "", "disk", err)
	}
	if err := createDiskBuckets(db); err != nil {
		_ = db.Close()
		c.errors.Add(1)
		return types.NewCacheError("clear", "", "disk", err)
	}
	c.db = db

	c.logger.Info("Disk cache cleared", "path", c.path)
	return nil
}

// ClearPattern removes entries matching the given glob-style pattern.
func (c *DiskCache) ClearPattern(ctx context.Context, pattern string) (int, error) {
	if c.closed.Load() {
		return 0, types.ErrClosed
	}

	removed := 0
	err := c.workers.ExecuteCtx(ctx, func(ctx context.Context) error {
		c.dbMu.RLock()
		defer c.dbMu.RUnlock()

		return c.db.Update(func(tx *bolt.Tx) error {
			entries := tx.Bucket(bucketEntries)
			expiry := tx.Bucket(bucketExpiry)

			var keysToDelete [][]byte
			cursor := entries.Cursor()
			for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
				if matchPattern(string(k), pattern) {
					keysToDelete = append(keysToDelete, append([]byte(nil), k...))
				}
			}

			for _, k := range keysToDelete {
				if err := entries.Delete(k); err != nil {
					return err
				}
				if err := expiry.Delete(k); err != nil {
					return err
				}
			}
			removed = len(keysToDelete)
			return nil
		})
	})
	if err != nil {
		c.errors.Add(1)
		return 0, types.NewCacheError("clear", pattern, "disk", err)
	}
	return removed, nil
}

// PurgeExpired removes every entry whose expiry has passed and returns
// the number removed.
func (c *DiskCache) PurgeExpired(ctx context.Context) (int, error) {
	if c.closed.Load() {
		return 0, types.ErrClosed
	}

	now := time.Now()
	purged := 0
	err := c.workers.ExecuteCtx(ctx, func(ctx context.Context) error {
		c.dbMu.RLock()
		defer c.dbMu.RUnlock()

		return c.db.Update(func(tx *bolt.Tx) error {
			entries := tx.Bucket(bucketEntries)
			expiry := tx.Bucket(bucketExpiry)

			var keysToDelete [][]byte
			cursor := expiry.Cursor()
			for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
				if expiryExceeded(v, now) {
					keysToDelete = append(keysToDelete, append([]byte(nil), k...))
				}
			}

			for _, k := range keysToDelete {
				if err := entries.Delete(k); err != nil {
					return err
				}
				if err := expiry.Delete(k); err != nil {
					return err
				}
			}
			purged = len(keysToDelete)
			return nil
		})
	})
	if err != nil {
		c.errors.Add(1)
		return 0, types.NewCacheError("purge", "", "disk", err)
	}

	c.evictions.Add(int64(purged))
	return purged, nil
}

// Compact rewrites the database file to reclaim space freed by deletes.
// The database is briefly swapped out while the compacted file replaces
// the original.
func (c *DiskCache) Compact(ctx context.Context) error {
	if c.closed.Load() {
		return types.ErrClosed
	}

	tmpPath := c.path + ".compact"

	c.dbMu.Lock()
	defer c.dbMu.Unlock()

	dst, err := bolt.Open(tmpPath, diskFileMode, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return types.NewCacheError("compact", "", "disk", err)
	}

	if err := bolt.Compact(dst, c.db, compactTxMaxSize); err != nil {
		_ = dst.Close()
		_ = os.Remove(tmpPath)
		return types.NewCacheError("compact", "", "disk", err)
	}

	if err := dst.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return types.NewCacheError("compact", "", "disk", err)
	}
	if err := c.db.Close(); err != nil {
		return types.NewCacheError("compact", "", "disk", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return types.NewCacheError("compact", "", "disk", err)
	}

	db, err := bolt.Open(c.path, diskFileMode, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return types.NewCacheError("compact", "", "disk", err)
	}
	c.db = db

	c.logger.Info("Disk cache compacted", "path", c.path)
	return nil
}

// SizeBytes returns the size of the database file on disk.
func (c *DiskCache) SizeBytes() (int64, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return 0, fmt.Errorf("stat cache file: %w", err)
	}
	return info.Size(), nil
}

// Close closes the database.
func (c *DiskCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.dbMu.Lock()
	defer c.dbMu.Unlock()
	return c.db.Close()
}

// Stats returns disk cache statistics.
func (c *DiskCache) Stats() types.LayerStats {
	return types.LayerStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Deletes:   c.deletes.Load(),
		Evictions: c.evictions.Load(),
		Errors:    c.errors.Load(),
	}
}

// EntryCount returns the number of entries in the entries bucket.
func (c *DiskCache) EntryCount() int {
	count := 0
	c.dbMu.RLock()
	defer c.dbMu.RUnlock()

	if c.closed.Load() {
		return 0
	}
	_ = c.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketEntries).Stats().KeyN
		return nil
	})
	return count
}

func createDiskBuckets(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketExpiry)
		return err
	})
}

func encodeExpiry(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
	return buf
}

// expiryExceeded reports whether an expiry record (possibly absent)
// marks an entry as stale.
func expiryExceeded(raw []byte, now time.Time) bool {
	if len(raw) != 8 {
		return false
	}
	return now.UnixNano() > int64(binary.BigEndian.Uint64(raw))
}

var _ types.CacheLayer = (*DiskCache)(nil)
var _ types.PatternClearer = (*DiskCache)(nil)
var _ types.DefaultTTLProvider = (*DiskCache)(nil)
