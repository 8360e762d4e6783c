package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saviornt/CacheManager/internal/config"
	"github.com/saviornt/CacheManager/internal/types"
)

const (
	disconnectErrorThreshold = 5
)

// RedisCache is the distributed cache layer. Writes can go through a
// bounded async queue (fire and forget) and a health-check worker
// restores the connected flag after outages.
type RedisCache struct {
	client *redis.Client
	config config.RedisConfig
	logger *slog.Logger

	mu            sync.RWMutex
	connected     atomic.Bool
	lastError     error
	lastErrorTime time.Time
	errorCount    atomic.Int64

	writeQueue    chan writeOp
	pendingWrites atomic.Int32
	droppedWrites atomic.Int64
	stopCh        chan struct{}
	wg            sync.WaitGroup

	healthCheckStopCh chan struct{}
	healthCheckWg     sync.WaitGroup

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	errors  atomic.Int64
}

type writeOp struct {
	key   string
	value []byte
	ttl   time.Duration
}

func NewRedisCache(cfg config.RedisConfig, logger *slog.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
	}

	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
		}
		if cfg.TLSSkipVerify {
			logger.Warn("TLS certificate verification is disabled - this is insecure for production use")
		}
	}

	client := redis.NewClient(opts)

	rc := &RedisCache{
		client:            client,
		config:            cfg,
		logger:            logger.With("component", "redis-cache"),
		writeQueue:        make(chan writeOp, cfg.MaxPendingWrites),
		stopCh:            make(chan struct{}),
		healthCheckStopCh: make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		rc.logger.Warn("Redis initial connection failed", "error", err)
		rc.setError(err)
		// Don't return error - allow graceful degradation
	} else {
		rc.connected.Store(true)
		rc.logger.Info("Redis connected", "address", cfg.Address)
	}

	rc.wg.Add(1)
	go rc.asyncWriteWorker()

	if cfg.HealthCheckInterval > 0 {
		rc.healthCheckWg.Add(1)
		go rc.healthCheckWorker()
	}

	return rc, nil
}

func (c *RedisCache) Name() string {
	return "redis"
}

func (c *RedisCache) Type() types.LayerType {
	return types.LayerRedis
}

func (c *RedisCache) IsAvailable() bool {
	return c.connected.Load()
}

// DefaultTTL returns the TTL applied when callers pass none.
func (c *RedisCache) DefaultTTL() time.Duration {
	return c.config.DefaultTTL
}

// Client exposes the underlying go-redis client so that locking and
// pub/sub can share the connection pool.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !c.connected.Load() {
		return nil, false, types.NewCacheError("get", key, "redis", types.ErrConnection)
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
			return nil, false, nil
		}
		c.handleError(err)
		return nil, false, types.NewCacheError("get", key, "redis", err)
	}

	c.hits.Add(1)
	c.clearError()

	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.connected.Load() {
		return types.NewCacheError("set", key, "redis", types.ErrConnection)
	}

	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.handleError(err)
		return types.NewCacheError("set", key, "redis", err)
	}

	c.sets.Add(1)
	c.clearError()

	return nil
}

// SetAsync enqueues the write on the bounded queue and returns
// immediately. A full queue drops the write and reports the error.
func (c *RedisCache) SetAsync(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	select {
	case c.writeQueue <- writeOp{key: key, value: value, ttl: ttl}:
		c.pendingWrites.Add(1)
		return nil
	default:
		c.droppedWrites.Add(1)
		c.logger.Warn("Write queue full, dropping SET",
			"key", key,
			"dropped_total", c.droppedWrites.Load(),
		)
		return types.ErrWriteQueueFull
	}
}

func (c *RedisCache) asyncWriteWorker() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			for {
				select {
				case op := <-c.writeQueue:
					c.executeWrite(op)
				default:
					return
				}
			}
		case op := <-c.writeQueue:
			c.executeWrite(op)
		}
	}
}

func (c *RedisCache) executeWrite(op writeOp) {
	defer c.pendingWrites.Add(-1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.client.Set(ctx, op.key, op.value, op.ttl).Err(); err != nil {
		c.handleError(err)
		c.logger.Debug("Async SET failed", "key", op.key, "error", err)
	} else {
		c.sets.Add(1)
		c.clearError()
	}
}

func (c *RedisCache) healthCheckWorker() {
	defer c.healthCheckWg.Done()

	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.healthCheckStopCh:
			return
		case <-ticker.C:
			c.performHealthCheck()
		}
	}
}

func (c *RedisCache) performHealthCheck() {
	wasConnected := c.connected.Load()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.DialTimeout)
	defer cancel()

	err := c.client.Ping(ctx).Err()
	if err != nil {
		if wasConnected {
			c.logger.Warn("Redis health check failed", "error", err)
			c.setError(err)
		}
		return
	}

	if !wasConnected {
		c.connected.Store(true)
		c.errorCount.Store(0)
		c.logger.Info("Redis connection restored via health check")
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) (bool, error) {
	if !c.connected.Load() {
		return false, types.NewCacheError("delete", key, "redis", types.ErrConnection)
	}

	removed, err := c.client.Del(ctx, key).Result()
	if err != nil {
		c.handleError(err)
		return false, types.NewCacheError("delete", key, "redis", err)
	}

	if removed > 0 {
		c.deletes.Add(1)
	}
	c.clearError()

	return removed > 0, nil
}

func (c *RedisCache) Contains(ctx context.Context, key string) (bool, error) {
	if !c.connected.Load() {
		return false, types.NewCacheError("contains", key, "redis", types.ErrConnection)
	}

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.handleError(err)
		return false, types.NewCacheError("contains", key, "redis", err)
	}

	c.clearError()
	return exists > 0, nil
}

// Clear removes every key visible to this client via SCAN. Callers that
// share the Redis database with other tenants should clear by namespace
// pattern instead.
func (c *RedisCache) Clear(ctx context.Context) error {
	if !c.connected.Load() {
		return types.NewCacheError("clear", "", "redis", types.ErrConnection)
	}

	_, err := c.clearByPatternInternal(ctx, "*")
	return err
}

func (c *RedisCache) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if !c.connected.Load() {
		return nil, types.NewCacheError("getmany", "", "redis", types.ErrConnection)
	}

	if len(keys) == 0 {
		return make(map[string][]byte), nil
	}

	results, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.handleError(err)
		return nil, types.NewCacheError("getmany", "", "redis", err)
	}

	resultMap := make(map[string][]byte, len(keys))
	for i, result := range results {
		if result != nil {
			if str, ok := result.(string); ok {
				resultMap[keys[i]] = []byte(str)
				c.hits.Add(1)
			}
		} else {
			c.misses.Add(1)
		}
	}

	c.clearError()
	return resultMap, nil
}

func (c *RedisCache) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	if !c.connected.Load() {
		return types.NewCacheError("setmany", "", "redis", types.ErrConnection)
	}

	if len(items) == 0 {
		return nil
	}

	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	pipe := c.client.Pipeline()

	for key, value := range items {
		pipe.Set(ctx, key, value, ttl)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		c.handleError(err)
		return types.NewCacheError("setmany", "", "redis", err)
	}

	c.sets.Add(int64(len(items)))
	c.clearError()

	return nil
}

// ClearPattern removes keys matching the pattern via SCAN and returns
// the number deleted.
func (c *RedisCache) ClearPattern(ctx context.Context, pattern string) (int, error) {
	if !c.connected.Load() {
		return 0, types.NewCacheError("clear", pattern, "redis", types.ErrConnection)
	}

	return c.clearByPatternInternal(ctx, pattern)
}

func (c *RedisCache) clearByPatternInternal(ctx context.Context, pattern string) (int, error) {
	var cursor uint64
	var deleted int

	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err)
			return deleted, types.NewCacheError("clear", pattern, "redis", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err)
				return deleted, types.NewCacheError("clear", pattern, "redis", err)
			}
			deleted += len(keys)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	c.logger.Debug("Cleared keys by pattern", "pattern", pattern, "deleted", deleted)
	c.clearError()
	return deleted, nil
}

func (c *RedisCache) Close() error {
	c.connected.Store(false)

	close(c.healthCheckStopCh)
	c.healthCheckWg.Wait()

	close(c.stopCh)
	c.wg.Wait()

	return c.client.Close()
}

func (c *RedisCache) PendingWrites() int {
	return int(c.pendingWrites.Load())
}

func (c *RedisCache) DroppedWrites() int64 {
	return c.droppedWrites.Load()
}

// Stats returns redis cache statistics.
func (c *RedisCache) Stats() types.LayerStats {
	return types.LayerStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
		Errors:  c.errors.Load(),
	}
}

// EntryCount returns the number of keys in the configured database.
func (c *RedisCache) EntryCount() int {
	if !c.connected.Load() {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.ReadTimeout)
	defer cancel()

	size, err := c.client.DBSize(ctx).Result()
	if err != nil {
		return 0
	}
	return int(size)
}

func (c *RedisCache) handleError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastError = err
	c.lastErrorTime = time.Now()
	c.errors.Add(1)
	count := c.errorCount.Add(1)

	if count >= disconnectErrorThreshold {
		if c.connected.CompareAndSwap(true, false) {
			c.logger.Warn("Redis marked as disconnected after errors",
				"error_count", count,
				"last_error", err,
			)
		}
	}
}

func (c *RedisCache) clearError() {
	if c.errorCount.Swap(0) > 0 {
		if c.connected.CompareAndSwap(false, true) {
			c.logger.Info("Redis connection restored")
		}
	}
}

func (c *RedisCache) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = err
	c.lastErrorTime = time.Now()
	c.connected.Store(false)
}

func (c *RedisCache) LastError() (error, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError, c.lastErrorTime
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Reconnect(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis reconnect: %w", err)
	}
	c.connected.Store(true)
	c.errorCount.Store(0)
	c.logger.Info("Redis reconnected successfully")
	return nil
}

var _ types.CacheLayer = (*RedisCache)(nil)
var _ types.PatternClearer = (*RedisCache)(nil)
var _ types.DefaultTTLProvider = (*RedisCache)(nil)
