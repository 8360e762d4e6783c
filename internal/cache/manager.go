package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/saviornt/CacheManager/internal/adaptivettl"
	"github.com/saviornt/CacheManager/internal/config"
	"github.com/saviornt/CacheManager/internal/invalidation"
	"github.com/saviornt/CacheManager/internal/metrics"
	"github.com/saviornt/CacheManager/internal/metrics/datadog"
	"github.com/saviornt/CacheManager/internal/resilience"
	"github.com/saviornt/CacheManager/internal/security"
	"github.com/saviornt/CacheManager/internal/types"
	"github.com/saviornt/CacheManager/internal/warmup"
)

// DefaultShutdownTimeout is the default timeout for shutting down the cache manager.
const DefaultShutdownTimeout = 30 * time.Second

// DefaultBackgroundOpTimeout is the default timeout for background operations.
const DefaultBackgroundOpTimeout = 5 * time.Second

const bytesPerMB = 1 << 20

// Manager orchestrates the configured cache layers: reads walk layers
// in priority order with read-through backfill, writes fan out to every
// layer, and cross-node invalidation keeps peers consistent.
//
//nolint:govet // Field order groups collaborators, not alignment
type Manager struct {
	config       *config.Config
	logger       *slog.Logger
	layers       []types.CacheLayer
	codec        *valueCodec
	namespacer   *types.Namespacer
	keyValidator *types.KeyValidator
	retrier      resilience.RetryExecutor
	metrics      types.MetricsRecorder
	access       types.AccessControl

	// tracker is set when the manager owns its metrics recorder and can
	// produce snapshots.
	tracker *metrics.Tracker

	adaptive *adaptivettl.Manager
	inval    *invalidation.Manager
	warmer   *warmup.Warmer

	// disk and redis keep typed handles for maintenance paths the
	// CacheLayer interface does not cover.
	disk  *DiskCache
	redis *RedisCache

	bgPublisher *metrics.BackgroundPublisher

	sfGroup singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	errorsCnt atomic.Int64
	layerHits map[string]*atomic.Int64

	shutdownCancel context.CancelFunc
	shutdownCtx    context.Context
	bgWg           sync.WaitGroup
	bgMu           sync.Mutex
	closed         atomic.Bool
}

// NewManager creates a cache manager with the given configuration and options.
//
//nolint:gocyclo // Configuration initialization requires multiple conditional checks
func NewManager(cfg *config.Config, opts *types.ManagerOptions) (*Manager, error) {
	logger := slog.Default()
	if opts != nil && opts.Logger != nil {
		logger = slog.New(slogAdapter{logger: opts.Logger})
	}
	logger = logger.With("component", "cache-manager")

	if opts != nil {
		if opts.RedisAddress != "" {
			cfg.Redis.Address = opts.RedisAddress
		}
		if !opts.RedisPassword.IsEmpty() {
			cfg.Redis.Password = opts.RedisPassword
		}
		if opts.RedisDB != 0 {
			cfg.Redis.DB = opts.RedisDB
		}
		if opts.DisableRedis {
			cfg.Redis.Enabled = false
		}
		if opts.DisableResilience {
			cfg.CircuitBreaker.Enabled = false
			cfg.Retry.Enabled = false
		}
	}

	namespacer, err := types.NewNamespacer(cfg.Namespace)
	if err != nil {
		return nil, err
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	m := &Manager{
		config:         cfg,
		logger:         logger,
		namespacer:     namespacer,
		layerHits:      make(map[string]*atomic.Int64),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	if cfg.KeyValidation.Enabled {
		m.keyValidator = types.NewKeyValidator(cfg.KeyValidation.ToTypesConfig())
	}

	if err := m.initCodec(opts); err != nil {
		shutdownCancel()
		return nil, err
	}

	m.initLayers()
	m.initResilience()
	m.initMetrics(opts)
	m.initAdaptiveTTL()
	m.initInvalidation()
	m.initWarmup()
	m.startBackground()

	return m, nil
}

func (m *Manager) initCodec(opts *types.ManagerOptions) error {
	suite, err := security.NewSuite(m.config.Security)
	if err != nil {
		return err
	}

	var serializer types.Serializer = NewMsgpackSerializer()
	encryptor := suite.Encryptor
	signer := suite.Signer
	m.access = suite.AccessControl

	if opts != nil {
		if opts.Serializer != nil {
			serializer = opts.Serializer
		}
		if opts.Encryptor != nil {
			encryptor = opts.Encryptor
		}
		if opts.Signer != nil {
			signer = opts.Signer
		}
		if opts.AccessControl != nil {
			m.access = opts.AccessControl
		}
	}

	var compressor types.Compressor
	if m.config.Compression.Enabled {
		compressor = NewZlibCompressor(m.config.Compression.Level)
	}

	m.codec = newValueCodec(serializer, compressor, encryptor, signer, m.config.Compression.MinSize)
	return nil
}

// initLayers builds the ordered layer list. A config with every layer
// disabled falls back to a memory layer so the manager stays usable.
func (m *Manager) initLayers() {
	type layerEntry struct {
		layer    types.CacheLayer
		priority int
	}
	var entries []layerEntry

	if m.config.Memory.Enabled {
		mem, err := NewMemoryCache(m.config.Memory, m.logger)
		if err != nil {
			m.logger.Warn("Failed to create memory layer", "error", err)
		} else {
			entries = append(entries, layerEntry{mem, m.config.Memory.Priority})
		}
	}

	if m.config.Disk.Enabled {
		disk, err := NewDiskCache(m.config.Disk, m.config.CircuitBreaker, m.logger)
		if err != nil {
			m.logger.Warn("Failed to create disk layer, continuing without it", "error", err)
		} else {
			m.disk = disk
			entries = append(entries, layerEntry{disk, m.config.Disk.Priority})
		}
	}

	if m.config.Redis.Enabled {
		rc, err := NewRedisCache(m.config.Redis, m.logger)
		if err != nil {
			m.logger.Warn("Failed to create redis layer, continuing without it", "error", err)
		} else {
			m.redis = rc
			entries = append(entries, layerEntry{rc, m.config.Redis.Priority})
		}
	}

	if len(entries) == 0 {
		m.logger.Warn("No cache layers enabled, falling back to memory defaults")
		mem, err := NewMemoryCache(config.MemoryConfig{
			Enabled:    true,
			MaxEntries: 10000,
			DefaultTTL: m.config.Defaults.TTL,
		}, m.logger)
		if err == nil {
			entries = append(entries, layerEntry{mem, 0})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})

	m.layers = make([]types.CacheLayer, len(entries))
	for i, e := range entries {
		m.layers[i] = e.layer
		m.layerHits[e.layer.Name()] = &atomic.Int64{}
	}
}

func (m *Manager) initResilience() {
	if m.config.Retry.Enabled {
		m.retrier = resilience.NewRetrier(m.config.Retry)
	} else {
		m.retrier = resilience.NewDisabledRetrier()
	}

	if m.disk != nil {
		onChange := func(name string) func(from, to resilience.State) {
			return func(from, to resilience.State) {
				m.logger.Info("Circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
				if m.metrics != nil {
					m.metrics.RecordCircuitBreakerStateChange(from.String(), to.String())
				}
			}
		}
		m.disk.ReadBreaker().SetOnStateChange(onChange("disk-read"))
		m.disk.WriteBreaker().SetOnStateChange(onChange("disk-write"))
	}
}

func (m *Manager) initMetrics(opts *types.ManagerOptions) {
	if opts != nil && opts.Metrics != nil {
		m.metrics = opts.Metrics
		return
	}
	if m.config.Metrics.Enabled {
		m.tracker = metrics.NewTracker()
		m.metrics = m.tracker
		return
	}
	m.metrics = metrics.NewNoOpTracker()
}

func (m *Manager) initAdaptiveTTL() {
	if m.config.AdaptiveTTL.Enabled {
		m.adaptive = adaptivettl.NewManager(m.config.AdaptiveTTL, m.logger)
	}
}

func (m *Manager) initInvalidation() {
	if !m.config.Invalidation.Enabled || m.redis == nil {
		return
	}

	m.inval = invalidation.NewManager(
		invalidation.NewRedisPubSub(m.redis.Client()),
		m.config.Invalidation,
		m.logger,
	)
	m.inval.OnAll(m.applyRemoteInvalidation)
}

func (m *Manager) initWarmup() {
	if m.config.Warmup.Enabled {
		m.warmer = warmup.NewWarmer(m.config.Warmup, m.logger)
	}
}

func (m *Manager) startBackground() {
	if m.inval != nil {
		if err := m.inval.Start(m.shutdownCtx); err != nil {
			m.logger.Warn("Invalidation listener failed to start", "error", err)
			m.inval = nil
		}
	}

	if m.config.Metrics.Enabled {
		publisher, err := datadog.NewPublisher(&m.config.Metrics.DataDog, m.logger)
		if err != nil {
			m.logger.Warn("DataDog publisher unavailable, logging metrics instead", "error", err)
			publisher = metrics.NewLoggingPublisher(m.logger)
		}
		m.bgPublisher = metrics.NewBackgroundPublisher(
			publisher,
			m.config.Metrics.PublishInterval,
			m.healthReport,
			m.logger,
		)
		m.bgPublisher.Start(m.shutdownCtx)
	}

	if m.disk != nil && m.config.Disk.MonitorInterval > 0 {
		m.bgWg.Add(1)
		go m.diskMonitor()
	}
}

// Get retrieves a value into dest and reports whether the key was
// found. Layer errors are retried by the outer policy; a clean miss on
// every layer is found=false with a nil error.
func (m *Manager) Get(ctx context.Context, key string, dest any, opts ...types.Option) (bool, error) {
	if m.closed.Load() {
		return false, types.ErrClosed
	}
	if err := m.validateKey(key); err != nil {
		return false, err
	}

	options := types.ApplyOptions(opts...)
	if !m.allow("get", options.Role) {
		return false, nil
	}

	nk := m.namespacer.Apply(key)
	if m.adaptive != nil && !options.SkipAdaptive {
		m.adaptive.RecordAccess(nk)
	}

	start := time.Now()

	var data []byte
	var hitLayer string
	hitIdx := -1

	err := m.retrier.Do(ctx, func(ctx context.Context) error {
		var lastErr error
		for i, layer := range m.layers {
			if !layer.IsAvailable() {
				continue
			}
			b, found, gerr := layer.Get(ctx, nk)
			if gerr != nil {
				lastErr = gerr
				m.metrics.RecordError(layer.Name(), "get", gerr)
				m.logger.Debug("Layer GET failed", "layer", layer.Name(), "key", key, "error", gerr)
				continue
			}
			if found {
				data = b
				hitIdx = i
				hitLayer = layer.Name()
				return nil
			}
		}
		if hitIdx < 0 && lastErr != nil {
			return lastErr
		}
		return nil
	})

	latency := time.Since(start)

	if err != nil {
		m.errorsCnt.Add(1)
		return false, err
	}

	if hitIdx < 0 {
		m.misses.Add(1)
		m.metrics.RecordMiss("all", key, latency)
		return false, nil
	}

	if err := m.codec.Decode(data, dest); err != nil {
		m.errorsCnt.Add(1)
		m.metrics.RecordError(hitLayer, "decode", err)
		return false, err
	}

	m.hits.Add(1)
	if counter, ok := m.layerHits[hitLayer]; ok {
		counter.Add(1)
	}
	m.metrics.RecordHit(hitLayer, key, latency)

	if m.config.Defaults.ReadThrough && hitIdx > 0 {
		m.backfill(nk, data, hitIdx)
	}

	return true, nil
}

// backfill populates layers faster than the one that hit, each with its
// own default TTL, best effort.
func (m *Manager) backfill(nk string, data []byte, hitIdx int) {
	faster := m.layers[:hitIdx]
	m.runBackground(func(ctx context.Context) {
		for _, layer := range faster {
			if !layer.IsAvailable() {
				continue
			}
			if err := layer.Set(ctx, nk, data, 0); err != nil {
				m.logger.Debug("Read-through backfill failed",
					"layer", layer.Name(),
					"key", nk,
					"error", err,
				)
			}
		}
	})
}

// Set stores a value in every enabled layer. It reports whether the
// value was written; a denied access check returns false without error.
func (m *Manager) Set(ctx context.Context, key string, value any, opts ...types.Option) (bool, error) {
	if m.closed.Load() {
		return false, types.ErrClosed
	}
	if err := m.validateKey(key); err != nil {
		return false, err
	}

	options := types.ApplyOptions(opts...)
	if !m.allow("set", options.Role) {
		return false, nil
	}

	data, err := m.codec.Encode(value)
	if err != nil {
		m.errorsCnt.Add(1)
		return false, err
	}

	nk := m.namespacer.Apply(key)
	ttl := m.effectiveTTL(nk, options)

	start := time.Now()

	if err := m.writeThrough(ctx, nk, data, ttl, options); err != nil {
		m.errorsCnt.Add(1)
		return false, err
	}

	m.sets.Add(1)
	m.metrics.RecordSet("all", key, len(data), time.Since(start))
	m.publishInvalidation(nk, "set")

	return true, nil
}

// writeThrough writes to layers in priority order. A failure on the
// first layer fails the operation; failures further down are logged.
// With write-through disabled only the primary layer is written.
func (m *Manager) writeThrough(ctx context.Context, nk string, data []byte, ttl time.Duration, options *types.CacheOptions) error {
	if !m.config.Defaults.WriteThrough {
		return m.writePrimary(ctx, nk, data, ttl, options)
	}

	wroteAny := false
	var primaryErr error

	for i, layer := range m.layers {
		if !layer.IsAvailable() {
			continue
		}

		err := m.setLayer(ctx, layer, nk, data, ttl, options)
		if err != nil {
			m.metrics.RecordError(layer.Name(), "set", err)
			if i == 0 {
				primaryErr = err
			} else {
				m.logger.Warn("Layer SET failed", "layer", layer.Name(), "key", nk, "error", err)
			}
			continue
		}
		wroteAny = true
	}

	if primaryErr != nil && !wroteAny {
		return primaryErr
	}
	if primaryErr != nil {
		m.logger.Warn("Primary layer SET failed, wrote to lower layers", "key", nk, "error", primaryErr)
	}
	return nil
}

// writePrimary writes to the first available layer only. Its failure
// fails the operation; later layers are never touched.
func (m *Manager) writePrimary(ctx context.Context, nk string, data []byte, ttl time.Duration, options *types.CacheOptions) error {
	for _, layer := range m.layers {
		if !layer.IsAvailable() {
			continue
		}
		if err := m.setLayer(ctx, layer, nk, data, ttl, options); err != nil {
			m.metrics.RecordError(layer.Name(), "set", err)
			return err
		}
		return nil
	}
	return nil
}

func (m *Manager) setLayer(ctx context.Context, layer types.CacheLayer, nk string, data []byte, ttl time.Duration, options *types.CacheOptions) error {
	if options.FireAndForget && m.redis != nil && layer == types.CacheLayer(m.redis) {
		return m.redis.SetAsync(nk, data, ttl)
	}
	return layer.Set(ctx, nk, data, ttl)
}

// effectiveTTL resolves the TTL for a write: an explicit TTL wins, then
// the adaptive engine, then each layer's own default (ttl zero).
func (m *Manager) effectiveTTL(nk string, options *types.CacheOptions) time.Duration {
	if options.TTL > 0 {
		return options.TTL
	}
	if m.adaptive != nil && !options.SkipAdaptive {
		return m.adaptive.AdjustTTL(nk, m.config.Defaults.TTL)
	}
	return 0
}

// Delete removes a key from every layer and reports whether any layer
// held it.
func (m *Manager) Delete(ctx context.Context, key string, opts ...types.Option) (bool, error) {
	if m.closed.Load() {
		return false, types.ErrClosed
	}
	if err := m.validateKey(key); err != nil {
		return false, err
	}

	options := types.ApplyOptions(opts...)
	if !m.allow("delete", options.Role) {
		return false, nil
	}

	nk := m.namespacer.Apply(key)
	start := time.Now()

	existed, err := m.deleteFromLayers(ctx, nk)
	if err != nil {
		m.errorsCnt.Add(1)
		return existed, err
	}

	if existed {
		m.deletes.Add(1)
	}
	if m.adaptive != nil {
		m.adaptive.Forget(nk)
	}
	m.metrics.RecordDelete("all", key, time.Since(start))
	m.publishInvalidation(nk, "delete")

	return existed, nil
}

func (m *Manager) deleteFromLayers(ctx context.Context, nk string) (bool, error) {
	existed := false
	var errs []error

	for _, layer := range m.layers {
		if !layer.IsAvailable() {
			continue
		}
		ok, err := layer.Delete(ctx, nk)
		if err != nil {
			m.metrics.RecordError(layer.Name(), "delete", err)
			errs = append(errs, err)
			continue
		}
		if ok {
			existed = true
		}
	}

	if len(errs) > 0 {
		return existed, errors.Join(errs...)
	}
	return existed, nil
}

// Contains reports whether a key exists in any layer without reading
// its value.
func (m *Manager) Contains(ctx context.Context, key string, opts ...types.Option) (bool, error) {
	if m.closed.Load() {
		return false, types.ErrClosed
	}
	if err := m.validateKey(key); err != nil {
		return false, err
	}

	options := types.ApplyOptions(opts...)
	if !m.allow("get", options.Role) {
		return false, nil
	}

	nk := m.namespacer.Apply(key)

	type containsChecker interface {
		Contains(ctx context.Context, key string) (bool, error)
	}

	for _, layer := range m.layers {
		if !layer.IsAvailable() {
			continue
		}

		var found bool
		var err error
		if checker, ok := layer.(containsChecker); ok {
			found, err = checker.Contains(ctx, nk)
		} else {
			_, found, err = layer.Get(ctx, nk)
		}
		if err != nil {
			m.logger.Debug("Layer contains check failed", "layer", layer.Name(), "key", key, "error", err)
			continue
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// GetMany retrieves multiple keys, decoding each found value into an
// any. Only present keys appear in the result.
func (m *Manager) GetMany(ctx context.Context, keys []string, opts ...types.Option) (map[string]any, error) {
	if m.closed.Load() {
		return nil, types.ErrClosed
	}
	if len(keys) == 0 {
		return make(map[string]any), nil
	}
	if err := m.validateKeys(keys); err != nil {
		return nil, err
	}

	options := types.ApplyOptions(opts...)
	if !m.allow("get", options.Role) {
		return make(map[string]any), nil
	}

	namespaced := make([]string, len(keys))
	for i, key := range keys {
		namespaced[i] = m.namespacer.Apply(key)
	}

	raw := make(map[string][]byte, len(keys))
	hitAt := make(map[string]int, len(keys))
	missing := namespaced

	err := m.retrier.Do(ctx, func(ctx context.Context) error {
		var lastErr error
		for i, layer := range m.layers {
			if len(missing) == 0 {
				break
			}
			if !layer.IsAvailable() {
				continue
			}

			found, gerr := layer.GetMany(ctx, missing)
			if gerr != nil {
				lastErr = gerr
				m.metrics.RecordError(layer.Name(), "getmany", gerr)
				m.logger.Debug("Layer GetMany failed", "layer", layer.Name(), "error", gerr)
				continue
			}

			var still []string
			for _, nk := range missing {
				if data, ok := found[nk]; ok {
					raw[nk] = data
					hitAt[nk] = i
				} else {
					still = append(still, nk)
				}
			}
			missing = still
		}
		if len(missing) > 0 && lastErr != nil {
			return lastErr
		}
		return nil
	})
	if err != nil {
		m.errorsCnt.Add(1)
		return nil, err
	}

	results := make(map[string]any, len(raw))
	for _, key := range keys {
		nk := m.namespacer.Apply(key)
		data, ok := raw[nk]
		if !ok {
			m.misses.Add(1)
			continue
		}
		var value any
		if err := m.codec.Decode(data, &value); err != nil {
			m.logger.Debug("Batch decode failed", "key", key, "error", err)
			continue
		}
		results[key] = value
		m.hits.Add(1)
	}

	if m.config.Defaults.ReadThrough {
		m.backfillMany(raw, hitAt)
	}

	return results, nil
}

// backfillMany populates layers faster than the one each batch entry
// hit in, each with its own default TTL, best effort.
func (m *Manager) backfillMany(raw map[string][]byte, hitAt map[string]int) {
	perLayer := make([]map[string][]byte, len(m.layers))
	for nk, idx := range hitAt {
		for j := 0; j < idx; j++ {
			if perLayer[j] == nil {
				perLayer[j] = make(map[string][]byte)
			}
			perLayer[j][nk] = raw[nk]
		}
	}

	pending := false
	for _, items := range perLayer {
		if len(items) > 0 {
			pending = true
			break
		}
	}
	if !pending {
		return
	}

	m.runBackground(func(ctx context.Context) {
		for j, items := range perLayer {
			if len(items) == 0 {
				continue
			}
			layer := m.layers[j]
			if !layer.IsAvailable() {
				continue
			}
			if err := layer.SetMany(ctx, items, 0); err != nil {
				m.logger.Debug("Batch read-through backfill failed",
					"layer", layer.Name(),
					"error", err,
				)
			}
		}
	})
}

// SetMany stores multiple values with a shared effective TTL.
func (m *Manager) SetMany(ctx context.Context, items map[string]any, opts ...types.Option) error {
	if m.closed.Load() {
		return types.ErrClosed
	}
	if len(items) == 0 {
		return nil
	}

	options := types.ApplyOptions(opts...)
	if !m.allow("set", options.Role) {
		return nil
	}

	encoded := make(map[string][]byte, len(items))
	for key, value := range items {
		if err := m.validateKey(key); err != nil {
			return err
		}
		data, err := m.codec.Encode(value)
		if err != nil {
			return err
		}
		encoded[m.namespacer.Apply(key)] = data
	}

	ttl := options.TTL // adaptive TTL is per-key; batches use explicit or layer default

	var primaryErr error
	for i, layer := range m.layers {
		if !layer.IsAvailable() {
			continue
		}
		if err := layer.SetMany(ctx, encoded, ttl); err != nil {
			m.metrics.RecordError(layer.Name(), "setmany", err)
			if i == 0 {
				primaryErr = err
			} else {
				m.logger.Warn("Layer SetMany failed", "layer", layer.Name(), "error", err)
			}
		}
		if !m.config.Defaults.WriteThrough {
			break
		}
	}
	if primaryErr != nil {
		return primaryErr
	}

	m.sets.Add(int64(len(items)))
	return nil
}

// Clear removes this namespace's entries from every layer and resets
// the manager's counters. On the shared redis layer the default
// namespace is refused so one tenant cannot flush the whole database.
func (m *Manager) Clear(ctx context.Context) error {
	if m.closed.Load() {
		return types.ErrClosed
	}

	var errs []error
	for _, layer := range m.layers {
		if !layer.IsAvailable() {
			continue
		}

		if layer.Type() == types.LayerRedis {
			if m.namespacer.IsDefault() {
				m.logger.Warn("Refusing to clear the default namespace on redis; use a dedicated namespace")
				continue
			}
			if clearer, ok := layer.(types.PatternClearer); ok {
				if _, err := clearer.ClearPattern(ctx, m.namespacer.Pattern()); err != nil {
					errs = append(errs, err)
				}
				continue
			}
		}

		if m.namespacer.IsDefault() {
			if err := layer.Clear(ctx); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if clearer, ok := layer.(types.PatternClearer); ok {
			if _, err := clearer.ClearPattern(ctx, m.namespacer.Pattern()); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := layer.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	m.resetStats()

	if m.inval != nil {
		ns := m.namespacer.Namespace()
		m.runBackground(func(ctx context.Context) {
			if err := m.inval.PublishNamespace(ctx, ns, "clear"); err != nil {
				m.logger.Debug("Failed to publish namespace invalidation", "error", err)
			}
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ClearPattern removes entries matching the glob pattern from every
// layer and returns the total removed.
func (m *Manager) ClearPattern(ctx context.Context, pattern string) (int, error) {
	if m.closed.Load() {
		return 0, types.ErrClosed
	}

	nsPattern := m.namespacer.Apply(pattern)

	total := 0
	var errs []error
	for _, layer := range m.layers {
		if !layer.IsAvailable() {
			continue
		}
		clearer, ok := layer.(types.PatternClearer)
		if !ok {
			continue
		}
		n, err := clearer.ClearPattern(ctx, nsPattern)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}

	if m.inval != nil {
		m.runBackground(func(ctx context.Context) {
			if err := m.inval.PublishPattern(ctx, nsPattern, "clear-pattern"); err != nil {
				m.logger.Debug("Failed to publish pattern invalidation", "error", err)
			}
		})
	}

	if len(errs) > 0 {
		return total, errors.Join(errs...)
	}
	return total, nil
}

// GetOrCreate retrieves a value or creates it with factory on a miss.
// Concurrent creates for the same key share a single factory call.
func (m *Manager) GetOrCreate(ctx context.Context, key string, dest any, factory func() (any, error), opts ...types.Option) error {
	if m.closed.Load() {
		return types.ErrClosed
	}

	found, err := m.Get(ctx, key, dest, opts...)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	result, err, _ := m.sfGroup.Do(key, func() (any, error) {
		// Double check: another goroutine may have filled the key while
		// we waited on the flight group.
		var check any
		if found, checkErr := m.Get(ctx, key, &check, opts...); checkErr == nil && found {
			return m.codec.Encode(check)
		}

		value, factoryErr := factory()
		if factoryErr != nil {
			return nil, factoryErr
		}

		if _, setErr := m.Set(ctx, key, value, opts...); setErr != nil {
			m.logger.Debug("Failed to cache factory result", "key", key, "error", setErr)
		}

		return m.codec.Encode(value)
	})
	if err != nil {
		return err
	}

	data, ok := result.([]byte)
	if !ok {
		return fmt.Errorf("unexpected result type: %T", result)
	}
	return m.codec.Decode(data, dest)
}

// publishInvalidation announces a key event to peer nodes, best effort.
func (m *Manager) publishInvalidation(nk, reason string) {
	if m.inval == nil {
		return
	}
	m.runBackground(func(ctx context.Context) {
		if err := m.inval.PublishKey(ctx, nk, reason); err != nil {
			m.logger.Debug("Failed to publish key invalidation", "key", nk, "error", err)
		}
	})
}

// applyRemoteInvalidation reacts to events published by peer nodes.
func (m *Manager) applyRemoteInvalidation(event invalidation.Event) {
	ctx, cancel := context.WithTimeout(m.shutdownCtx, DefaultBackgroundOpTimeout)
	defer cancel()

	switch event.Type {
	case invalidation.EventKey:
		for _, layer := range m.layers {
			if !layer.IsAvailable() {
				continue
			}
			if _, err := layer.Delete(ctx, event.Key); err != nil {
				m.logger.Debug("Remote invalidation delete failed",
					"layer", layer.Name(),
					"key", event.Key,
					"error", err,
				)
			}
		}

	case invalidation.EventNamespace:
		if event.Namespace != m.namespacer.Namespace() {
			return
		}
		for _, layer := range m.layers {
			if !layer.IsAvailable() || layer.Type() == types.LayerRedis {
				// The publishing node already cleared redis.
				continue
			}
			if err := layer.Clear(ctx); err != nil {
				m.logger.Debug("Remote namespace clear failed", "layer", layer.Name(), "error", err)
			}
		}

	case invalidation.EventPattern:
		// Pattern events from peers only cover local layers; redis was
		// already cleared by the publisher.
		for _, layer := range m.layers {
			if !layer.IsAvailable() || layer.Type() == types.LayerRedis {
				continue
			}
			if clearer, ok := layer.(types.PatternClearer); ok {
				if _, err := clearer.ClearPattern(ctx, event.Pattern); err != nil {
					m.logger.Debug("Remote pattern clear failed", "layer", layer.Name(), "error", err)
				}
			}
		}

	case invalidation.EventAll:
		for _, layer := range m.layers {
			if !layer.IsAvailable() || layer.Type() == types.LayerRedis {
				continue
			}
			if err := layer.Clear(ctx); err != nil {
				m.logger.Debug("Remote full clear failed", "layer", layer.Name(), "error", err)
			}
		}
	}
}

// RegisterWarmupProvider adds a value provider for warmup keys matching
// the glob pattern.
func (m *Manager) RegisterWarmupProvider(pattern string, provider warmup.Provider) {
	if m.warmer != nil {
		m.warmer.Register(pattern, provider)
	}
}

// Warmup preloads the configured keys file through the registered
// providers.
func (m *Manager) Warmup(ctx context.Context) (warmup.Stats, error) {
	if m.warmer == nil {
		return warmup.Stats{}, nil
	}
	return m.warmer.Run(ctx, func(ctx context.Context, key string, value any, ttl time.Duration) error {
		var opts []types.Option
		if ttl > 0 {
			opts = append(opts, types.WithTTL(ttl))
		}
		_, err := m.Set(ctx, key, value, opts...)
		return err
	})
}

// diskMonitor watches the database file size and purges, then compacts,
// when it crosses the configured thresholds.
func (m *Manager) diskMonitor() {
	defer m.bgWg.Done()

	ticker := time.NewTicker(m.config.Disk.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.shutdownCtx.Done():
			return
		case <-ticker.C:
			m.checkDiskUsage()
		}
	}
}

func (m *Manager) checkDiskUsage() {
	size, err := m.disk.SizeBytes()
	if err != nil {
		m.logger.Debug("Disk size check failed", "error", err)
		return
	}
	sizeMB := size / bytesPerMB

	if m.config.Disk.PurgeThresholdMB > 0 && sizeMB >= int64(m.config.Disk.PurgeThresholdMB) {
		ctx, cancel := context.WithTimeout(m.shutdownCtx, DefaultBackgroundOpTimeout)
		purged, err := m.disk.PurgeExpired(ctx)
		cancel()
		if err != nil {
			m.logger.Warn("Disk purge failed", "error", err)
			return
		}
		m.logger.Info("Disk purge complete", "size_mb", sizeMB, "purged", purged)
	}

	if m.config.Disk.CompactThresholdMB > 0 && sizeMB >= int64(m.config.Disk.CompactThresholdMB) {
		ctx, cancel := context.WithTimeout(m.shutdownCtx, DefaultShutdownTimeout)
		err := m.disk.Compact(ctx)
		cancel()
		if err != nil {
			m.logger.Warn("Disk compaction failed", "error", err)
			return
		}
		m.logger.Info("Disk compaction complete", "previous_size_mb", sizeMB)
	}
}

// Stats returns an aggregate snapshot of manager counters.
func (m *Manager) Stats() types.ManagerStats {
	layerHits := make(map[string]int64, len(m.layerHits))
	for name, counter := range m.layerHits {
		layerHits[name] = counter.Load()
	}
	return types.ManagerStats{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Sets:      m.sets.Load(),
		Deletes:   m.deletes.Load(),
		Errors:    m.errorsCnt.Load(),
		LayerHits: layerHits,
	}
}

func (m *Manager) resetStats() {
	m.hits.Store(0)
	m.misses.Store(0)
	m.sets.Store(0)
	m.deletes.Store(0)
	m.errorsCnt.Store(0)
	for _, counter := range m.layerHits {
		counter.Store(0)
	}
	if m.tracker != nil {
		m.tracker.Reset()
	}
}

// MetricsSnapshot returns detailed latency and counter metrics when the
// manager owns its recorder.
func (m *Manager) MetricsSnapshot() types.MetricsSnapshot {
	if m.tracker == nil {
		return types.MetricsSnapshot{}
	}
	return m.tracker.Snapshot()
}

// Health returns per-layer health details.
func (m *Manager) Health(ctx context.Context) (*types.HealthMetrics, error) {
	health := &types.HealthMetrics{
		Timestamp: time.Now(),
		Layers:    make([]types.LayerHealthMetrics, 0, len(m.layers)),
	}

	anyHealthy := false
	allHealthy := true

	for _, layer := range m.layers {
		stats := layer.Stats()
		lh := types.LayerHealthMetrics{
			Name:          layer.Name(),
			Type:          layer.Type(),
			Available:     layer.IsAvailable(),
			EntryCount:    layer.EntryCount(),
			HitCount:      stats.Hits,
			MissCount:     stats.Misses,
			EvictionCount: stats.Evictions,
			ErrorCount:    stats.Errors,
		}

		if layer == types.CacheLayer(m.disk) && m.disk != nil {
			lh.CircuitBreakerState = m.disk.ReadBreaker().State().String()
		}

		if lh.Available {
			lh.Status = types.HealthStatusHealthy
			anyHealthy = true
		} else {
			lh.Status = types.HealthStatusUnhealthy
			allHealthy = false
		}
		health.Layers = append(health.Layers, lh)
	}

	switch {
	case allHealthy && anyHealthy:
		health.Status = types.HealthStatusHealthy
	case anyHealthy:
		health.Status = types.HealthStatusDegraded
	default:
		health.Status = types.HealthStatusUnhealthy
	}

	return health, nil
}

// IsHealthy reports whether at least the primary layer is available.
func (m *Manager) IsHealthy(ctx context.Context) bool {
	for _, layer := range m.layers {
		if layer.IsAvailable() {
			return true
		}
	}
	return false
}

// Namespace returns the manager's namespace.
func (m *Manager) Namespace() string {
	return m.namespacer.Namespace()
}

// Layers returns the ordered layer names, fastest first.
func (m *Manager) Layers() []string {
	names := make([]string, len(m.layers))
	for i, layer := range m.layers {
		names[i] = layer.Name()
	}
	return names
}

// healthReport feeds the background metrics publisher.
func (m *Manager) healthReport() *metrics.HealthReport {
	report := &metrics.HealthReport{}

	total := 0
	for _, layer := range m.layers {
		count := layer.EntryCount()
		total += count
		switch layer.Type() {
		case types.LayerMemory:
			report.MemoryEntries = int64(count)
		case types.LayerDisk:
			report.DiskEntries = int64(count)
		}
		stats := layer.Stats()
		report.ErrorCount += stats.Errors
		report.EvictionCount += stats.Evictions
	}
	report.TotalEntries = int64(total)

	stats := m.Stats()
	report.HitRatio = stats.HitRate()

	if m.tracker != nil {
		report.AverageLatencyMs = m.tracker.Snapshot().AvgLatencyMs
	}
	if m.redis != nil {
		report.RedisConnected = m.redis.IsAvailable()
	}

	return report
}

// Close releases all resources using the default shutdown timeout.
func (m *Manager) Close() error {
	return m.CloseWithTimeout(DefaultShutdownTimeout)
}

// CloseWithTimeout releases all resources, waiting up to timeout for
// in-flight background operations before closing the layers.
func (m *Manager) CloseWithTimeout(timeout time.Duration) error {
	// Hold bgMu so no background operation can start between the closed
	// flag flipping and the wait below.
	m.bgMu.Lock()
	if m.closed.Swap(true) {
		m.bgMu.Unlock()
		return nil
	}
	m.shutdownCancel()
	m.bgMu.Unlock()

	m.logger.Info("Closing cache manager, waiting for background operations", "timeout", timeout)

	if m.inval != nil {
		m.inval.Stop()
	}
	if m.bgPublisher != nil {
		m.bgPublisher.Stop()
	}
	if m.adaptive != nil {
		m.adaptive.Close()
	}

	done := make(chan struct{})
	go func() {
		m.bgWg.Wait()
		close(done)
	}()

	var timedOut bool
	select {
	case <-done:
		m.logger.Info("Background operations complete, closing cache layers")
	case <-time.After(timeout):
		m.logger.Warn("Shutdown timeout exceeded, proceeding with close", "timeout", timeout)
		timedOut = true
	}

	var errs []error
	if timedOut {
		errs = append(errs, types.ErrShutdownTimeout)
	}

	for _, layer := range m.layers {
		if err := layer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// runBackground executes fn in a tracked goroutine with a bounded
// context so CloseWithTimeout can join it.
func (m *Manager) runBackground(fn func(ctx context.Context)) {
	m.bgMu.Lock()
	if m.closed.Load() {
		m.bgMu.Unlock()
		return
	}
	m.bgWg.Add(1)
	m.bgMu.Unlock()

	go func() {
		defer m.bgWg.Done()
		ctx, cancel := context.WithTimeout(m.shutdownCtx, DefaultBackgroundOpTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (m *Manager) allow(operation, role string) bool {
	if m.access == nil {
		return true
	}
	if m.access.Allow(operation, role) {
		return true
	}
	m.logger.Debug("Access denied", "operation", operation, "role", role)
	return false
}

func (m *Manager) validateKey(key string) error {
	if m.keyValidator == nil {
		return nil
	}
	return m.keyValidator.Validate(key)
}

func (m *Manager) validateKeys(keys []string) error {
	if m.keyValidator == nil {
		return nil
	}
	for _, key := range keys {
		if err := m.keyValidator.Validate(key); err != nil {
			return err
		}
	}
	return nil
}

//nolint:govet // Simple adapter struct - alignment optimization minimal
type slogAdapter struct {
	attrs  []slog.Attr
	logger types.Logger
	group  string // current group prefix from WithGroup calls
}

// Enabled implements slog.Handler.
func (a slogAdapter) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
//
//nolint:gocritic // slog.Handler interface requires passing Record by value
func (a slogAdapter) Handle(ctx context.Context, r slog.Record) error {
	args := make([]any, 0, (len(a.attrs)+r.NumAttrs())*2)

	for _, attr := range a.attrs {
		key := attr.Key
		if a.group != "" {
			key = a.group + "." + key
		}
		args = append(args, key, attr.Value.Any())
	}

	r.Attrs(func(attr slog.Attr) bool {
		key := attr.Key
		if a.group != "" {
			key = a.group + "." + key
		}
		args = append(args, key, attr.Value.Any())
		return true
	})

	switch r.Level {
	case slog.LevelDebug:
		a.logger.Debug(r.Message, args...)
	case slog.LevelInfo:
		a.logger.Info(r.Message, args...)
	case slog.LevelWarn:
		a.logger.Warn(r.Message, args...)
	case slog.LevelError:
		a.logger.Error(r.Message, args...)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (a slogAdapter) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(a.attrs), len(a.attrs)+len(attrs))
	copy(newAttrs, a.attrs)
	newAttrs = append(newAttrs, attrs...)
	return slogAdapter{
		logger: a.logger,
		attrs:  newAttrs,
		group:  a.group,
	}
}

// WithGroup implements slog.Handler.
func (a slogAdapter) WithGroup(name string) slog.Handler {
	newGroup := name
	if a.group != "" {
		newGroup = a.group + "." + name
	}
	return slogAdapter{
		logger: a.logger,
		attrs:  a.attrs,
		group:  newGroup,
	}
}
