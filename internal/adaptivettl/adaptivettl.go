// Package adaptivettl tunes cache TTLs from observed access rates.
// Hot keys get longer TTLs, cold keys shorter ones.
package adaptivettl

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/saviornt/CacheManager/internal/config"
)

// hotRateThreshold is the accesses-per-hour rate above which a key is
// considered hot. Keys below coldRateThreshold are considered cold.
const (
	hotRateThreshold  = 5.0
	coldRateThreshold = 0.5
	warmMultiplier    = 1.1
	maxHotMultiplier  = 3.0
	decayFactor       = 0.9
	gcIdleMultiple    = 10
)

type accessStats struct {
	count     int64
	firstSeen time.Time
	lastSeen  time.Time
}

// Manager tracks per-key access statistics and derives adjusted TTLs.
// It is a pure statistics engine; callers decide when to consult it.
type Manager struct {
	logger *slog.Logger

	minTTL           time.Duration
	maxTTL           time.Duration
	threshold        int64
	adjustmentFactor float64
	decayInterval    time.Duration
	bands            []time.Duration

	mu    sync.Mutex
	stats map[string]*accessStats

	decayStop chan struct{}
	decayOnce sync.Once
}

func NewManager(cfg config.AdaptiveTTLConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinTTL <= 0 {
		cfg.MinTTL = time.Minute
	}
	if cfg.MaxTTL < cfg.MinTTL {
		cfg.MaxTTL = 24 * time.Hour
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 10
	}
	if cfg.AdjustmentFactor <= 0 {
		cfg.AdjustmentFactor = 2.0
	}

	m := &Manager{
		logger:           logger.With("component", "adaptive-ttl"),
		minTTL:           cfg.MinTTL,
		maxTTL:           cfg.MaxTTL,
		threshold:        cfg.Threshold,
		adjustmentFactor: cfg.AdjustmentFactor,
		decayInterval:    cfg.DecayInterval,
		bands:            append([]time.Duration(nil), cfg.TTLBands...),
		stats:            make(map[string]*accessStats),
	}

	if cfg.DecayInterval > 0 {
		m.decayStop = make(chan struct{})
		go m.decayLoop(cfg.DecayInterval)
	}

	return m
}

// RecordAccess notes one access to key.
func (m *Manager) RecordAccess(key string) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[key]
	if !ok {
		m.stats[key] = &accessStats{count: 1, firstSeen: now, lastSeen: now}
		return
	}
	s.count++
	s.lastSeen = now
}

// AccessCount returns the tracked access count for key.
func (m *Manager) AccessCount(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stats[key]; ok {
		return s.count
	}
	return 0
}

// AdjustTTL returns the TTL to use for key given a base TTL. Below the
// access-count threshold the base TTL is kept (clamped). Past it, hot
// keys are stretched by up to 3x, cold keys shrunk by the adjustment
// factor, and everything else nudged up slightly.
func (m *Manager) AdjustTTL(key string, baseTTL time.Duration) time.Duration {
	m.mu.Lock()
	s, ok := m.stats[key]
	var count int64
	var age time.Duration
	if ok {
		count = s.count
		age = time.Since(s.firstSeen)
	}
	m.mu.Unlock()

	if !ok || count < m.threshold {
		return m.clamp(baseTTL)
	}

	rate := ratePerHour(count, age)

	var adjusted time.Duration
	switch {
	case rate > hotRateThreshold:
		multiplier := math.Min(maxHotMultiplier, 1+rate/10)
		adjusted = time.Duration(float64(baseTTL) * multiplier)
	case rate < coldRateThreshold:
		adjusted = time.Duration(float64(baseTTL) / m.adjustmentFactor)
	default:
		adjusted = time.Duration(float64(baseTTL) * warmMultiplier)
	}

	adjusted = m.clamp(adjusted)
	if len(m.bands) > 0 {
		adjusted = nearestBand(m.bands, adjusted)
	}
	return adjusted
}

// ratePerHour computes accesses per hour over the observation window.
// Very young keys are rated over a minimum one-second window to avoid
// infinite rates.
func ratePerHour(count int64, age time.Duration) float64 {
	if age < time.Second {
		age = time.Second
	}
	return float64(count) / age.Hours()
}

func (m *Manager) clamp(ttl time.Duration) time.Duration {
	if ttl < m.minTTL {
		return m.minTTL
	}
	if ttl > m.maxTTL {
		return m.maxTTL
	}
	return ttl
}

func nearestBand(bands []time.Duration, ttl time.Duration) time.Duration {
	best := bands[0]
	bestDiff := absDuration(ttl - best)
	for _, band := range bands[1:] {
		if diff := absDuration(ttl - band); diff < bestDiff {
			best, bestDiff = band, diff
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Decay multiplies every access count by the decay factor (floor 1)
// and drops keys that have been idle for more than ten decay intervals
// with a low count. Returns the number of keys garbage collected.
func (m *Manager) Decay() int {
	now := time.Now()
	idleCutoff := time.Duration(gcIdleMultiple) * m.decayInterval
	if m.decayInterval <= 0 {
		idleCutoff = time.Duration(gcIdleMultiple) * time.Hour
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, s := range m.stats {
		s.count = int64(float64(s.count) * decayFactor)
		if s.count < 1 {
			s.count = 1
		}
		if s.count < m.threshold && now.Sub(s.lastSeen) > idleCutoff {
			delete(m.stats, key)
			removed++
		}
	}
	return removed
}

// TrackedKeys returns the number of keys with statistics.
func (m *Manager) TrackedKeys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stats)
}

// Forget drops statistics for key, used when the key is deleted.
func (m *Manager) Forget(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stats, key)
}

// Close stops the background decay loop.
func (m *Manager) Close() {
	if m.decayStop != nil {
		m.decayOnce.Do(func() { close(m.decayStop) })
	}
}

func (m *Manager) decayLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.decayStop:
			return
		case <-ticker.C:
			if removed := m.Decay(); removed > 0 {
				m.logger.Debug("Decayed access statistics", "gc_removed", removed)
			}
		}
	}
}
