package types

import "time"

// HealthStatus represents the overall health state.
type HealthStatus int

const (
	// HealthStatusHealthy indicates all layers operating normally.
	HealthStatusHealthy HealthStatus = iota + 1
	// HealthStatusDegraded indicates partial functionality (e.g. Redis down).
	HealthStatusDegraded
	// HealthStatusUnhealthy indicates critical failure.
	HealthStatusUnhealthy
)

// String returns the string representation of health status.
func (s HealthStatus) String() string {
	switch s {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusDegraded:
		return "degraded"
	case HealthStatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HealthMetrics contains overall cache health information.
type HealthMetrics struct {
	Timestamp time.Time
	Layers    []LayerHealthMetrics
	Status    HealthStatus
}

// LayerHealthMetrics contains per-layer health details.
type LayerHealthMetrics struct {
	Name                string
	Type                LayerType
	Status              HealthStatus
	Available           bool
	EntryCount          int
	HitCount            int64
	MissCount           int64
	EvictionCount       int64
	ErrorCount          int64
	CircuitBreakerState string
}

// MetricsSnapshot contains a point-in-time view of cache metrics.
//
//nolint:govet // Metrics struct with many counters - grouping by category improves readability
type MetricsSnapshot struct {
	Timestamp time.Time
	// Hit/miss counters per layer
	MemoryHits   int64
	MemoryMisses int64
	DiskHits     int64
	DiskMisses   int64
	RedisHits    int64
	RedisMisses  int64
	// Operation counters
	GetCount    int64
	SetCount    int64
	DeleteCount int64
	ErrorCount  int64

	// Latency metrics (milliseconds)
	AvgLatencyMs float64
	P50LatencyMs float64
	P95LatencyMs float64
	P99LatencyMs float64

	// Resilience metrics
	CircuitBreakerState string
	RetryCount          int64
}

// TotalHits sums hits across all layers.
func (s *MetricsSnapshot) TotalHits() int64 {
	return s.MemoryHits + s.DiskHits + s.RedisHits
}

// TotalMisses sums misses across all layers.
func (s *MetricsSnapshot) TotalMisses() int64 {
	return s.MemoryMisses + s.DiskMisses + s.RedisMisses
}

// TotalHitRatio calculates the overall cache hit ratio.
func (s *MetricsSnapshot) TotalHitRatio() float64 {
	total := s.TotalHits() + s.TotalMisses()
	if total == 0 {
		return 0
	}
	return float64(s.TotalHits()) / float64(total)
}
