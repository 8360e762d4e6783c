package metrics

import "time"

// Publisher sends metrics to an external sink such as a StatsD agent.
type Publisher interface {
	Gauge(name string, value float64, tags ...string)
	Incr(name string, tags ...string)
	Count(name string, value int64, tags ...string)
	Histogram(name string, value float64, tags ...string)
	Timing(name string, duration time.Duration, tags ...string)
	Event(title, text, alertType string, tags ...string)
	PublishHealthMetrics(m *HealthReport)
	Close() error
}

// HealthReport is the periodic health payload published to metric sinks.
//
//nolint:govet // Grouped by concern rather than alignment
type HealthReport struct {
	TotalEntries     int64
	MemoryEntries    int64
	DiskEntries      int64
	HitRatio         float64
	AverageLatencyMs float64
	ErrorCount       int64
	EvictionCount    int64
	RedisConnected   bool
}
