package cachemanager

import (
	"github.com/saviornt/CacheManager/internal/types"
)

type (
	// HealthStatus represents the overall health state.
	HealthStatus = types.HealthStatus

	// HealthMetrics contains overall cache health information.
	HealthMetrics = types.HealthMetrics

	// LayerHealthMetrics contains per-layer health details.
	LayerHealthMetrics = types.LayerHealthMetrics

	// MetricsSnapshot contains a point-in-time view of cache metrics.
	MetricsSnapshot = types.MetricsSnapshot
)

const (
	// HealthStatusHealthy indicates all layers operating normally.
	HealthStatusHealthy = types.HealthStatusHealthy
	// HealthStatusDegraded indicates partial functionality.
	HealthStatusDegraded = types.HealthStatusDegraded
	// HealthStatusUnhealthy indicates critical failure.
	HealthStatusUnhealthy = types.HealthStatusUnhealthy
)
