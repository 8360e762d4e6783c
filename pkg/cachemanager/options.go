package cachemanager

import (
	"time"

	"github.com/saviornt/CacheManager/internal/types"
)

type (
	// Option configures a single cache operation.
	Option = types.Option
	// ManagerOptions holds construction-time overrides.
	ManagerOptions = types.ManagerOptions
)

// ApplyOptions applies functional options to create CacheOptions.
func ApplyOptions(opts ...Option) *CacheOptions {
	return types.ApplyOptions(opts...)
}

// WithTTL sets an explicit TTL, overriding adaptive and layer defaults.
func WithTTL(ttl time.Duration) Option {
	return types.WithTTL(ttl)
}

// WithRole sets the caller role checked by access control.
func WithRole(role string) Option {
	return types.WithRole(role)
}

// WithSkipAdaptive bypasses adaptive TTL adjustment for one operation.
func WithSkipAdaptive() Option {
	return types.WithSkipAdaptive()
}

// WithFireAndForget queues the write asynchronously on layers that
// support it instead of waiting for the round trip.
func WithFireAndForget() Option {
	return types.WithFireAndForget()
}

// ManagerOption configures manager construction.
type ManagerOption func(*ManagerOptions)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) ManagerOption {
	return func(o *ManagerOptions) {
		o.Logger = logger
	}
}

// WithMetrics sets a custom metrics recorder.
func WithMetrics(metrics MetricsRecorder) ManagerOption {
	return func(o *ManagerOptions) {
		o.Metrics = metrics
	}
}

// WithSerializer overrides the default MessagePack serializer.
func WithSerializer(serializer Serializer) ManagerOption {
	return func(o *ManagerOptions) {
		o.Serializer = serializer
	}
}

// WithRedisAddress overrides the Redis address from config.
func WithRedisAddress(addr string) ManagerOption {
	return func(o *ManagerOptions) {
		o.RedisAddress = addr
	}
}

// WithRedisPassword overrides the Redis password from config.
func WithRedisPassword(password string) ManagerOption {
	return func(o *ManagerOptions) {
		o.RedisPassword = types.NewSecretString(password)
	}
}

// WithRedisDB overrides the Redis database from config.
func WithRedisDB(db int) ManagerOption {
	return func(o *ManagerOptions) {
		o.RedisDB = db
	}
}

// WithoutRedis disables the Redis layer entirely.
func WithoutRedis() ManagerOption {
	return func(o *ManagerOptions) {
		o.DisableRedis = true
	}
}

// WithoutResilience disables circuit breakers and retries.
func WithoutResilience() ManagerOption {
	return func(o *ManagerOptions) {
		o.DisableResilience = true
	}
}
