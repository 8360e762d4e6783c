package types

import "time"

// Option is a functional option for configuring cache operations.
type Option func(*CacheOptions)

// ApplyOptions applies functional options to create CacheOptions.
func ApplyOptions(opts ...Option) *CacheOptions {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithTTL sets an explicit TTL, overriding adaptive and layer defaults.
func WithTTL(ttl time.Duration) Option {
	return func(o *CacheOptions) {
		o.TTL = ttl
	}
}

// WithRole sets the caller role checked by access control.
func WithRole(role string) Option {
	return func(o *CacheOptions) {
		o.Role = role
	}
}

// WithSkipAdaptive bypasses adaptive TTL adjustment.
func WithSkipAdaptive() Option {
	return func(o *CacheOptions) {
		o.SkipAdaptive = true
	}
}

// WithFireAndForget enables async writes on layers that support queuing.
func WithFireAndForget() Option {
	return func(o *CacheOptions) {
		o.FireAndForget = true
	}
}

// ManagerOptions holds construction-time overrides for the cache manager.
type ManagerOptions struct {
	// Logger is the structured logger to use.
	Logger Logger

	// Metrics is the metrics recorder.
	Metrics MetricsRecorder

	// Serializer overrides the default value serializer.
	Serializer Serializer

	// Encryptor enables payload encryption when set.
	Encryptor Encryptor

	// Signer enables payload signing when set.
	Signer Signer

	// AccessControl gates operations when set.
	AccessControl AccessControl

	// RedisAddress overrides the Redis address from config.
	RedisAddress string

	// RedisPassword overrides the Redis password from config.
	// Uses SecretString to prevent accidental logging of sensitive values.
	RedisPassword SecretString

	// RedisDB overrides the Redis database from config.
	RedisDB int

	// DisableRedis disables the Redis layer entirely.
	DisableRedis bool

	// DisableResilience disables circuit breaker and retry patterns.
	DisableResilience bool
}
