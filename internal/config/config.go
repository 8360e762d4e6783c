// Package config provides configuration management for the cache engine.
package config

import (
	"time"

	"github.com/saviornt/CacheManager/internal/types"
)

// SecretString is a string type that redacts its value when marshaled to JSON.
type SecretString = types.SecretString

// NewSecretString creates a new SecretString with the provided value.
func NewSecretString(value string) SecretString {
	return types.NewSecretString(value)
}

// Config contains all configuration for the cache manager.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	Namespace      string               `json:"namespace"`
	Memory         MemoryConfig         `json:"memory"`
	Disk           DiskConfig           `json:"disk"`
	Redis          RedisConfig          `json:"redis"`
	Defaults       DefaultsConfig       `json:"defaults"`
	Retry          RetryConfig          `json:"retry"`
	CircuitBreaker CircuitBreakerConfig `json:"circuitBreaker"`
	Lock           LockConfig           `json:"lock"`
	Sharding       ShardingConfig       `json:"sharding"`
	Invalidation   InvalidationConfig   `json:"invalidation"`
	AdaptiveTTL    AdaptiveTTLConfig    `json:"adaptiveTTL"`
	Compression    CompressionConfig    `json:"compression"`
	Security       SecurityConfig       `json:"security"`
	Warmup         WarmupConfig         `json:"warmup"`
	Metrics        MetricsConfig        `json:"metrics"`
	KeyValidation  KeyValidationConfig  `json:"keyValidation"`
}

// KeyValidationConfig contains configuration for cache key validation.
type KeyValidationConfig struct {
	ReservedPatterns  []string `json:"reservedPatterns"`
	MaxKeyLength      int      `json:"maxKeyLength"`
	Enabled           bool     `json:"enabled"`
	AllowEmpty        bool     `json:"allowEmpty"`
	AllowControlChars bool     `json:"allowControlChars"`
	AllowWhitespace   bool     `json:"allowWhitespace"`
}

// ToTypesConfig converts this config to a types.KeyValidationConfig.
func (c KeyValidationConfig) ToTypesConfig() types.KeyValidationConfig {
	return types.KeyValidationConfig{
		MaxKeyLength:      c.MaxKeyLength,
		AllowEmpty:        c.AllowEmpty,
		AllowControlChars: c.AllowControlChars,
		AllowWhitespace:   c.AllowWhitespace,
		ReservedPatterns:  c.ReservedPatterns,
	}
}

// MemoryConfig contains configuration for the in-memory cache layer.
type MemoryConfig struct {
	DefaultTTL      time.Duration        `json:"defaultTTL"`
	CleanupInterval time.Duration        `json:"cleanupInterval"`
	MaxEntries      int                  `json:"maxEntries"`
	EvictionPolicy  types.EvictionPolicy `json:"evictionPolicy"`
	Priority        int                  `json:"priority"`
	Enabled         bool                 `json:"enabled"`
}

// DiskConfig contains configuration for the disk-backed cache layer.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type DiskConfig struct {
	DefaultTTL time.Duration `json:"defaultTTL"`
	// Dir is the directory the database file lives in.
	Dir string `json:"dir"`
	// Workers bounds how many disk operations may run concurrently.
	Workers int `json:"workers"`
	// MonitorInterval is how often disk usage is checked. Zero disables the monitor.
	MonitorInterval time.Duration `json:"monitorInterval"`
	// PurgeThresholdMB triggers an expired-entry purge when the file grows past it.
	PurgeThresholdMB int `json:"purgeThresholdMB"`
	// CompactThresholdMB additionally compacts the database file.
	CompactThresholdMB int  `json:"compactThresholdMB"`
	Priority           int  `json:"priority"`
	Enabled            bool `json:"enabled"`
}

// RedisConfig contains configuration for the Redis cache layer.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type RedisConfig struct {
	DefaultTTL          time.Duration `json:"defaultTTL"`
	DialTimeout         time.Duration `json:"dialTimeout"`
	ReadTimeout         time.Duration `json:"readTimeout"`
	WriteTimeout        time.Duration `json:"writeTimeout"`
	PoolTimeout         time.Duration `json:"poolTimeout"`
	HealthCheckInterval time.Duration `json:"healthCheckInterval"`
	Password            SecretString  `json:"password"`
	Address             string        `json:"address"`
	DB                  int           `json:"db"`
	PoolSize            int           `json:"poolSize"`
	MinIdleConns        int           `json:"minIdleConns"`
	MaxPendingWrites    int           `json:"maxPendingWrites"`
	Priority            int           `json:"priority"`
	Enabled             bool          `json:"enabled"`
	EnableTLS           bool          `json:"enableTLS"`
	TLSSkipVerify       bool          `json:"tlsSkipVerify"`
}

// DefaultsConfig contains default values for cache operations.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DefaultsConfig struct {
	TTL time.Duration `json:"ttl"`
	// ReadThrough backfills faster layers after a hit in a slower one.
	ReadThrough bool `json:"readThrough"`
	// WriteThrough propagates sets to every enabled layer.
	WriteThrough bool `json:"writeThrough"`
}

// RetryConfig contains configuration for the outer retry policy.
// Retries use a fixed delay between attempts.
type RetryConfig struct {
	MaxAttempts int           `json:"maxAttempts"`
	Delay       time.Duration `json:"delay"`
	Enabled     bool          `json:"enabled"`
}

// CircuitBreakerConfig contains configuration for circuit breakers
// guarding disk I/O paths.
type CircuitBreakerConfig struct {
	Enabled             bool          `json:"enabled"`
	FailureThreshold    int           `json:"failureThreshold"`
	SuccessThreshold    int           `json:"successThreshold"`
	ResetTimeout        time.Duration `json:"resetTimeout"`
	HalfOpenMaxRequests int           `json:"halfOpenMaxRequests"`
}

// LockConfig contains configuration for distributed locking.
type LockConfig struct {
	TTL time.Duration `json:"ttl"`
	// RetryBaseDelay seeds the exponential backoff in AcquireWithRetry.
	RetryBaseDelay time.Duration `json:"retryBaseDelay"`
	MaxRetries     int           `json:"maxRetries"`
	// Shards partitions the lock space for ShardedLock.
	Shards  int  `json:"shards"`
	Enabled bool `json:"enabled"`
}

// ShardingConfig contains configuration for key-space sharding.
type ShardingConfig struct {
	// Strategy is "consistent" or "modulo".
	Strategy     string `json:"strategy"`
	Shards       int    `json:"shards"`
	VirtualNodes int    `json:"virtualNodes"`
	Enabled      bool   `json:"enabled"`
}

// InvalidationConfig contains configuration for cross-node invalidation.
type InvalidationConfig struct {
	Channel string `json:"channel"`
	// ResubscribeDelay is the backoff before reattaching a failed subscription.
	ResubscribeDelay time.Duration `json:"resubscribeDelay"`
	HistorySize      int           `json:"historySize"`
	Enabled          bool          `json:"enabled"`
}

// AdaptiveTTLConfig contains configuration for access-driven TTL tuning.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type AdaptiveTTLConfig struct {
	MinTTL time.Duration `json:"minTTL"`
	MaxTTL time.Duration `json:"maxTTL"`
	// Threshold is the access count below which the base TTL is kept.
	Threshold int64 `json:"threshold"`
	// AdjustmentFactor divides the TTL for cold keys.
	AdjustmentFactor float64 `json:"adjustmentFactor"`
	// DecayInterval is how often access counts decay. Zero disables decay.
	DecayInterval time.Duration `json:"decayInterval"`
	// TTLBands snaps adjusted TTLs to the nearest band when non-empty.
	TTLBands []time.Duration `json:"ttlBands"`
	Enabled  bool            `json:"enabled"`
}

// CompressionConfig contains configuration for payload compression.
type CompressionConfig struct {
	// MinSize is the payload size in bytes below which compression is skipped.
	MinSize int  `json:"minSize"`
	Level   int  `json:"level"`
	Enabled bool `json:"enabled"`
}

// SecurityConfig contains configuration for payload protection and access control.
type SecurityConfig struct {
	// EncryptionKey must be 16, 24 or 32 bytes when encryption is enabled.
	EncryptionKey SecretString `json:"encryptionKey"`
	SigningKey    SecretString `json:"signingKey"`
	// Roles maps operation names to the roles allowed to perform them.
	Roles   map[string][]string `json:"roles"`
	Enabled bool                `json:"enabled"`
}

// WarmupConfig contains configuration for cache warmup on start.
type WarmupConfig struct {
	// KeysFile is a JSON file listing keys to preload.
	KeysFile string        `json:"keysFile"`
	TTL      time.Duration `json:"ttl"`
	Enabled  bool          `json:"enabled"`
}

// MetricsConfig contains configuration for metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type MetricsConfig struct {
	PublishInterval time.Duration `json:"publishInterval"`
	DataDog         DataDogConfig `json:"datadog"`
	Enabled         bool          `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DataDogConfig struct {
	Tags      []string `json:"tags"`
	AgentHost string   `json:"agentHost"`
	Prefix    string   `json:"prefix"`
	Port      int      `json:"port"`
	Enabled   bool     `json:"enabled"`
}
