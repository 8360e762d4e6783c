package config

import (
	"time"

	"github.com/saviornt/CacheManager/internal/types"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Namespace: types.DefaultNamespace,
		Memory: MemoryConfig{
			Enabled:         true,
			MaxEntries:      10000,
			EvictionPolicy:  types.EvictLRU,
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: 10 * time.Second,
			Priority:        0,
		},
		Disk: DiskConfig{
			Enabled:            false,
			Dir:                ".cache",
			DefaultTTL:         time.Hour,
			Workers:            4,
			MonitorInterval:    time.Minute,
			PurgeThresholdMB:   512,
			CompactThresholdMB: 1024,
			Priority:           1,
		},
		Redis: RedisConfig{
			Enabled:             false,
			Address:             "localhost:6379",
			Password:            SecretString{},
			DB:                  0,
			DefaultTTL:          15 * time.Minute,
			PoolSize:            100,
			MinIdleConns:        10,
			DialTimeout:         5 * time.Second,
			ReadTimeout:         3 * time.Second,
			WriteTimeout:        3 * time.Second,
			PoolTimeout:         4 * time.Second,
			MaxPendingWrites:    500,
			EnableTLS:           false,
			TLSSkipVerify:       false,
			HealthCheckInterval: 5 * time.Second,
			Priority:            2,
		},
		Defaults: DefaultsConfig{
			TTL:          5 * time.Minute,
			ReadThrough:  true,
			WriteThrough: true,
		},
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			Delay:       100 * time.Millisecond,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             true,
			FailureThreshold:    5,
			SuccessThreshold:    1,
			ResetTimeout:        30 * time.Second,
			HalfOpenMaxRequests: 1,
		},
		Lock: LockConfig{
			Enabled:        false,
			TTL:            30 * time.Second,
			RetryBaseDelay: 100 * time.Millisecond,
			MaxRetries:     5,
			Shards:         16,
		},
		Sharding: ShardingConfig{
			Enabled:      false,
			Strategy:     "consistent",
			Shards:       4,
			VirtualNodes: 150,
		},
		Invalidation: InvalidationConfig{
			Enabled:          false,
			Channel:          "cache:invalidation",
			ResubscribeDelay: time.Second,
			HistorySize:      100,
		},
		AdaptiveTTL: AdaptiveTTLConfig{
			Enabled:          false,
			MinTTL:           time.Minute,
			MaxTTL:           24 * time.Hour,
			Threshold:        10,
			AdjustmentFactor: 2.0,
			DecayInterval:    time.Hour,
		},
		Compression: CompressionConfig{
			Enabled: true,
			MinSize: 1024,
			Level:   6,
		},
		Security: SecurityConfig{
			Enabled: false,
		},
		Warmup: WarmupConfig{
			Enabled: false,
			TTL:     5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PublishInterval: 10 * time.Second,
			DataDog: DataDogConfig{
				Enabled:   false,
				AgentHost: "127.0.0.1",
				Port:      8125,
				Prefix:    "cachemanager",
				Tags:      []string{},
			},
		},
		KeyValidation: KeyValidationConfig{
			Enabled:           true,
			MaxKeyLength:      1024,
			AllowEmpty:        false,
			AllowControlChars: false,
			AllowWhitespace:   true,
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests.
func ForTesting() *Config {
	return &Config{
		Namespace: types.DefaultNamespace,
		Memory: MemoryConfig{
			Enabled:         true,
			MaxEntries:      128,
			EvictionPolicy:  types.EvictLRU,
			DefaultTTL:      time.Minute,
			CleanupInterval: 0, // no janitor in unit tests
		},
		Disk: DiskConfig{
			Enabled:  false,
			Workers:  2,
			Priority: 1,
		},
		Redis: RedisConfig{
			Enabled:             false, // Disabled for unit tests
			Address:             "localhost:6379",
			DefaultTTL:          time.Minute,
			PoolSize:            10,
			MinIdleConns:        1,
			DialTimeout:         time.Second,
			ReadTimeout:         time.Second,
			WriteTimeout:        time.Second,
			PoolTimeout:         time.Second,
			MaxPendingWrites:    50,
			HealthCheckInterval: 0,
			Priority:            2,
		},
		Defaults: DefaultsConfig{
			TTL:          time.Minute,
			ReadThrough:  true,
			WriteThrough: true,
		},
		Retry: RetryConfig{
			Enabled:     false,
			MaxAttempts: 1,
			Delay:       10 * time.Millisecond,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             false,
			FailureThreshold:    3,
			SuccessThreshold:    1,
			ResetTimeout:        time.Second,
			HalfOpenMaxRequests: 1,
		},
		Invalidation: InvalidationConfig{
			Enabled:          false,
			Channel:          "test:invalidation",
			ResubscribeDelay: 10 * time.Millisecond,
			HistorySize:      100,
		},
		AdaptiveTTL: AdaptiveTTLConfig{
			Enabled:          false,
			MinTTL:           time.Second,
			MaxTTL:           time.Hour,
			Threshold:        10,
			AdjustmentFactor: 2.0,
		},
		Compression: CompressionConfig{
			Enabled: false,
			MinSize: 1024,
			Level:   6,
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			PublishInterval: time.Second,
		},
		KeyValidation: KeyValidationConfig{
			Enabled:           true,
			MaxKeyLength:      1024,
			AllowEmpty:        false,
			AllowControlChars: false,
			AllowWhitespace:   true,
		},
	}
}

// ForTestingWithRedis returns a test config with Redis enabled.
func ForTestingWithRedis(addr string) *Config {
	cfg := ForTesting()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = addr
	return cfg
}
