package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/saviornt/CacheManager/internal/types"
)

// Load loads configuration from a JSON file.
// If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a JSON file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gocyclo // Environment variable parsing requires many conditional checks
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CACHEMANAGER_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}

	if v := os.Getenv("CACHEMANAGER_MEMORY_ENABLED"); v != "" {
		cfg.Memory.Enabled = parseBool(v)
	}
	if v := os.Getenv("CACHEMANAGER_MEMORY_MAX_ENTRIES"); v != "" {
		cfg.Memory.MaxEntries = parseInt(v, cfg.Memory.MaxEntries)
	}
	if v := os.Getenv("CACHEMANAGER_MEMORY_EVICTION_POLICY"); v != "" {
		cfg.Memory.EvictionPolicy = types.EvictionPolicy(strings.ToLower(v))
	}
	if v := os.Getenv("CACHEMANAGER_MEMORY_DEFAULT_TTL"); v != "" {
		cfg.Memory.DefaultTTL = parseDuration(v, cfg.Memory.DefaultTTL)
	}

	if v := os.Getenv("CACHEMANAGER_DISK_ENABLED"); v != "" {
		cfg.Disk.Enabled = parseBool(v)
	}
	if v := os.Getenv("CACHEMANAGER_DISK_DIR"); v != "" {
		cfg.Disk.Dir = v
	}
	if v := os.Getenv("CACHEMANAGER_DISK_WORKERS"); v != "" {
		cfg.Disk.Workers = parseInt(v, cfg.Disk.Workers)
	}
	if v := os.Getenv("CACHEMANAGER_DISK_DEFAULT_TTL"); v != "" {
		cfg.Disk.DefaultTTL = parseDuration(v, cfg.Disk.DefaultTTL)
	}

	if v := os.Getenv("CACHEMANAGER_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("CACHEMANAGER_REDIS_ADDRESS"); v != "" {
		cfg.Redis.Address = v
	}
	if v := os.Getenv("CACHEMANAGER_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = NewSecretString(v)
	}
	if v := os.Getenv("CACHEMANAGER_REDIS_DB"); v != "" {
		cfg.Redis.DB = parseInt(v, cfg.Redis.DB)
	}
	if v := os.Getenv("CACHEMANAGER_REDIS_DEFAULT_TTL"); v != "" {
		cfg.Redis.DefaultTTL = parseDuration(v, cfg.Redis.DefaultTTL)
	}
	if v := os.Getenv("CACHEMANAGER_REDIS_POOL_SIZE"); v != "" {
		cfg.Redis.PoolSize = parseInt(v, cfg.Redis.PoolSize)
	}
	if v := os.Getenv("CACHEMANAGER_REDIS_ENABLE_TLS"); v != "" {
		cfg.Redis.EnableTLS = parseBool(v)
	}
	if v := os.Getenv("CACHEMANAGER_REDIS_TLS_SKIP_VERIFY"); v != "" {
		cfg.Redis.TLSSkipVerify = parseBool(v)
	}

	if v := os.Getenv("CACHEMANAGER_DEFAULTS_TTL"); v != "" {
		cfg.Defaults.TTL = parseDuration(v, cfg.Defaults.TTL)
	}
	if v := os.Getenv("CACHEMANAGER_READ_THROUGH"); v != "" {
		cfg.Defaults.ReadThrough = parseBool(v)
	}
	if v := os.Getenv("CACHEMANAGER_WRITE_THROUGH"); v != "" {
		cfg.Defaults.WriteThrough = parseBool(v)
	}

	if v := os.Getenv("CACHEMANAGER_RETRY_ENABLED"); v != "" {
		cfg.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("CACHEMANAGER_RETRY_MAX_ATTEMPTS"); v != "" {
		cfg.Retry.MaxAttempts = parseInt(v, cfg.Retry.MaxAttempts)
	}
	if v := os.Getenv("CACHEMANAGER_RETRY_DELAY"); v != "" {
		cfg.Retry.Delay = parseDuration(v, cfg.Retry.Delay)
	}

	if v := os.Getenv("CACHEMANAGER_CIRCUIT_BREAKER_ENABLED"); v != "" {
		cfg.CircuitBreaker.Enabled = parseBool(v)
	}
	if v := os.Getenv("CACHEMANAGER_CIRCUIT_BREAKER_FAILURE_THRESHOLD"); v != "" {
		cfg.CircuitBreaker.FailureThreshold = parseInt(v, cfg.CircuitBreaker.FailureThreshold)
	}
	if v := os.Getenv("CACHEMANAGER_CIRCUIT_BREAKER_RESET_TIMEOUT"); v != "" {
		cfg.CircuitBreaker.ResetTimeout = parseDuration(v, cfg.CircuitBreaker.ResetTimeout)
	}

	if v := os.Getenv("CACHEMANAGER_INVALIDATION_ENABLED"); v != "" {
		cfg.Invalidation.Enabled = parseBool(v)
	}
	if v := os.Getenv("CACHEMANAGER_INVALIDATION_CHANNEL"); v != "" {
		cfg.Invalidation.Channel = v
	}

	if v := os.Getenv("CACHEMANAGER_ADAPTIVE_TTL_ENABLED"); v != "" {
		cfg.AdaptiveTTL.Enabled = parseBool(v)
	}

	if v := os.Getenv("CACHEMANAGER_COMPRESSION_ENABLED"); v != "" {
		cfg.Compression.Enabled = parseBool(v)
	}
	if v := os.Getenv("CACHEMANAGER_COMPRESSION_MIN_SIZE"); v != "" {
		cfg.Compression.MinSize = parseInt(v, cfg.Compression.MinSize)
	}

	if v := os.Getenv("CACHEMANAGER_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}
	if v := os.Getenv("DD_VERSION"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "version:"+v)
	}

	if v := os.Getenv("CACHEMANAGER_DATADOG_ENABLED"); v != "" {
		if os.Getenv("DD_AGENT_HOST") == "" {
			cfg.Metrics.DataDog.Enabled = parseBool(v)
		}
	}
}

// Validate checks if the configuration is valid.
//
//nolint:gocyclo // Validation requires a check per config section
func (c *Config) Validate() error {
	if strings.Contains(c.Namespace, ":") {
		return fmt.Errorf("namespace must not contain ':'")
	}

	if c.Memory.Enabled {
		if c.Memory.MaxEntries <= 0 {
			return fmt.Errorf("memory.maxEntries must be positive")
		}
		if !c.Memory.EvictionPolicy.Valid() {
			return fmt.Errorf("memory.evictionPolicy must be one of lru, fifo, lfu")
		}
	}

	if c.Disk.Enabled {
		if c.Disk.Dir == "" {
			return fmt.Errorf("disk.dir is required when disk is enabled")
		}
		if c.Disk.Workers <= 0 {
			return fmt.Errorf("disk.workers must be positive")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address is required when redis is enabled")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.poolSize must be positive")
		}
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureThreshold <= 0 {
			return fmt.Errorf("circuitBreaker.failureThreshold must be positive")
		}
		if c.CircuitBreaker.ResetTimeout <= 0 {
			return fmt.Errorf("circuitBreaker.resetTimeout must be positive")
		}
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts <= 0 {
			return fmt.Errorf("retry.maxAttempts must be positive")
		}
		if c.Retry.Delay < 0 {
			return fmt.Errorf("retry.delay must not be negative")
		}
	}

	if c.Sharding.Enabled {
		if c.Sharding.Shards <= 0 {
			return fmt.Errorf("sharding.shards must be positive")
		}
		if c.Sharding.Strategy != "consistent" && c.Sharding.Strategy != "modulo" {
			return fmt.Errorf("sharding.strategy must be consistent or modulo")
		}
	}

	if c.Lock.Enabled {
		if c.Lock.TTL <= 0 {
			return fmt.Errorf("lock.ttl must be positive")
		}
		if c.Lock.Shards <= 0 {
			return fmt.Errorf("lock.shards must be positive")
		}
	}

	if c.AdaptiveTTL.Enabled {
		if c.AdaptiveTTL.MinTTL <= 0 || c.AdaptiveTTL.MaxTTL < c.AdaptiveTTL.MinTTL {
			return fmt.Errorf("adaptiveTTL requires 0 < minTTL <= maxTTL")
		}
		if c.AdaptiveTTL.AdjustmentFactor <= 0 {
			return fmt.Errorf("adaptiveTTL.adjustmentFactor must be positive")
		}
	}

	if c.Security.Enabled {
		if keyLen := len(c.Security.EncryptionKey.Value()); keyLen != 0 &&
			keyLen != 16 && keyLen != 24 && keyLen != 32 {
			return fmt.Errorf("security.encryptionKey must be 16, 24 or 32 bytes")
		}
	}

	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}
