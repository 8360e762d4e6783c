// Package cachemanager provides a layered caching engine with memory,
// disk and Redis backends.
//
// Reads walk the layers fastest first with read-through backfill; writes
// fan out to every enabled layer. Resilience patterns (circuit breakers,
// retries, bulkheads), cross-node invalidation over Redis pub/sub,
// access-driven adaptive TTLs and optional payload protection are built
// in.
//
// # Features
//
//   - Layered backends: in-memory (LRU/FIFO/LFU), bbolt-backed disk, Redis
//   - Read-through and write-through orchestration across layers
//   - Resilience: circuit breakers on disk I/O, outer retry policy, bulkhead
//   - Cross-node invalidation over Redis pub/sub
//   - Adaptive TTLs driven by per-key access rates
//   - Memoization with single-flight deduplication
//   - Optional AES-GCM encryption, HMAC signing and role-based access control
//   - Metrics tracking with pluggable publishers (DataDog StatsD included)
//
// # Quick Start
//
// Create a cache manager with the default configuration:
//
//	manager, err := cachemanager.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.Close()
//
// # Cache Operations
//
// Basic set and get operations:
//
//	ctx := context.Background()
//	user := User{ID: "123", Name: "Alice"}
//
//	// Set a value
//	written, err := manager.Set(ctx, "user:123", user)
//
//	// Get a value
//	var cached User
//	found, err := manager.Get(ctx, "user:123", &cached)
//
// A miss is reported as found=false with a nil error; errors mean a
// backend failed.
//
// Cache-aside pattern with GetOrCreate:
//
//	var result User
//	err := manager.GetOrCreate(ctx, "user:456", &result, func() (any, error) {
//	    // This function only runs on cache miss
//	    return fetchUserFromDB("456")
//	})
//
// Memoize a whole computation keyed by its arguments:
//
//	report := manager.Cached("monthly-report", time.Hour)
//	var out Report
//	err := report.Do(ctx, &out, func(ctx context.Context) (any, error) {
//	    return buildReport(ctx, "2024", "q3")
//	}, "2024", "q3")
//
// # Options
//
// Use functional options to customize behavior per operation:
//
//	// Set with an explicit TTL
//	manager.Set(ctx, "key", value, cachemanager.WithTTL(5*time.Minute))
//
//	// Queue the Redis write instead of waiting for it
//	manager.Set(ctx, "key", value, cachemanager.WithFireAndForget())
//
// # Configuration
//
// Load configuration from a JSON file (environment variables override
// file values):
//
//	manager, err := cachemanager.NewFromFile("config.json")
//
// Or start from the defaults and customize:
//
//	cfg := cachemanager.Config()
//	cfg.Namespace = "tenant-a"
//	cfg.Redis.Enabled = true
//	cfg.Redis.Address = "localhost:6379"
//	manager, err := cachemanager.NewFromConfig(cfg)
//
// For testing, use the test configuration:
//
//	cfg := cachemanager.TestConfig()
//
// # Health Checks
//
// Check the health status of the cache layers:
//
//	health, err := manager.Health(ctx)
//	if health.Status == cachemanager.HealthStatusHealthy {
//	    fmt.Println("All layers operational")
//	}
//
// # Thread Safety
//
// All cache operations are thread-safe and can be used concurrently from
// multiple goroutines.
package cachemanager
