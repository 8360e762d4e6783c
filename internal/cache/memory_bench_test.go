package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/saviornt/CacheManager/internal/config"
	"github.com/saviornt/CacheManager/internal/types"
)

func benchMemoryConfig(policy types.EvictionPolicy) config.MemoryConfig {
	return config.MemoryConfig{
		Enabled:        true,
		MaxEntries:     100000,
		EvictionPolicy: policy,
	}
}

func BenchmarkMemoryCacheSet(b *testing.B) {
	cache, err := NewMemoryCache(benchMemoryConfig(types.EvictLRU), nil)
	if err != nil {
		b.Fatal(err)
	}
	defer cache.Close()

	ctx := context.Background()
	value := []byte("test-value-with-some-data")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key:%d", i)
		_ = cache.Set(ctx, key, value, 0)
	}
}

func BenchmarkMemoryCacheGet(b *testing.B) {
	cache, err := NewMemoryCache(benchMemoryConfig(types.EvictLRU), nil)
	if err != nil {
		b.Fatal(err)
	}
	defer cache.Close()

	ctx := context.Background()
	value := []byte("test-value-with-some-data")
	for i := 0; i < 1000; i++ {
		_ = cache.Set(ctx, fmt.Sprintf("key:%d", i), value, 0)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key:%d", i%1000)
		_, _, _ = cache.Get(ctx, key)
	}
}

func BenchmarkMemoryCacheEviction(b *testing.B) {
	for _, policy := range []types.EvictionPolicy{types.EvictLRU, types.EvictFIFO, types.EvictLFU} {
		b.Run(policy.String(), func(b *testing.B) {
			cfg := benchMemoryConfig(policy)
			cfg.MaxEntries = 1000

			cache, err := NewMemoryCache(cfg, nil)
			if err != nil {
				b.Fatal(err)
			}
			defer cache.Close()

			ctx := context.Background()
			value := []byte("x")

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				// Every set past the bound evicts a victim.
				_ = cache.Set(ctx, fmt.Sprintf("key:%d", i), value, 0)
			}
		})
	}
}

func BenchmarkMemoryCacheParallelGet(b *testing.B) {
	cache, err := NewMemoryCache(benchMemoryConfig(types.EvictLRU), nil)
	if err != nil {
		b.Fatal(err)
	}
	defer cache.Close()

	ctx := context.Background()
	value := []byte("test-value-with-some-data")
	for i := 0; i < 1000; i++ {
		_ = cache.Set(ctx, fmt.Sprintf("key:%d", i), value, 0)
	}

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _, _ = cache.Get(ctx, fmt.Sprintf("key:%d", i%1000))
			i++
		}
	})
}

func BenchmarkManagerSetGet(b *testing.B) {
	cfg := config.ForTesting()
	cfg.Memory.MaxEntries = 100000

	m, err := NewManager(cfg, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer m.Close()

	ctx := context.Background()

	b.Run("set", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_, _ = m.Set(ctx, fmt.Sprintf("key:%d", i), "benchmark-value")
		}
	})

	b.Run("get", func(b *testing.B) {
		_, _ = m.Set(ctx, "hot", "benchmark-value")
		b.ReportAllocs()
		var got string
		for i := 0; i < b.N; i++ {
			_, _ = m.Get(ctx, "hot", &got)
		}
	})
}
