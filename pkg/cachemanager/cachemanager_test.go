package cachemanager_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saviornt/CacheManager/pkg/cachemanager"
)

//nolint:govet // Test struct - alignment not critical
type user struct {
	ID   string
	Name string
}

func newMemoryManager(t *testing.T) *cachemanager.Manager {
	t.Helper()
	m, err := cachemanager.NewFromConfig(cachemanager.TestConfig())
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestPublicRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newMemoryManager(t)

	want := user{ID: "123", Name: "Alice"}
	written, err := m.Set(ctx, "user:123", want)
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !written {
		t.Fatal("Set() written = false")
	}

	var got user
	found, err := m.Get(ctx, "user:123", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || got != want {
		t.Errorf("Get() = (%+v, %v), want (%+v, true)", got, found, want)
	}
}

func TestPublicMissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	m := newMemoryManager(t)

	var got user
	found, err := m.Get(ctx, "user:absent", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Get() found = true for absent key")
	}
}

func TestPublicOptions(t *testing.T) {
	ctx := context.Background()
	m := newMemoryManager(t)

	if _, err := m.Set(ctx, "ephemeral", "value", cachemanager.WithTTL(20*time.Millisecond)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	var got string
	if found, _ := m.Get(ctx, "ephemeral", &got); found {
		t.Error("entry survived its TTL")
	}
}

func TestPublicGetOrCreate(t *testing.T) {
	ctx := context.Background()
	m := newMemoryManager(t)

	calls := 0
	factory := func() (any, error) {
		calls++
		return user{ID: "456", Name: "Bob"}, nil
	}

	var got user
	for i := 0; i < 2; i++ {
		if err := m.GetOrCreate(ctx, "user:456", &got, factory); err != nil {
			t.Fatalf("GetOrCreate() error = %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("factory calls = %d, want 1", calls)
	}
	if got.Name != "Bob" {
		t.Errorf("GetOrCreate() = %+v", got)
	}
}

func TestPublicErrorHelpers(t *testing.T) {
	ctx := context.Background()

	m, err := cachemanager.NewFromConfig(cachemanager.TestConfig())
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	_ = m.Close()

	_, err = m.Set(ctx, "k", "v")
	if !errors.Is(err, cachemanager.ErrClosed) {
		t.Errorf("Set() after close error = %v, want ErrClosed", err)
	}
	if cachemanager.IsRetryable(err) {
		t.Error("IsRetryable(ErrClosed) = true")
	}
}

func TestPublicValidationGuard(t *testing.T) {
	cfg := cachemanager.TestConfig()
	cfg.Namespace = "bad:name"

	if _, err := cachemanager.NewFromConfig(cfg); err == nil {
		t.Error("NewFromConfig() accepted a namespace containing ':'")
	}
}

func TestPublicWithoutRedis(t *testing.T) {
	cfg := cachemanager.TestConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = "localhost:1" // nothing listens here

	m, err := cachemanager.NewFromConfig(cfg, cachemanager.WithoutRedis())
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	defer m.Close()

	for _, name := range m.Layers() {
		if name == "redis" {
			t.Error("redis layer present despite WithoutRedis()")
		}
	}
}

func TestPublicHealth(t *testing.T) {
	ctx := context.Background()
	m := newMemoryManager(t)

	health, err := m.Health(ctx)
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if health.Status != cachemanager.HealthStatusHealthy {
		t.Errorf("Health().Status = %v, want healthy", health.Status)
	}
}
