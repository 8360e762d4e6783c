package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/saviornt/CacheManager/internal/config"
	"github.com/saviornt/CacheManager/internal/security"
	"github.com/saviornt/CacheManager/internal/types"
)

func newTestManager(t *testing.T, cfg *config.Config, opts *types.ManagerOptions) *Manager {
	t.Helper()
	if cfg == nil {
		cfg = config.ForTesting()
	}
	m, err := NewManager(cfg, opts)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

//nolint:govet // Test struct - alignment not critical
type profile struct {
	ID   int    `msgpack:"id"`
	Name string `msgpack:"name"`
}

func TestManagerRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, nil, nil)

	t.Run("set and get a struct", func(t *testing.T) {
		want := profile{ID: 1, Name: "alice"}

		written, err := m.Set(ctx, "user:1", want)
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if !written {
			t.Fatal("Set() written = false")
		}

		var got profile
		found, err := m.Get(ctx, "user:1", &got)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !found {
			t.Fatal("Get() found = false")
		}
		if got != want {
			t.Errorf("Get() = %+v, want %+v", got, want)
		}
	})

	t.Run("miss is not an error", func(t *testing.T) {
		var got profile
		found, err := m.Get(ctx, "user:absent", &got)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if found {
			t.Error("Get() found = true for absent key")
		}
	})

	t.Run("delete reports prior existence", func(t *testing.T) {
		_, _ = m.Set(ctx, "user:2", profile{ID: 2})

		existed, err := m.Delete(ctx, "user:2")
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if !existed {
			t.Error("Delete() existed = false")
		}

		existed, _ = m.Delete(ctx, "user:2")
		if existed {
			t.Error("second Delete() existed = true")
		}
	})

	t.Run("contains", func(t *testing.T) {
		_, _ = m.Set(ctx, "user:3", profile{ID: 3})

		found, err := m.Contains(ctx, "user:3")
		if err != nil || !found {
			t.Errorf("Contains() = (%v, %v), want (true, nil)", found, err)
		}
		found, err = m.Contains(ctx, "user:nope")
		if err != nil || found {
			t.Errorf("Contains(absent) = (%v, %v), want (false, nil)", found, err)
		}
	})
}

func TestManagerTTL(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, nil, nil)

	t.Run("explicit TTL expires", func(t *testing.T) {
		_, err := m.Set(ctx, "ephemeral", "value", types.WithTTL(20*time.Millisecond))
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		var got string
		if found, _ := m.Get(ctx, "ephemeral", &got); !found {
			t.Fatal("entry missing before expiry")
		}

		time.Sleep(40 * time.Millisecond)

		if found, _ := m.Get(ctx, "ephemeral", &got); found {
			t.Error("entry survived its explicit TTL")
		}
	})

	t.Run("adaptive TTL keeps writes within bounds", func(t *testing.T) {
		cfg := config.ForTesting()
		cfg.AdaptiveTTL.Enabled = true
		cfg.AdaptiveTTL.MinTTL = 50 * time.Millisecond
		cfg.AdaptiveTTL.MaxTTL = time.Hour
		am := newTestManager(t, cfg, nil)

		if _, err := am.Set(ctx, "tracked", "value"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		var got string
		if found, err := am.Get(ctx, "tracked", &got); err != nil || !found {
			t.Errorf("Get() = (%v, %v), want hit", found, err)
		}
	})
}

func TestManagerBatchOperations(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, nil, nil)

	items := map[string]any{
		"batch:1": "one",
		"batch:2": "two",
		"batch:3": "three",
	}
	if err := m.SetMany(ctx, items); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	got, err := m.GetMany(ctx, []string{"batch:1", "batch:2", "batch:3", "batch:absent"})
	if err != nil {
		t.Fatalf("GetMany() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetMany() returned %d entries, want 3", len(got))
	}
	if got["batch:2"] != "two" {
		t.Errorf("GetMany()[batch:2] = %v, want two", got["batch:2"])
	}
	if _, ok := got["batch:absent"]; ok {
		t.Error("GetMany() returned an absent key")
	}
}

func TestManagerClear(t *testing.T) {
	ctx := context.Background()

	t.Run("clear removes entries and resets counters", func(t *testing.T) {
		m := newTestManager(t, nil, nil)

		_, _ = m.Set(ctx, "a", "1")
		_, _ = m.Set(ctx, "b", "2")

		if err := m.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}

		var got string
		if found, _ := m.Get(ctx, "a", &got); found {
			t.Error("entry survived Clear()")
		}

		stats := m.Stats()
		if stats.Sets != 0 {
			t.Errorf("Stats().Sets = %d after Clear, want 0", stats.Sets)
		}
	})

	t.Run("clear pattern removes matching keys", func(t *testing.T) {
		m := newTestManager(t, nil, nil)

		for _, key := range []string{"user:1", "user:2", "session:1"} {
			_, _ = m.Set(ctx, key, "x")
		}

		removed, err := m.ClearPattern(ctx, "user:*")
		if err != nil {
			t.Fatalf("ClearPattern() error = %v", err)
		}
		if removed != 2 {
			t.Errorf("ClearPattern() = %d, want 2", removed)
		}

		var got string
		if found, _ := m.Get(ctx, "session:1", &got); !found {
			t.Error("non-matching key removed")
		}
	})
}

func TestManagerNamespace(t *testing.T) {
	ctx := context.Background()

	cfg := config.ForTesting()
	cfg.Namespace = "tenant-a"
	m := newTestManager(t, cfg, nil)

	if ns := m.Namespace(); ns != "tenant-a" {
		t.Errorf("Namespace() = %q, want tenant-a", ns)
	}

	_, _ = m.Set(ctx, "user:1", "value")

	// The stored key carries the namespace prefix.
	layer := m.layers[0]
	if _, found, _ := layer.Get(ctx, "tenant-a:user:1"); !found {
		t.Error("layer key missing namespace prefix")
	}
	if _, found, _ := layer.Get(ctx, "user:1"); found {
		t.Error("layer stored an unprefixed key")
	}

	var got string
	if found, _ := m.Get(ctx, "user:1", &got); !found || got != "value" {
		t.Errorf("Get() through namespace = (%q, %v)", got, found)
	}
}

func TestManagerAccessControl(t *testing.T) {
	ctx := context.Background()

	opts := &types.ManagerOptions{
		AccessControl: security.NewRoleAccessControl(map[string][]string{
			"set":    {"writer"},
			"delete": {"admin"},
		}),
	}
	m := newTestManager(t, nil, opts)

	t.Run("denied set is a silent no-op", func(t *testing.T) {
		written, err := m.Set(ctx, "guarded", "value")
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if written {
			t.Error("Set() written = true without the writer role")
		}
	})

	t.Run("allowed role writes", func(t *testing.T) {
		written, err := m.Set(ctx, "guarded", "value", types.WithRole("writer"))
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if !written {
			t.Error("Set() written = false with the writer role")
		}

		var got string
		if found, _ := m.Get(ctx, "guarded", &got); !found {
			t.Error("unrestricted Get() missed")
		}
	})

	t.Run("denied delete leaves the entry", func(t *testing.T) {
		existed, err := m.Delete(ctx, "guarded")
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if existed {
			t.Error("Delete() existed = true without the admin role")
		}

		var got string
		if found, _ := m.Get(ctx, "guarded", &got); !found {
			t.Error("entry removed despite denied delete")
		}
	})
}

func TestManagerKeyValidation(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, nil, nil)

	if _, err := m.Set(ctx, "", "value"); !errors.Is(err, types.ErrInvalidKey) {
		t.Errorf("Set(empty key) error = %v, want ErrInvalidKey", err)
	}

	var got string
	if _, err := m.Get(ctx, "bad\x00key", &got); !errors.Is(err, types.ErrInvalidKey) {
		t.Errorf("Get(control chars) error = %v, want ErrInvalidKey", err)
	}
}

func TestManagerReadThroughBackfill(t *testing.T) {
	ctx := context.Background()

	cfg := config.ForTesting()
	cfg.Disk.Enabled = true
	cfg.Disk.Dir = t.TempDir()
	m := newTestManager(t, cfg, nil)

	if len(m.layers) != 2 {
		t.Fatalf("layer count = %d, want 2", len(m.layers))
	}

	if _, err := m.Set(ctx, "cold", "value"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Drop the entry from the memory layer so the next read hits disk.
	if _, err := m.layers[0].Delete(ctx, "cold"); err != nil {
		t.Fatalf("layer delete error = %v", err)
	}

	var got string
	found, err := m.Get(ctx, "cold", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || got != "value" {
		t.Fatalf("Get() = (%q, %v), want disk hit", got, found)
	}

	// The backfill runs in the background; poll for the memory copy.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, found, _ := m.layers[0].Get(ctx, "cold"); found {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("memory layer was not backfilled after a disk hit")
}

// flakyLayer fails a fixed number of batch reads before recovering.
type flakyLayer struct {
	types.CacheLayer
	failReads atomic.Int32
}

func (f *flakyLayer) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if f.failReads.Add(-1) >= 0 {
		return nil, errors.New("transient read failure")
	}
	return f.CacheLayer.GetMany(ctx, keys)
}

// failingLayer rejects every write so primary-failure handling can be
// exercised without a real backend.
type failingLayer struct {
	types.CacheLayer
	err error
}

func (f *failingLayer) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return f.err
}

func (f *failingLayer) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	return f.err
}

func TestManagerBatchReadThroughBackfill(t *testing.T) {
	ctx := context.Background()

	cfg := config.ForTesting()
	cfg.Disk.Enabled = true
	cfg.Disk.Dir = t.TempDir()
	m := newTestManager(t, cfg, nil)

	items := map[string]any{"a": "1", "b": "2", "c": "3"}
	if err := m.SetMany(ctx, items); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	// Drop two entries from the memory layer so the batch read finds
	// them on disk.
	for _, key := range []string{"a", "b"} {
		if _, err := m.layers[0].Delete(ctx, key); err != nil {
			t.Fatalf("layer delete error = %v", err)
		}
	}

	results, err := m.GetMany(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("GetMany() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("GetMany() returned %d results, want 3", len(results))
	}

	// The backfill runs in the background; poll for the memory copies.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, foundA, _ := m.layers[0].Get(ctx, "a")
		_, foundB, _ := m.layers[0].Get(ctx, "b")
		if foundA && foundB {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("memory layer was not backfilled after batch disk hits")
}

func TestManagerBatchReadRetriesLayerErrors(t *testing.T) {
	ctx := context.Background()

	cfg := config.ForTesting()
	cfg.Retry.Enabled = true
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.Delay = time.Millisecond
	m := newTestManager(t, cfg, nil)

	if err := m.SetMany(ctx, map[string]any{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	flaky := &flakyLayer{CacheLayer: m.layers[0]}
	flaky.failReads.Store(1)
	m.layers[0] = flaky

	results, err := m.GetMany(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("GetMany() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("GetMany() returned %d results, want 2 after retry", len(results))
	}
}

func TestManagerPrimaryOnlyWrites(t *testing.T) {
	ctx := context.Background()

	cfg := config.ForTesting()
	cfg.Defaults.WriteThrough = false
	cfg.Disk.Enabled = true
	cfg.Disk.Dir = t.TempDir()
	m := newTestManager(t, cfg, nil)

	t.Run("write lands only in the primary layer", func(t *testing.T) {
		if _, err := m.Set(ctx, "solo", "value"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		if _, found, _ := m.layers[0].Get(ctx, "solo"); !found {
			t.Error("primary layer does not hold the key")
		}
		if _, found, _ := m.layers[1].Get(ctx, "solo"); found {
			t.Error("disk layer holds the key despite write-through being off")
		}
	})

	t.Run("primary failure surfaces and skips lower layers", func(t *testing.T) {
		writeErr := errors.New("write rejected")
		original := m.layers[0]
		m.layers[0] = &failingLayer{CacheLayer: original, err: writeErr}
		defer func() { m.layers[0] = original }()

		if _, err := m.Set(ctx, "blocked", "value"); !errors.Is(err, writeErr) {
			t.Errorf("Set() error = %v, want the primary write failure", err)
		}
		if _, found, _ := m.layers[1].Get(ctx, "blocked"); found {
			t.Error("disk layer holds the key after a primary failure")
		}
	})
}

func TestManagerStats(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, nil, nil)

	_, _ = m.Set(ctx, "k", "v")
	var got string
	_, _ = m.Get(ctx, "k", &got)
	_, _ = m.Get(ctx, "k", &got)
	_, _ = m.Get(ctx, "missing", &got)
	_, _ = m.Delete(ctx, "k")

	stats := m.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Sets != 1 || stats.Deletes != 1 {
		t.Errorf("Stats() = %+v, want hits 2, misses 1, sets 1, deletes 1", stats)
	}
	if stats.LayerHits["memory"] != 2 {
		t.Errorf("LayerHits[memory] = %d, want 2", stats.LayerHits["memory"])
	}
	if rate := stats.HitRate(); rate < 0.66 || rate > 0.67 {
		t.Errorf("HitRate() = %f, want ~0.667", rate)
	}
}

func TestManagerGetOrCreate(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, nil, nil)

	t.Run("computes on miss and caches", func(t *testing.T) {
		var calls atomic.Int32
		factory := func() (any, error) {
			calls.Add(1)
			return "computed", nil
		}

		var got string
		if err := m.GetOrCreate(ctx, "lazy", &got, factory); err != nil {
			t.Fatalf("GetOrCreate() error = %v", err)
		}
		if got != "computed" {
			t.Errorf("GetOrCreate() = %q", got)
		}

		if err := m.GetOrCreate(ctx, "lazy", &got, factory); err != nil {
			t.Fatalf("second GetOrCreate() error = %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("factory calls = %d, want 1", calls.Load())
		}
	})

	t.Run("propagates factory errors", func(t *testing.T) {
		wantErr := errors.New("backend down")
		var got string
		err := m.GetOrCreate(ctx, "failing", &got, func() (any, error) {
			return nil, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("GetOrCreate() error = %v, want %v", err, wantErr)
		}
	})
}

func TestManagerHealth(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, nil, nil)

	health, err := m.Health(ctx)
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if health.Status != types.HealthStatusHealthy {
		t.Errorf("Health().Status = %v, want healthy", health.Status)
	}
	if len(health.Layers) != 1 || health.Layers[0].Name != "memory" {
		t.Errorf("Health().Layers = %+v, want one memory layer", health.Layers)
	}
	if !m.IsHealthy(ctx) {
		t.Error("IsHealthy() = false")
	}
}

func TestManagerFallbackLayer(t *testing.T) {
	ctx := context.Background()

	cfg := config.ForTesting()
	cfg.Memory.Enabled = false
	m := newTestManager(t, cfg, nil)

	if layers := m.Layers(); len(layers) != 1 || layers[0] != "memory" {
		t.Fatalf("Layers() = %v, want fallback memory layer", layers)
	}

	if _, err := m.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() on fallback layer error = %v", err)
	}
	var got string
	if found, _ := m.Get(ctx, "k", &got); !found {
		t.Error("fallback layer lost the entry")
	}
}

func TestManagerClose(t *testing.T) {
	ctx := context.Background()

	m, err := NewManager(config.ForTesting(), nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, err := m.Set(ctx, "k", "v"); !errors.Is(err, types.ErrClosed) {
		t.Errorf("Set() after close error = %v, want ErrClosed", err)
	}
	var got string
	if _, err := m.Get(ctx, "k", &got); !errors.Is(err, types.ErrClosed) {
		t.Errorf("Get() after close error = %v, want ErrClosed", err)
	}
	if err := m.Clear(ctx); !errors.Is(err, types.ErrClosed) {
		t.Errorf("Clear() after close error = %v, want ErrClosed", err)
	}
}

func TestManagerCustomSerializer(t *testing.T) {
	ctx := context.Background()

	m := newTestManager(t, nil, &types.ManagerOptions{
		Serializer: NewJSONSerializer(),
	})

	want := profile{ID: 5, Name: "json"}
	if _, err := m.Set(ctx, "user:5", want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got profile
	if found, err := m.Get(ctx, "user:5", &got); err != nil || !found {
		t.Fatalf("Get() = (%v, %v)", found, err)
	}
	if got.Name != "json" {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}
