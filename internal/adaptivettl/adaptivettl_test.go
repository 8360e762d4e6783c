package adaptivettl

import (
	"fmt"
	"testing"
	"time"

	"github.com/saviornt/CacheManager/internal/config"
)

func testConfig() config.AdaptiveTTLConfig {
	return config.AdaptiveTTLConfig{
		Enabled:          true,
		MinTTL:           time.Minute,
		MaxTTL:           time.Hour,
		Threshold:        10,
		AdjustmentFactor: 2.0,
	}
}

// seed installs synthetic access statistics so tests control the rate.
func seed(m *Manager, key string, count int64, age time.Duration) {
	now := time.Now()
	m.mu.Lock()
	m.stats[key] = &accessStats{
		count:     count,
		firstSeen: now.Add(-age),
		lastSeen:  now,
	}
	m.mu.Unlock()
}

func TestRecordAccess(t *testing.T) {
	m := NewManager(testConfig(), nil)
	defer m.Close()

	if got := m.AccessCount("k"); got != 0 {
		t.Errorf("AccessCount(untracked) = %d, want 0", got)
	}

	for i := 0; i < 5; i++ {
		m.RecordAccess("k")
	}
	if got := m.AccessCount("k"); got != 5 {
		t.Errorf("AccessCount() = %d, want 5", got)
	}
	if got := m.TrackedKeys(); got != 1 {
		t.Errorf("TrackedKeys() = %d, want 1", got)
	}
}

func TestAdjustTTL(t *testing.T) {
	base := 10 * time.Minute

	t.Run("below threshold keeps base TTL", func(t *testing.T) {
		m := NewManager(testConfig(), nil)
		defer m.Close()

		seed(m, "cool", 5, time.Hour)
		if got := m.AdjustTTL("cool", base); got != base {
			t.Errorf("AdjustTTL() = %v, want base %v", got, base)
		}
	})

	t.Run("untracked key keeps base TTL", func(t *testing.T) {
		m := NewManager(testConfig(), nil)
		defer m.Close()

		if got := m.AdjustTTL("never-seen", base); got != base {
			t.Errorf("AdjustTTL() = %v, want base %v", got, base)
		}
	})

	t.Run("hot key gets a longer TTL", func(t *testing.T) {
		m := NewManager(testConfig(), nil)
		defer m.Close()

		// 100 accesses in one hour: rate 100/h, multiplier capped at 3.
		seed(m, "hot", 100, time.Hour)
		got := m.AdjustTTL("hot", base)
		if got != 3*base {
			t.Errorf("AdjustTTL(hot) = %v, want %v", got, 3*base)
		}
	})

	t.Run("moderately hot key scales with rate", func(t *testing.T) {
		m := NewManager(testConfig(), nil)
		defer m.Close()

		// 10 accesses in one hour: rate 10/h, multiplier 1+10/10 = 2.
		seed(m, "warm-hot", 10, time.Hour)
		got := m.AdjustTTL("warm-hot", base)
		if got != 2*base {
			t.Errorf("AdjustTTL() = %v, want %v", got, 2*base)
		}
	})

	t.Run("cold key gets a shorter TTL", func(t *testing.T) {
		m := NewManager(testConfig(), nil)
		defer m.Close()

		// 10 accesses in 100 hours: rate 0.1/h, divided by factor 2.
		seed(m, "cold", 10, 100*time.Hour)
		got := m.AdjustTTL("cold", base)
		if got != base/2 {
			t.Errorf("AdjustTTL(cold) = %v, want %v", got, base/2)
		}
	})

	t.Run("warm key gets a slight bump", func(t *testing.T) {
		m := NewManager(testConfig(), nil)
		defer m.Close()

		// 10 accesses in 5 hours: rate 2/h, between thresholds.
		seed(m, "warm", 10, 5*time.Hour)
		got := m.AdjustTTL("warm", base)
		want := time.Duration(float64(base) * 1.1)
		if got != want {
			t.Errorf("AdjustTTL(warm) = %v, want %v", got, want)
		}
	})

	t.Run("clamps to bounds", func(t *testing.T) {
		m := NewManager(testConfig(), nil)
		defer m.Close()

		seed(m, "hot", 1000, time.Hour)
		if got := m.AdjustTTL("hot", 50*time.Minute); got != time.Hour {
			t.Errorf("AdjustTTL() = %v, want max clamp %v", got, time.Hour)
		}

		seed(m, "cold", 10, 1000*time.Hour)
		if got := m.AdjustTTL("cold", 90*time.Second); got != time.Minute {
			t.Errorf("AdjustTTL() = %v, want min clamp %v", got, time.Minute)
		}
	})

	t.Run("monotone in access rate", func(t *testing.T) {
		m := NewManager(testConfig(), nil)
		defer m.Close()

		var prev time.Duration
		for i, count := range []int64{10, 60, 100, 300} {
			key := fmt.Sprintf("k%d", i)
			seed(m, key, count, time.Hour)
			got := m.AdjustTTL(key, base)
			if got < prev {
				t.Errorf("AdjustTTL with %d accesses = %v, less than slower key's %v", count, got, prev)
			}
			prev = got
		}
	})

	t.Run("snaps to nearest band", func(t *testing.T) {
		cfg := testConfig()
		cfg.TTLBands = []time.Duration{5 * time.Minute, 15 * time.Minute, time.Hour}
		m := NewManager(cfg, nil)
		defer m.Close()

		// Hot key: 10m base stretched to 20m, nearest band is 15m.
		seed(m, "hot", 100, time.Hour)
		if got := m.AdjustTTL("hot", base); got != 15*time.Minute {
			t.Errorf("AdjustTTL() = %v, want band 15m", got)
		}
	})
}

func TestDecay(t *testing.T) {
	t.Run("decays counts with floor one", func(t *testing.T) {
		m := NewManager(testConfig(), nil)
		defer m.Close()

		seed(m, "busy", 100, time.Hour)
		seed(m, "quiet", 1, time.Hour)

		m.Decay()

		if got := m.AccessCount("busy"); got != 90 {
			t.Errorf("AccessCount(busy) = %d, want 90", got)
		}
		if got := m.AccessCount("quiet"); got != 1 {
			t.Errorf("AccessCount(quiet) = %d, want floor 1", got)
		}
	})

	t.Run("collects idle low-count keys", func(t *testing.T) {
		m := NewManager(testConfig(), nil)
		defer m.Close()
		m.decayInterval = time.Millisecond // idle cutoff of 10ms, no background loop

		now := time.Now()
		m.mu.Lock()
		m.stats["idle"] = &accessStats{
			count:     2,
			firstSeen: now.Add(-time.Hour),
			lastSeen:  now.Add(-time.Hour), // idle far beyond 10x interval
		}
		m.stats["active"] = &accessStats{
			count:     2,
			firstSeen: now,
			lastSeen:  now,
		}
		m.mu.Unlock()

		removed := m.Decay()
		if removed != 1 {
			t.Errorf("Decay() removed %d keys, want 1", removed)
		}
		if m.AccessCount("idle") != 0 {
			t.Error("idle key survived garbage collection")
		}
		if m.AccessCount("active") == 0 {
			t.Error("active key was garbage collected")
		}
	})
}

func TestForget(t *testing.T) {
	m := NewManager(testConfig(), nil)
	defer m.Close()

	m.RecordAccess("k")
	m.Forget("k")
	if got := m.AccessCount("k"); got != 0 {
		t.Errorf("AccessCount after Forget = %d, want 0", got)
	}
}
