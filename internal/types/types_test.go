package types

import (
	"errors"
	"testing"
	"time"
)

func TestEvictionPolicyValid(t *testing.T) {
	tests := []struct {
		policy EvictionPolicy
		valid  bool
	}{
		{EvictLRU, true},
		{EvictFIFO, true},
		{EvictLFU, true},
		{EvictionPolicy("random"), false},
		{EvictionPolicy(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			if got := tt.policy.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestApplyOptions(t *testing.T) {
	t.Run("applies no options", func(t *testing.T) {
		opts := ApplyOptions()
		if opts.TTL != 0 {
			t.Errorf("TTL = %v, want 0 (unset)", opts.TTL)
		}
		if opts.Role != "" {
			t.Errorf("Role = %q, want empty", opts.Role)
		}
	})

	t.Run("applies custom options", func(t *testing.T) {
		opts := ApplyOptions(
			WithTTL(1*time.Hour),
			WithRole("reader"),
			WithFireAndForget(),
		)

		if opts.TTL != 1*time.Hour {
			t.Errorf("TTL = %v, want 1h", opts.TTL)
		}
		if opts.Role != "reader" {
			t.Errorf("Role = %q, want reader", opts.Role)
		}
		if !opts.FireAndForget {
			t.Error("FireAndForget = false, want true")
		}
	})
}

func TestNamespacer(t *testing.T) {
	t.Run("default namespace passes keys through", func(t *testing.T) {
		ns, err := NewNamespacer("")
		if err != nil {
			t.Fatalf("NewNamespacer() error = %v", err)
		}
		if !ns.IsDefault() {
			t.Error("IsDefault() = false, want true")
		}
		if got := ns.Apply("user:123"); got != "user:123" {
			t.Errorf("Apply() = %q, want user:123", got)
		}
		if got := ns.Pattern(); got != "*" {
			t.Errorf("Pattern() = %q, want *", got)
		}
	})

	t.Run("named namespace prefixes keys", func(t *testing.T) {
		ns, err := NewNamespacer("tenant1")
		if err != nil {
			t.Fatalf("NewNamespacer() error = %v", err)
		}
		if got := ns.Apply("user:123"); got != "tenant1:user:123" {
			t.Errorf("Apply() = %q, want tenant1:user:123", got)
		}
		if got := ns.Strip("tenant1:user:123"); got != "user:123" {
			t.Errorf("Strip() = %q, want user:123", got)
		}
		if got := ns.Pattern(); got != "tenant1:*" {
			t.Errorf("Pattern() = %q, want tenant1:*", got)
		}
	})

	t.Run("rejects namespace containing separator", func(t *testing.T) {
		if _, err := NewNamespacer("bad:ns"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("error = %v, want ErrInvalidKey", err)
		}
	})
}

func TestCacheErrorError(t *testing.T) {
	t.Run("with key", func(t *testing.T) {
		err := &CacheError{
			Op:    "Get",
			Key:   "user:123",
			Layer: "redis",
			Err:   errors.New("connection refused"),
		}

		expected := "cache Get on redis [user:123]: connection refused"
		if got := err.Error(); got != expected {
			t.Errorf("Error() = %s, want %s", got, expected)
		}
	})

	t.Run("without key", func(t *testing.T) {
		err := &CacheError{
			Op:    "Clear",
			Layer: "memory",
			Err:   errors.New("operation failed"),
		}

		expected := "cache Clear on memory: operation failed"
		if got := err.Error(); got != expected {
			t.Errorf("Error() = %s, want %s", got, expected)
		}
	})
}

func TestCacheErrorUnwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := NewCacheError("Set", "key", "disk", underlying)

	if err.Unwrap() != underlying {
		t.Error("Unwrap() did not return underlying error")
	}

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should work with wrapped error")
	}
}

func TestIsCacheMiss(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"direct ErrCacheMiss", ErrCacheMiss, true},
		{"wrapped ErrCacheMiss", NewCacheError("Get", "key", "memory", ErrCacheMiss), true},
		{"other error", errors.New("other"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCacheMiss(tt.err); got != tt.expect {
				t.Errorf("IsCacheMiss() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil error", nil, false},
		{"cache miss", ErrCacheMiss, false},
		{"circuit open", ErrCircuitOpen, false},
		{"closed", ErrClosed, false},
		{"invalid key", ErrInvalidKey, false},
		{"serialization", ErrSerialization, false},
		{"security", ErrSecurity, false},
		{"connection", ErrConnection, true},
		{"storage", ErrStorage, true},
		{"write queue full", ErrWriteQueueFull, true},
		{"generic error", errors.New("network error"), true},
		{"wrapped retryable", NewCacheError("Get", "key", "redis", errors.New("timeout")), true},
		{"wrapped non-retryable", NewCacheError("Get", "key", "redis", ErrCacheMiss), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expect {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestManagerStatsHitRate(t *testing.T) {
	t.Run("no traffic", func(t *testing.T) {
		var s ManagerStats
		if got := s.HitRate(); got != 0 {
			t.Errorf("HitRate() = %v, want 0", got)
		}
	})

	t.Run("with traffic", func(t *testing.T) {
		s := ManagerStats{Hits: 75, Misses: 25}
		if got := s.HitRate(); got != 0.75 {
			t.Errorf("HitRate() = %v, want 0.75", got)
		}
	})
}
