package types

import (
	"context"
	"time"
)

type LayerInfo interface {
	Name() string
	Type() LayerType
	IsAvailable() bool
}

type LayerReader interface {
	// Get returns the stored bytes and whether the key was present.
	// Absence is reported as found=false with a nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
}

type LayerWriter interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error
	// Delete reports whether the key existed before removal.
	Delete(ctx context.Context, key string) (bool, error)
}

type LayerMaintainer interface {
	Clear(ctx context.Context) error
	Close() error
}

type LayerStatsProvider interface {
	Stats() LayerStats
	EntryCount() int
}

// CacheLayer is the uniform contract every cache backend implements.
type CacheLayer interface {
	LayerInfo
	LayerReader
	LayerWriter
	LayerMaintainer
	LayerStatsProvider
}

// PatternClearer removes entries whose keys match a glob-style pattern.
// Layers implement it when bulk invalidation by pattern is cheaper than
// key-by-key deletes.
type PatternClearer interface {
	ClearPattern(ctx context.Context, pattern string) (int, error)
}

// DefaultTTLProvider exposes the TTL a layer applies when none is given.
// The orchestrator uses it to backfill each layer with its own TTL.
type DefaultTTLProvider interface {
	DefaultTTL() time.Duration
}

type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
}

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

type Signer interface {
	Sign(data []byte) string
	Verify(data []byte, signature string) bool
}

// AccessControl gates cache operations by caller role.
type AccessControl interface {
	Allow(operation, role string) bool
}

type MetricsRecorder interface {
	RecordHit(layer string, key string, latency time.Duration)
	RecordMiss(layer string, key string, latency time.Duration)
	RecordSet(layer string, key string, size int, latency time.Duration)
	RecordDelete(layer string, key string, latency time.Duration)
	RecordError(layer string, operation string, err error)
	RecordCircuitBreakerStateChange(from, to string)
}

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
