package types

import (
	"errors"
	"fmt"
)

var (
	ErrCacheMiss       = errors.New("cache: key not found")
	ErrConfig          = errors.New("cache: invalid configuration")
	ErrConnection      = errors.New("cache: backend unreachable")
	ErrSerialization   = errors.New("cache: serialization failed")
	ErrStorage         = errors.New("cache: storage backend failed")
	ErrInvalidKey      = errors.New("cache: invalid key")
	ErrCircuitOpen     = errors.New("cache: circuit breaker open")
	ErrClosed          = errors.New("cache: manager closed")
	ErrLock            = errors.New("cache: distributed lock failed")
	ErrInvalidation    = errors.New("cache: invalidation failed")
	ErrSecurity        = errors.New("cache: security check failed")
	ErrRetryExhausted  = errors.New("cache: retry attempts exhausted")
	ErrWriteQueueFull  = errors.New("cache: write queue full")
	ErrBulkheadFull    = errors.New("cache: bulkhead at capacity")
	ErrBulkheadTimeout = errors.New("cache: bulkhead timeout")
	ErrShutdownTimeout = errors.New("cache: shutdown timeout waiting for background operations")
)

type CacheError struct {
	Op    string
	Key   string
	Layer string
	Err   error
}

func (e *CacheError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cache %s on %s [%s]: %v", e.Op, e.Layer, e.Key, e.Err)
	}
	return fmt.Sprintf("cache %s on %s: %v", e.Op, e.Layer, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

func NewCacheError(op, key, layer string, err error) *CacheError {
	return &CacheError{
		Op:    op,
		Key:   key,
		Layer: layer,
		Err:   err,
	}
}

func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

func IsSecurityError(err error) bool {
	return errors.Is(err, ErrSecurity)
}

func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Cache misses are not retryable - the key doesn't exist
	if IsCacheMiss(err) {
		return false
	}

	// Circuit open is not retryable - need to wait for recovery
	if IsCircuitOpen(err) {
		return false
	}

	// Closed manager is not retryable
	if errors.Is(err, ErrClosed) {
		return false
	}

	// Invalid key is not retryable
	if errors.Is(err, ErrInvalidKey) {
		return false
	}

	// Corrupt payloads stay corrupt across attempts
	if errors.Is(err, ErrSerialization) || errors.Is(err, ErrSecurity) {
		return false
	}

	// Most other errors (network, timeout, storage) are retryable
	return true
}
