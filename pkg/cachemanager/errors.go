package cachemanager

import (
	"github.com/saviornt/CacheManager/internal/types"
)

// CacheError carries the operation, key and layer an error came from.
type CacheError = types.CacheError

var (
	// ErrCacheMiss indicates that a requested key was not found.
	ErrCacheMiss = types.ErrCacheMiss
	// ErrConfig indicates an invalid configuration.
	ErrConfig = types.ErrConfig
	// ErrConnection indicates an unreachable cache backend.
	ErrConnection = types.ErrConnection
	// ErrSerialization indicates a payload could not be encoded or decoded.
	ErrSerialization = types.ErrSerialization
	// ErrInvalidKey indicates a cache key failed validation.
	ErrInvalidKey = types.ErrInvalidKey
	// ErrCircuitOpen indicates a circuit breaker rejected the operation.
	ErrCircuitOpen = types.ErrCircuitOpen
	// ErrClosed indicates the cache manager has been closed.
	ErrClosed = types.ErrClosed
	// ErrLock indicates a distributed lock operation failed.
	ErrLock = types.ErrLock
	// ErrSecurity indicates a signature or decryption check failed.
	ErrSecurity = types.ErrSecurity
	// ErrWriteQueueFull indicates the async write queue is at capacity.
	ErrWriteQueueFull = types.ErrWriteQueueFull
	// ErrShutdownTimeout indicates background work outlived the shutdown window.
	ErrShutdownTimeout = types.ErrShutdownTimeout
)

// NewCacheError creates a cache error with operation, key, layer and cause.
func NewCacheError(op, key, layer string, err error) *CacheError {
	return types.NewCacheError(op, key, layer, err)
}

// IsCacheMiss reports whether the error is a cache miss.
func IsCacheMiss(err error) bool {
	return types.IsCacheMiss(err)
}

// IsConnectionError reports whether the error indicates an unreachable backend.
func IsConnectionError(err error) bool {
	return types.IsConnectionError(err)
}

// IsCircuitOpen reports whether a circuit breaker rejected the operation.
func IsCircuitOpen(err error) bool {
	return types.IsCircuitOpen(err)
}

// IsSecurityError reports whether a signature or decryption check failed.
func IsSecurityError(err error) bool {
	return types.IsSecurityError(err)
}

// IsRetryable reports whether the operation may succeed on retry.
func IsRetryable(err error) bool {
	return types.IsRetryable(err)
}
