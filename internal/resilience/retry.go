package resilience

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/saviornt/CacheManager/internal/config"
)

// Retrier re-runs failed operations a bounded number of times with a
// fixed delay between attempts. Only transient errors are retried; a
// non-retryable error is returned immediately.
type Retrier struct {
	maxAttempts int
	delay       time.Duration

	totalRetries atomic.Int64
}

// NewRetrier creates a retrier from configuration.
// Non-positive values fall back to defaults.
func NewRetrier(cfg config.RetryConfig) *Retrier {
	maxAttempts := cfg.MaxAttempts
	delay := cfg.Delay

	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if delay < 0 {
		delay = 0
	}

	return &Retrier{
		maxAttempts: maxAttempts,
		delay:       delay,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, the
// attempt budget is spent, or the context is cancelled.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) {
			return lastErr
		}

		if attempt == r.maxAttempts {
			break
		}

		r.totalRetries.Add(1)

		if err := sleepCtx(ctx, r.delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, r.maxAttempts, lastErr)
}

// DoWithResult runs fn with retries and returns its result.
func (r *Retrier) DoWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	var result any

	err := r.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})

	return result, err
}

// TotalRetries returns the number of retry attempts performed, not
// counting first attempts.
func (r *Retrier) TotalRetries() int64 {
	return r.totalRetries.Load()
}

// MaxAttempts returns the configured attempt budget.
func (r *Retrier) MaxAttempts() int {
	return r.maxAttempts
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DisabledRetrier runs operations exactly once.
type DisabledRetrier struct{}

// NewDisabledRetrier creates a retrier that never retries.
func NewDisabledRetrier() *DisabledRetrier {
	return &DisabledRetrier{}
}

func (r *DisabledRetrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *DisabledRetrier) DoWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	return fn(ctx)
}

func (r *DisabledRetrier) TotalRetries() int64 { return 0 }
func (r *DisabledRetrier) MaxAttempts() int    { return 1 }

// RetryExecutor is satisfied by both real and disabled retriers.
type RetryExecutor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)
	TotalRetries() int64
}

var _ RetryExecutor = (*Retrier)(nil)
var _ RetryExecutor = (*DisabledRetrier)(nil)
