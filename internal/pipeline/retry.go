package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines retry behavior for an eventually-consistent remote
// operation.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// RolePropagationPolicy bounds the wait for a freshly created execution role
// to become assumable by the function service. Propagation usually settles
// within a few seconds but can take tens of seconds on a fresh account.
func RolePropagationPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 10,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// UpdateSettlePolicy bounds the wait for an in-progress function update to
// finish before the next update call is issued.
func UpdateSettlePolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 8,
		BaseDelay:  1 * time.Second,
		MaxDelay:   15 * time.Second,
	}
}

// RetryWithBackoff executes fn with exponential backoff and jitter.
// It retries only if shouldRetry returns true for the error.
func RetryWithBackoff(ctx context.Context, policy *RetryPolicy, fn func() error, shouldRetry func(error) bool) error {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !shouldRetry(lastErr) {
			return lastErr
		}

		if attempt < policy.MaxRetries {
			delay := backoffDelay(attempt, policy.BaseDelay, policy.MaxDelay)
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", policy.MaxRetries, lastErr)
}

// backoffDelay returns exponential backoff with jitter.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	backoff := float64(base) * math.Pow(2, float64(attempt))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	// Jitter: random between 0 and backoff
	return time.Duration(rand.Float64() * backoff)
}
