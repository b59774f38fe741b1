package embed

import (
	"context"
	"log"
	"time"
)

// RetryPolicy formalizes the embedding call's retry behavior: every failure
// is retried up to MaxAttempts, but only errors IsRetryable classifies as
// rate limits wait out a Backoff delay first; everything else retries
// immediately.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	IsRetryable func(err error) bool
}

// DefaultRetryPolicy retries 3 times with 2^attempt-second backoff on rate
// limits.
func DefaultRetryPolicy(isRetryable func(error) bool) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
		IsRetryable: isRetryable,
	}
}

// Do runs op under the policy, honoring context cancellation during
// backoff waits. The last error is returned once attempts are exhausted.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		if p.IsRetryable != nil && p.IsRetryable(lastErr) {
			delay := p.Backoff(attempt)
			log.Printf("embed: rate limited, backing off %s before attempt %d/%d", delay, attempt+1, maxAttempts)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}
