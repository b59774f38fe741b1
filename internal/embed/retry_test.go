package embed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haleth-io/vectorpipe/internal/core"
)

func fastPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     func(int) time.Duration { return time.Millisecond },
		IsRetryable: func(err error) bool { return errors.Is(err, core.ErrRateLimited) },
	}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	attempts := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryRateLimitedThenSucceeds(t *testing.T) {
	attempts := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return core.ErrRateLimited
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		attempts++
		return core.ErrRateLimited
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRateLimited)
	assert.Equal(t, 3, attempts)
}

func TestRetryNonRetryableSkipsBackoff(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		Backoff:     func(int) time.Duration { return time.Hour }, // would hang if waited
		IsRetryable: func(err error) bool { return errors.Is(err, core.ErrRateLimited) },
	}

	attempts := 0
	start := time.Now()
	err := policy.Do(context.Background(), func() error {
		attempts++
		return errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Less(t, time.Since(start), time.Second, "non-retryable errors must not back off")
}

func TestRetryHonorsContextDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	policy := RetryPolicy{
		MaxAttempts: 5,
		Backoff:     func(int) time.Duration { return time.Hour },
		IsRetryable: func(error) bool { return true },
	}

	err := policy.Do(ctx, func() error { return core.ErrRateLimited })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	attempts := 0
	err := RetryPolicy{}.Do(context.Background(), func() error {
		attempts++
		return errors.New("x")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
