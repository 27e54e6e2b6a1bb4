package diagnostics

import (
	"context"
	"fmt"
	"time"

	"github.com/customeros/mailsync/dto"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep waits between attempts. Defaults to a timer that honours ctx.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before sleeping with the attempt that just failed.
	OnRetry func(attempt int, syncErr *dto.SyncError, delay time.Duration)
	// Permanent reports errors that are never retried, whatever their classification.
	Permanent func(err error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// Delay is the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.BaseDelay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

// Retry runs op until it succeeds, fails with a non retryable error, or attempts run out.
// The last error returned by op is returned.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	_, err := RetryValue(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// RetryValue is Retry for operations that produce a value.
func RetryValue[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.normalized()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if policy.Permanent != nil && policy.Permanent(err) {
			break
		}
		syncErr := Classify(err)
		if !syncErr.Retryable || attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, syncErr, delay)
		}
		if sleepErr := policy.Sleep(ctx, delay); sleepErr != nil {
			return zero, fmt.Errorf("%w (retry aborted: %v)", lastErr, sleepErr)
		}
	}
	return zero, lastErr
}
