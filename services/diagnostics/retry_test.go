package diagnostics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/dto"
)

type recordingSleeper struct {
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

func testPolicy(sleeper *recordingSleeper) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       sleeper.sleep,
	}
}

func TestRetry_SucceedsAfterRetryableFailures(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0

	err := Retry(context.Background(), testPolicy(sleeper), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)
}

func TestRetry_AbortsOnNonRetryableError(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0
	authErr := errors.New("NO [AUTHENTICATIONFAILED] Invalid credentials")

	err := Retry(context.Background(), testPolicy(sleeper), func(ctx context.Context) error {
		calls++
		return authErr
	})

	assert.Same(t, authErr, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

func TestRetry_PermanentErrorIsNotRetried(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0
	notFound := errors.New("mailbox could not be opened")

	policy := testPolicy(sleeper)
	policy.Permanent = func(err error) bool { return errors.Is(err, notFound) }

	err := Retry(context.Background(), policy, func(ctx context.Context) error {
		calls++
		return notFound
	})

	assert.Same(t, notFound, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

func TestRetry_ReturnsLastErrorAfterExhaustion(t *testing.T) {
	sleeper := &recordingSleeper{}
	var returned []error

	err := Retry(context.Background(), testPolicy(sleeper), func(ctx context.Context) error {
		e := errors.New("i/o timeout")
		returned = append(returned, e)
		return e
	})

	require.Len(t, returned, 3)
	assert.Same(t, returned[2], err)
	assert.Len(t, sleeper.delays, 2)
}

func TestRetry_StopsWhenSleepIsInterrupted(t *testing.T) {
	sleeper := &recordingSleeper{err: context.Canceled}
	calls := 0

	err := Retry(context.Background(), testPolicy(sleeper), func(ctx context.Context) error {
		calls++
		return errors.New("connection reset by peer")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Contains(t, err.Error(), "retry aborted")
}

func TestRetry_OnRetryReceivesClassification(t *testing.T) {
	sleeper := &recordingSleeper{}
	var kinds []string

	policy := testPolicy(sleeper)
	policy.OnRetry = func(attempt int, syncErr *dto.SyncError, delay time.Duration) {
		kinds = append(kinds, syncErr.Code)
		assert.Equal(t, time.Duration(attempt)*time.Second, delay)
	}

	_ = Retry(context.Background(), policy, func(ctx context.Context) error {
		return errors.New("503 service unavailable")
	})

	assert.Equal(t, []string{CodeServerError, CodeServerError}, kinds)
}

func TestRetryValue_ReturnsValue(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0

	value, err := RetryValue(context.Background(), testPolicy(sleeper), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("EOF")
		}
		return "session", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "session", value)
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.BaseDelay)
	assert.Equal(t, 3*time.Second, policy.Delay(3))
}
