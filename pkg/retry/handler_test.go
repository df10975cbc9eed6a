package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rohmanhakim/site-spider/pkg/failure"
	"github.com/rohmanhakim/site-spider/pkg/retry"
	"github.com/rohmanhakim/site-spider/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// defaultBackoffParam returns a default backoff parameter for tests
func defaultBackoffParam() timeutil.BackoffParam {
	return timeutil.NewBackoffParam(
		time.Millisecond,
		2.0,
		10*time.Millisecond,
	)
}

func testParams(maxAttempts int) retry.RetryParam {
	return retry.NewRetryParam(0, 0, 42, maxAttempts, defaultBackoffParam())
}

// mockError is a mock implementation of failure.ClassifiedError for testing
type mockError struct {
	msg       string
	retryable bool
	severity  failure.Severity
}

func (m *mockError) Error() string {
	return m.msg
}

func (m *mockError) Severity() failure.Severity {
	return m.severity
}

func (m *mockError) IsRetryable() bool {
	return m.retryable
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	callCount := 0
	fn := func() (string, failure.ClassifiedError) {
		callCount++
		return "success", nil
	}

	result := retry.Retry(context.Background(), testParams(3), fn)

	require.True(t, result.IsSuccess())
	assert.Equal(t, "success", result.Value())
	assert.Equal(t, 1, result.Attempts())
	assert.Equal(t, 1, callCount)
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	fn := func() (string, failure.ClassifiedError) {
		callCount++
		if callCount < 3 {
			return "", &mockError{msg: "transient error", retryable: true, severity: failure.SeverityRecoverable}
		}
		return "success", nil
	}

	result := retry.Retry(context.Background(), testParams(5), fn)

	require.True(t, result.IsSuccess())
	assert.Equal(t, "success", result.Value())
	assert.Equal(t, 3, result.Attempts())
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	callCount := 0
	permanent := &mockError{msg: "permanent", retryable: false, severity: failure.SeverityFatal}
	fn := func() (int, failure.ClassifiedError) {
		callCount++
		return 0, permanent
	}

	result := retry.Retry(context.Background(), testParams(5), fn)

	require.True(t, result.IsFailure())
	assert.Same(t, permanent, result.Err())
	assert.Equal(t, 1, callCount)
}

func TestRetry_ExhaustedAttempts(t *testing.T) {
	callCount := 0
	transient := &mockError{msg: "transient", retryable: true, severity: failure.SeverityRecoverable}
	fn := func() (int, failure.ClassifiedError) {
		callCount++
		return 0, transient
	}

	result := retry.Retry(context.Background(), testParams(3), fn)

	require.True(t, result.IsFailure())
	assert.Equal(t, 3, callCount)
	assert.ErrorIs(t, result.Err(), &retry.RetryError{})

	var retryErr *retry.RetryError
	require.True(t, errors.As(result.Err(), &retryErr))
	assert.Equal(t, retry.ErrExhaustedAttempts, retryErr.Cause)
	assert.Same(t, transient, retryErr.Last)
}

func TestRetry_SingleAttemptReturnsOriginalError(t *testing.T) {
	transient := &mockError{msg: "transient", retryable: true, severity: failure.SeverityRecoverable}
	result := retry.Retry(context.Background(), testParams(1), func() (int, failure.ClassifiedError) {
		return 0, transient
	})

	assert.Same(t, transient, result.Err())
	assert.Equal(t, 1, result.Attempts())
}

func TestRetry_ZeroAttempts(t *testing.T) {
	called := false
	result := retry.Retry(context.Background(), testParams(0), func() (int, failure.ClassifiedError) {
		called = true
		return 1, nil
	})

	assert.False(t, called)
	var retryErr *retry.RetryError
	require.True(t, errors.As(result.Err(), &retryErr))
	assert.Equal(t, retry.ErrZeroAttempt, retryErr.Cause)
}

func TestRetry_CancelledContextInterruptsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	params := retry.NewRetryParam(time.Minute, 0, 42, 3, defaultBackoffParam())

	callCount := 0
	fn := func() (int, failure.ClassifiedError) {
		callCount++
		cancel()
		return 0, &mockError{msg: "transient", retryable: true, severity: failure.SeverityRecoverable}
	}

	start := time.Now()
	result := retry.Retry(ctx, params, fn)

	assert.True(t, result.IsFailure())
	assert.Equal(t, 1, callCount)
	assert.Less(t, time.Since(start), 5*time.Second)
}
