package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	var transitions []string
	cb := NewCircuitBreaker("catalog", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Second,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	cb.now = func() time.Time { return clock }

	require.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	require.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock = clock.Add(time.Second)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreakerNeutralErrorsAreNotCounted(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker("catalog", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return clock }

	err := cb.Execute(func() error { return Neutral(context.Canceled) })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, StateClosed, cb.GetState())

	_ = cb.Execute(func() error { return errBoom })
	require.Equal(t, StateOpen, cb.GetState())

	// a neutral result in half-open hands the slot back
	clock = clock.Add(time.Second)
	_ = cb.Execute(func() error { return Neutral(context.DeadlineExceeded) })
	assert.Equal(t, StateHalfOpen, cb.GetState())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())

	assert.NoError(t, Neutral(nil))
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker("catalog", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return clock }

	_ = cb.Execute(func() error { return errBoom })
	clock = clock.Add(2 * time.Second)
	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "flaky", RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}, func(_ context.Context, attempt int) error {
		attempts++
		assert.Equal(t, attempts, attempt)
		if attempts < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhausted(t *testing.T) {
	err := Retry(context.Background(), "broken", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func(context.Context, int) error {
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "auth", RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return !errors.Is(err, errBoom) },
	}, func(context.Context, int) error {
		attempts++
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, attempts)
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "cancelled", RetryConfig{MaxAttempts: 3, InitialDelay: time.Hour}, func(context.Context, int) error {
		return errBoom
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetryBackoffBounds(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}.withDefaults()
	for attempt := 1; attempt <= 6; attempt++ {
		d := cfg.backoff(attempt)
		assert.GreaterOrEqual(t, d, cfg.InitialDelay)
		assert.LessOrEqual(t, d, cfg.MaxDelay)
	}
}

func TestCallTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	_, err := Call(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallReturnsValue(t *testing.T) {
	v, err := Call(context.Background(), time.Second, "fast", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	err = WithTimeout(context.Background(), 0, "direct", func(ctx context.Context) error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
}
