package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	assert.Equal(t, 5, cb.config.FailureThreshold)
	assert.Equal(t, 30*time.Second, cb.config.RecoveryTimeout)
	assert.Equal(t, 3, cb.config.SuccessThreshold)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
	})
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := cb.Call(func() error { return boom })
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, StateOpen, cb.State())

	// While open, calls are rejected without invoking the function.
	called := false
	err := cb.Call(func() error { called = true; return nil })
	require.Error(t, err)
	assert.False(t, called)

	var cbErr *CircuitBreakerError
	require.ErrorAs(t, err, &cbErr)
	assert.Equal(t, StateOpen, cbErr.State)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})
	boom := errors.New("boom")

	_ = cb.Call(func() error { return boom })
	_ = cb.Call(func() error { return boom })
	require.Equal(t, 2, cb.Failures())

	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Zero(t, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Millisecond,
		SuccessThreshold: 2,
	})

	_ = cb.Call(func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(5 * time.Millisecond)

	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	_ = cb.Call(func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Failures())
}
