package resilience

import (
	"sync/atomic"
	"time"
)

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // Number of failures before opening
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`  // Time to wait before attempting recovery
	SuccessThreshold int           `json:"success_threshold"` // Number of successes needed to close circuit
}

// CircuitBreaker implements a circuit breaker pattern for the GitHub API
// boundary: enough consecutive fetch failures stop outbound calls until
// the recovery timeout elapses.
type CircuitBreaker struct {
	config      CircuitBreakerConfig
	state       int32
	failures    int32
	successes   int32
	lastFailure time.Time
	nextAttempt time.Time
}

// NewCircuitBreaker creates a new circuit breaker, filling in defaults
// for zero-valued config fields.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 3
	}

	return &CircuitBreaker{
		config: config,
		state:  int32(StateClosed),
	}
}

// Call executes a function with circuit breaker protection
func (cb *CircuitBreaker) Call(fn func() error) error {
	state := CircuitBreakerState(atomic.LoadInt32(&cb.state))

	switch state {
	case StateOpen:
		if time.Now().Before(cb.nextAttempt) {
			return NewCircuitBreakerError("circuit breaker is open", state)
		}
		// Transition to half-open
		atomic.StoreInt32(&cb.state, int32(StateHalfOpen))
		atomic.StoreInt32(&cb.successes, 0)
		fallthrough

	case StateHalfOpen, StateClosed:
		err := fn()

		if err != nil {
			cb.onFailure()
			return err
		}

		cb.onSuccess()
		return nil

	default:
		return NewCircuitBreakerError("unknown circuit breaker state", state)
	}
}

// onFailure handles failure events
func (cb *CircuitBreaker) onFailure() {
	failures := atomic.AddInt32(&cb.failures, 1)
	atomic.StoreInt32(&cb.successes, 0)

	if failures >= int32(cb.config.FailureThreshold) {
		atomic.StoreInt32(&cb.state, int32(StateOpen))
		cb.lastFailure = time.Now()
		cb.nextAttempt = cb.lastFailure.Add(cb.config.RecoveryTimeout)
	}
}

// onSuccess handles success events
func (cb *CircuitBreaker) onSuccess() {
	atomic.StoreInt32(&cb.failures, 0)

	if CircuitBreakerState(atomic.LoadInt32(&cb.state)) == StateHalfOpen {
		successes := atomic.AddInt32(&cb.successes, 1)
		if successes >= int32(cb.config.SuccessThreshold) {
			atomic.StoreInt32(&cb.state, int32(StateClosed))
		}
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	return CircuitBreakerState(atomic.LoadInt32(&cb.state))
}

// Failures returns the current failure count
func (cb *CircuitBreaker) Failures() int {
	return int(atomic.LoadInt32(&cb.failures))
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	atomic.StoreInt32(&cb.state, int32(StateClosed))
	atomic.StoreInt32(&cb.failures, 0)
	atomic.StoreInt32(&cb.successes, 0)
}

// CircuitBreakerError represents an error from the circuit breaker
type CircuitBreakerError struct {
	Message string
	State   CircuitBreakerState
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// NewCircuitBreakerError creates a new circuit breaker error
func NewCircuitBreakerError(message string, state CircuitBreakerState) *CircuitBreakerError {
	return &CircuitBreakerError{
		Message: message,
		State:   state,
	}
}
