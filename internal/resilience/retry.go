package resilience

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/engimpact/dashboard/internal/errors"
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	MaxAttempts     int              `json:"max_attempts"`
	InitialDelay    time.Duration    `json:"initial_delay"`
	MaxDelay        time.Duration    `json:"max_delay"`
	BackoffFactor   float64          `json:"backoff_factor"`
	JitterEnabled   bool             `json:"jitter_enabled"`
	RetryableErrors func(error) bool `json:"-"` // Function to determine if error is retryable
}

// DefaultRetryConfig returns sensible defaults for retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
		RetryableErrors: func(err error) bool {
			return errors.IsRetryableError(err)
		},
	}
}

// RetryableFunc represents a function that can be retried
type RetryableFunc func() error

// RetryWithConfig executes a function with retry logic using custom configuration
func RetryWithConfig(ctx context.Context, config RetryConfig, fn RetryableFunc) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !config.RetryableErrors(err) {
			break
		}

		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateDelay(config, attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// Retry executes a function with retry logic using default configuration
func Retry(ctx context.Context, fn RetryableFunc) error {
	return RetryWithConfig(ctx, DefaultRetryConfig(), fn)
}

// calculateDelay computes the delay for the next retry attempt
func calculateDelay(config RetryConfig, attempt int) time.Duration {
	// Exponential backoff: initial_delay * (backoff_factor ^ attempt)
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt)))

	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	// Add jitter to prevent thundering herd
	if config.JitterEnabled {
		jitter := time.Duration(rand.Int63n(int64(delay / 10))) // Up to 10% jitter
		delay += jitter
	}

	return delay
}

// RetryableHTTPFunc represents an HTTP function that can be retried
type RetryableHTTPFunc func() (*http.Response, error)

// RetryHTTP executes an HTTP request with retry logic. Responses with
// retryable status codes (timeouts, rate limits, 5xx) are retried; other
// non-2xx responses are returned to the caller to classify.
func RetryHTTP(ctx context.Context, config RetryConfig, fn RetryableHTTPFunc) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := fn()
		if err == nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			if !isRetryableHTTPStatus(resp.StatusCode) {
				return resp, nil
			}

			lastResp = resp
			lastErr = NewHTTPError(resp.StatusCode, resp.Status)
		} else {
			lastErr = err

			if !config.RetryableErrors(err) {
				return nil, err
			}
		}

		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateDelay(config, attempt)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastResp, lastErr
}

// isRetryableHTTPStatus checks if an HTTP status code should trigger a retry
func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429: // Request Timeout, Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	default:
		return false
	}
}

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, status string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Status:     status,
		Message:    status,
	}
}

// RetryPolicy defines different retry strategies
type RetryPolicy struct {
	Name   string
	Config RetryConfig
}

// Common retry policies
var (
	// StandardRetryPolicy for general use cases
	StandardRetryPolicy = RetryPolicy{
		Name: "standard",
		Config: RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: true,
		},
	}

	// SlowRetryPolicy for external APIs that need longer delays
	SlowRetryPolicy = RetryPolicy{
		Name: "slow",
		Config: RetryConfig{
			MaxAttempts:   5,
			InitialDelay:  1 * time.Second,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 1.5,
			JitterEnabled: true,
		},
	}
)

// RetryWithPolicy executes a function with a predefined retry policy
func RetryWithPolicy(ctx context.Context, policy RetryPolicy, fn RetryableFunc) error {
	policy.Config.RetryableErrors = DefaultRetryConfig().RetryableErrors
	return RetryWithConfig(ctx, policy.Config, fn)
}

// RetryHTTPWithPolicy executes an HTTP request with a predefined retry policy
func RetryHTTPWithPolicy(ctx context.Context, policy RetryPolicy, fn RetryableHTTPFunc) (*http.Response, error) {
	policy.Config.RetryableErrors = DefaultRetryConfig().RetryableErrors
	return RetryHTTP(ctx, policy.Config, fn)
}
