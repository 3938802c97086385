package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryNetwork    ErrorCategory = "network"
	CategoryTimeout    ErrorCategory = "timeout"
	CategoryRateLimit  ErrorCategory = "rate_limit"
	CategoryFetch      ErrorCategory = "fetch"
	CategoryInternal   ErrorCategory = "internal"
)

// AppError wraps an errbuilder error with the context the HTTP layer
// needs to respond and log.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	HTTPStatus int           `json:"http_status"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.code(), e.ErrBuilder.Msg)
}

// code maps the errbuilder code onto the string constants clients match
// against.
func (e *AppError) code() string {
	switch e.ErrBuilder.ErrCode() {
	case errbuilder.CodeInvalidArgument:
		return "VALIDATION_ERROR"
	case errbuilder.CodeUnavailable:
		return "FETCH_ERROR"
	case errbuilder.CodeDeadlineExceeded:
		return "TIMEOUT_ERROR"
	case errbuilder.CodeResourceExhausted:
		return "RATE_LIMIT_EXCEEDED"
	case errbuilder.CodeInternal:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// MarshalJSON renders the client-visible error shape. The embedded
// builder's own marshaler requires a non-nil cause, so it is never
// delegated to.
func (e *AppError) MarshalJSON() ([]byte, error) {
	payload := struct {
		Error      string        `json:"error"`
		Message    string        `json:"message"`
		Category   ErrorCategory `json:"category"`
		HTTPStatus int           `json:"http_status"`
		Timestamp  time.Time     `json:"timestamp"`
		Cause      string        `json:"cause,omitempty"`
	}{
		Error:      e.code(),
		Message:    e.ErrBuilder.Msg,
		Category:   e.Category,
		HTTPStatus: e.HTTPStatus,
		Timestamp:  e.Timestamp,
	}
	if cause := e.ErrBuilder.Unwrap(); cause != nil {
		payload.Cause = cause.Error()
	}
	return json.Marshal(payload)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewValidationError creates a validation error. This is the only
// category that surfaces to callers of the insights endpoint: it marks
// a structurally invalid request, e.g. no usable repositories.
func NewValidationError(message string, details ...interface{}) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if len(details) > 0 {
		errorMap := errbuilder.ErrorMap{}
		errorMap.Set("validation_details", fmt.Errorf("%v", details[0]))
		builder = builder.WithDetails(errbuilder.NewErrDetails(errorMap))
	}

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewFetchError marks a failed repository fetch (unreachable, rate
// limited, not found). Fetch errors are recovered locally: the repo
// contributes zero records and the request continues.
func NewFetchError(repo string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("repo", errors.New(repo))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(fmt.Sprintf("failed to fetch pull requests for %s", repo)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryFetch, http.StatusBadGateway)
}

// NewNetworkError creates a network error using errbuilder
func NewNetworkError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryNetwork, http.StatusBadGateway)
}

// NewTimeoutError creates a timeout error using errbuilder
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryTimeout, http.StatusGatewayTimeout)
}

// NewRateLimitError creates a rate limit error using errbuilder
func NewRateLimitError(retryAfter string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("retry_after", errors.New(retryAfter))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests)
}

// NewInternalError creates an internal server error using errbuilder
func NewInternalError(message string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("internal_details", errors.New(message))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryInternal, http.StatusInternalServerError)
}

// ErrorHandler is a Gin middleware that provides centralized error handling
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			appErr := ToAppError(err)
			LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.RecoveryWithWriter(nil, func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)

		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
	})
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	errMsg := err.Error()

	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "network is unreachable") {
		return NewNetworkError("Network connection failed", err)
	}

	if strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded") {
		return NewTimeoutError("Request timeout", err)
	}

	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("Request cancelled", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("Request deadline exceeded", err)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	errorMsg := err.ErrBuilder.Msg
	cause := err.ErrBuilder.Unwrap()

	switch err.Category {
	case CategoryValidation, CategoryRateLimit:
		logEntry.Warn(errorMsg)
	case CategoryNetwork, CategoryTimeout, CategoryFetch:
		if cause != nil {
			logEntry.Info(errorMsg, "cause", cause)
		} else {
			logEntry.Info(errorMsg)
		}
	default:
		if cause != nil {
			logEntry.Error(errorMsg, "cause", cause)
		} else {
			logEntry.Error(errorMsg)
		}
	}
}

// IsRetryableError checks if an error should trigger a retry
func IsRetryableError(err error) bool {
	appErr := ToAppError(err)

	switch appErr.Category {
	case CategoryNetwork, CategoryTimeout, CategoryFetch:
		return true
	case CategoryRateLimit:
		// Rate limits might be retryable with backoff
		return true
	default:
		return false
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	contextMsg := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", contextMsg, err)
}
