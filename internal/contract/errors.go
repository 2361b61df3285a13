package contract

import (
	"errors"
	"fmt"
	"time"
)

// Error categories shared by the pipeline. Wrap them with %w and test with errors.Is.
var (
	// ErrValidation covers bad input such as inverted date ranges. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrUpstreamTransient covers rate limits, timeouts and 5xx responses.
	ErrUpstreamTransient = errors.New("upstream transient error")

	// ErrUpstreamAuthExpired is returned when the upstream rejects credentials.
	ErrUpstreamAuthExpired = errors.New("upstream auth expired")

	// ErrDataIntegrity marks a single malformed item.
	ErrDataIntegrity = errors.New("data integrity error")

	// ErrPersistence marks a failed transaction.
	ErrPersistence = errors.New("persistence error")

	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("not found")
)

// UpstreamError is a non-2xx upstream response.
type UpstreamError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto an error category.
func (e *UpstreamError) Unwrap() error {
	switch {
	case e.IsUnauthorized():
		return ErrUpstreamAuthExpired
	case e.IsRateLimited(), e.IsServerError():
		return ErrUpstreamTransient
	default:
		return nil
	}
}

// IsRateLimited returns true if this is a rate limit error.
func (e *UpstreamError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsServerError returns true if this is a server error.
func (e *UpstreamError) IsServerError() bool {
	return e.StatusCode >= 500
}

// IsUnauthorized returns true if the upstream rejected the credentials.
func (e *UpstreamError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// Validationf builds an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
