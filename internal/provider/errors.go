package provider

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotSupported is returned when a backend lacks a requested capability,
// e.g. speech synthesis on a text-only model. Callers must not retry it.
var ErrNotSupported = errors.New("capability not supported by this provider")

// APIError is a non-2xx response from a provider endpoint. Status drives the
// retry classification: 5xx and 429 are transient, everything else in the
// 4xx range is permanent.
type APIError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// Retryable reports whether the error is transient.
func (e *APIError) Retryable() bool {
	return e.Status >= 500 || e.Status == 429
}

// IsRetryable classifies an error for the retry policy. Typed API errors are
// classified by status; ErrNotSupported is permanent; anything else is a
// transport-level failure (timeout, connection reset) and is retried.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNotSupported) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

// RetryAfterHint extracts a provider-supplied retry-after delay, if any.
func RetryAfterHint(err error) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter, true
	}
	return 0, false
}
