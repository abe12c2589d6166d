package clients

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds surfaced by Fetch. Callers distinguish them with errors.Is /
// errors.As; the aggregation layer treats them all as "skip this source".
var (
	// ErrCircuitOpen is returned when the source's circuit breaker is open.
	// No network I/O is performed.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrExhaustedRetries is returned after all retry attempts have failed.
	// It wraps the error from the final attempt.
	ErrExhaustedRetries = errors.New("retries exhausted")

	// ErrTimeout indicates an attempt exceeded the source's configured timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrNetwork indicates a transport-level failure (connection refused,
	// reset, DNS failure).
	ErrNetwork = errors.New("network error")
)

// HTTPError is a non-2xx response from an upstream source.
// 5xx responses are retryable transport-class failures; 4xx responses are
// application errors and are never retried.
type HTTPError struct {
	StatusCode int
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d", e.StatusCode)
}

// Retryable reports whether the status indicates a transient server failure.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError
}
