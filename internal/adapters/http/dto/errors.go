// Package dto provides Data Transfer Objects for HTTP request/response handling.
package dto

import "net/http"

// ErrorResponse is the flat error envelope for all error responses.
// Every error body carries "error" (human-readable message) and "code"
// (machine-readable identifier) at the top level, plus "request_id" and any
// error-specific extras such as length bounds.
type ErrorResponse map[string]any

// Error codes for machine-readable error identification.
const (
	// ErrorCodeMissingIdempotencyKey indicates the Idempotency-Key header was absent.
	ErrorCodeMissingIdempotencyKey = "MISSING_IDEMPOTENCY_KEY"

	// ErrorCodeInvalidIdempotencyKey indicates the Idempotency-Key header was not a UUID.
	ErrorCodeInvalidIdempotencyKey = "INVALID_IDEMPOTENCY_KEY"

	// ErrorCodeInvalidContentType indicates the request body was not JSON.
	ErrorCodeInvalidContentType = "INVALID_CONTENT_TYPE"

	// ErrorCodeMissingBody indicates the request body was empty or unparseable.
	ErrorCodeMissingBody = "MISSING_BODY"

	// ErrorCodeInvalidTagsType indicates the tags field was not a list.
	ErrorCodeInvalidTagsType = "INVALID_TAGS_TYPE"

	// ErrorCodeInvalidQuoteID indicates the path id was not a UUID.
	ErrorCodeInvalidQuoteID = "INVALID_QUOTE_ID"

	// ErrorCodeQuoteNotFound indicates no cached quote exists for the id.
	ErrorCodeQuoteNotFound = "QUOTE_NOT_FOUND"

	// ErrorCodeNoQuotesAvailable indicates every upstream source failed.
	ErrorCodeNoQuotesAvailable = "NO_QUOTES_AVAILABLE"

	// ErrorCodeCacheUnavailable indicates the cache dependency is down.
	ErrorCodeCacheUnavailable = "CACHE_UNAVAILABLE"

	// ErrorCodeInternal indicates an internal server error.
	ErrorCodeInternal = "INTERNAL_ERROR"

	// ErrorCodeTimeout indicates the request timed out.
	ErrorCodeTimeout = "TIMEOUT"
)

// NewErrorResponse creates a new error envelope with the given code and message.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		"error": message,
		"code":  code,
	}
}

// WithRequestID adds the request id to the envelope.
func (e ErrorResponse) WithRequestID(requestID string) ErrorResponse {
	if requestID != "" {
		e["request_id"] = requestID
	}

	return e
}

// WithDetails merges error-specific extras into the envelope at the top level.
// The "error", "code", and "request_id" keys are never overwritten.
func (e ErrorResponse) WithDetails(details map[string]any) ErrorResponse {
	for k, v := range details {
		switch k {
		case "error", "code", "request_id":
			continue
		}
		e[k] = v
	}

	return e
}

// HTTPStatusFromCode maps error codes to HTTP status codes.
// Validation codes not listed here default to 400 Bad Request.
func HTTPStatusFromCode(code string) int {
	switch code {
	case ErrorCodeQuoteNotFound:
		return http.StatusNotFound
	case ErrorCodeInvalidContentType:
		return http.StatusUnsupportedMediaType
	case ErrorCodeNoQuotesAvailable, ErrorCodeCacheUnavailable, ErrorCodeTimeout:
		return http.StatusServiceUnavailable
	case ErrorCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
