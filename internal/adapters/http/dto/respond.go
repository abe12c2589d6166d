package dto

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-aggregator/internal/app"
	"github.com/jsamuelsen/quotes-aggregator/internal/domain"
	"github.com/jsamuelsen/quotes-aggregator/internal/platform/logging"
)

// contextKeyRequestID mirrors the key the request ID middleware stores under.
const contextKeyRequestID = "request_id"

// MapDomainError maps a domain error to an HTTP status code and error envelope.
// Validation errors keep their own machine-readable code and extras; unknown
// errors are mapped to 500 Internal Server Error with a generic message.
func MapDomainError(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		resp := NewErrorResponse(validationErr.Code, validationErr.Message)
		if validationErr.Details != nil {
			resp.WithDetails(validationErr.Details)
		}

		return HTTPStatusFromCode(validationErr.Code), resp
	}

	switch {
	case errors.Is(err, app.ErrNoQuotes):
		return http.StatusServiceUnavailable, NewErrorResponse(
			ErrorCodeNoQuotesAvailable,
			"No quotes available from any source",
		)

	case domain.IsNotFound(err):
		return http.StatusNotFound, NewErrorResponse(
			ErrorCodeQuoteNotFound,
			"Quote not found",
		)

	case domain.IsUnavailable(err):
		return http.StatusServiceUnavailable, NewErrorResponse(
			ErrorCodeCacheUnavailable,
			"Cache service unavailable",
		)

	default:
		// Unknown errors get a generic message to avoid leaking internals
		return http.StatusInternalServerError, NewErrorResponse(
			ErrorCodeInternal,
			"Internal server error",
		)
	}
}

// HandleError writes an error response to the gin.Context.
// It maps domain errors to HTTP responses and echoes the request ID.
func HandleError(c *gin.Context, err error) {
	status, errResp := MapDomainError(err)
	errResp.WithRequestID(c.GetString(contextKeyRequestID))

	// Log internal errors with full details
	if status == http.StatusInternalServerError {
		logger := logging.FromContext(c.Request.Context())
		logger.Error("internal error", "error", err.Error())
	}

	c.JSON(status, errResp)
}

// RespondWithErrorCode writes an error response with a specific error code.
// Use this for adapter-level errors (e.g. missing headers, bad payloads) that
// don't originate from domain errors.
func RespondWithErrorCode(c *gin.Context, code, message string) {
	errResp := NewErrorResponse(code, message).
		WithRequestID(c.GetString(contextKeyRequestID))

	c.JSON(HTTPStatusFromCode(code), errResp)
}

// AbortWithErrorCode aborts the request chain with a specific error code.
func AbortWithErrorCode(c *gin.Context, code, message string) {
	errResp := NewErrorResponse(code, message).
		WithRequestID(c.GetString(contextKeyRequestID))

	c.AbortWithStatusJSON(HTTPStatusFromCode(code), errResp)
}
