// Package handlers provides HTTP request handlers for the service.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-aggregator/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotes-aggregator/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotes-aggregator/internal/app"
	"github.com/jsamuelsen/quotes-aggregator/internal/domain"
)

const (
	// HeaderIdempotencyKey carries the caller-chosen creation key.
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderIdempotencyKeyStatus reports whether the creation was fresh
	// ("CREATED") or replayed from an earlier request ("REPLAYED").
	HeaderIdempotencyKeyStatus = "Idempotency-Key-Status"
)

// QuoteHandler handles quote-related HTTP endpoints.
type QuoteHandler struct {
	service *app.QuoteService
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service *app.QuoteService) *QuoteHandler {
	return &QuoteHandler{
		service: service,
	}
}

// createQuoteRequest is the creation payload. Pointer fields distinguish
// absent from empty so defaults and required-field checks behave correctly.
type createQuoteRequest struct {
	Content  *string  `json:"content"`
	Author   *string  `json:"author"`
	Category *string  `json:"category"`
	Tags     []string `json:"tags"`
	Language *string  `json:"language"`
}

// CreateQuote handles POST /api/v1/quotes.
// Requires an Idempotency-Key header (UUID) and a JSON body. Replays of a
// seen key return the original payload byte for byte with status 201 and
// Idempotency-Key-Status: REPLAYED.
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	idempotencyKey := c.GetHeader(HeaderIdempotencyKey)
	if idempotencyKey == "" {
		dto.RespondWithErrorCode(c, dto.ErrorCodeMissingIdempotencyKey,
			"Idempotency-Key header is required")
		return
	}

	if !isJSONContentType(c.ContentType()) {
		dto.RespondWithErrorCode(c, dto.ErrorCodeInvalidContentType,
			"Content-Type must be application/json")
		return
	}

	req, err := decodeCreateRequest(c.Request.Body)
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "tags" {
			dto.RespondWithErrorCode(c, dto.ErrorCodeInvalidTagsType,
				"Tags must be an array")
			return
		}

		dto.RespondWithErrorCode(c, dto.ErrorCodeMissingBody,
			"Request body is required")
		return
	}

	input := domain.CreateQuoteInput{
		Content:  req.Content,
		Author:   req.Author,
		Category: req.Category,
		Tags:     req.Tags,
		Language: req.Language,
	}

	quote, raw, replayed, err := h.service.CreateQuote(c.Request.Context(), idempotencyKey, input)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	keyStatus := "CREATED"
	if replayed {
		keyStatus = "REPLAYED"
	}

	c.Header("Location", "/api/v1/quotes/"+quote.ID)
	c.Header(HeaderIdempotencyKeyStatus, keyStatus)
	c.Data(http.StatusCreated, "application/json", raw)
}

// GetQuote handles GET /api/v1/quotes/:id.
// Serves the cached creation payload; expired entries are a 404.
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	raw, err := h.service.GetQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

// AggregateQuotes handles GET /api/v1/quotes/aggregate.
// Returns the aggregated quotes payload, cached for a short window.
func (h *QuoteHandler) AggregateQuotes(c *gin.Context) {
	_, raw, err := h.service.AggregateQuotes(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

// ListQuotes handles GET /api/v1/quotes.
// Listing needs durable storage, which this service does not carry; the
// endpoint exists so the collection URL answers instead of 404ing.
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":    "This endpoint would return paginated quotes from database",
		"note":       "This is a simplified version - implement database for production",
		"request_id": middleware.GetRequestID(c),
	})
}

// RegisterQuoteRoutes registers quote routes on the given router group.
// The aggregate route is registered before the :id route so Gin does not
// treat "aggregate" as a quote id.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.POST("", h.CreateQuote)
	quotes.GET("", h.ListQuotes)
	quotes.GET("/aggregate", h.AggregateQuotes)
	quotes.GET("/:id", h.GetQuote)
}

// decodeCreateRequest parses the creation body. An empty body and malformed
// JSON are both reported as missing, matching the envelope contract.
func decodeCreateRequest(body io.Reader) (*createQuoteRequest, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, errors.New("empty body")
	}

	var req createQuoteRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}

	return &req, nil
}

// isJSONContentType reports whether the media type is JSON, including
// +json suffixed types.
func isJSONContentType(contentType string) bool {
	if contentType == "application/json" {
		return true
	}

	return strings.HasSuffix(contentType, "+json")
}
