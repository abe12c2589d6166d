package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotes-aggregator/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Request ID tests

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())

	var captured string

	engine.GET("/test", func(c *gin.Context) {
		captured = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.NotEmpty(t, captured)
	_, err := uuid.Parse(captured)
	assert.NoError(t, err)

	// Echoed back to the caller
	assert.Equal(t, captured, recorder.Header().Get(HeaderRequestID))
}

func TestRequestID_PropagatesFromHeader(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())

	var captured string

	engine.GET("/test", func(c *gin.Context) {
		captured = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "incoming-id-123")

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)

	assert.Equal(t, "incoming-id-123", captured)
	assert.Equal(t, "incoming-id-123", recorder.Header().Get(HeaderRequestID))
}

func TestRequestID_AvailableInRequestContext(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())

	var fromCtx string

	engine.GET("/test", func(c *gin.Context) {
		fromCtx = RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "ctx-id-456")

	engine.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "ctx-id-456", fromCtx)
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestMustGetRequestID_Fallback(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "unknown", MustGetRequestID(c))
}

// Correlation ID tests

func TestCorrelationID_PropagatesFromHeader(t *testing.T) {
	engine := gin.New()
	engine.Use(CorrelationID())

	var captured, fromCtx string

	engine.GET("/test", func(c *gin.Context) {
		captured = GetCorrelationID(c)
		fromCtx = CorrelationIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderCorrelationID, "txn-789")

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)

	assert.Equal(t, "txn-789", captured)
	assert.Equal(t, "txn-789", fromCtx)
	assert.Equal(t, "txn-789", recorder.Header().Get(HeaderCorrelationID))
}

func TestCorrelationID_GeneratesWhenAbsent(t *testing.T) {
	engine := gin.New()
	engine.Use(CorrelationID())
	engine.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/test", nil))

	id := recorder.Header().Get(HeaderCorrelationID)
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

// Recovery tests

func TestRecovery_PanicReturnsEnvelope(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(), Recovery(discardLogger()))
	engine.GET("/panic", func(*gin.Context) { panic("something broke") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(HeaderRequestID, "panic-req-1")

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "INTERNAL_ERROR", envelope["code"])
	assert.Equal(t, "panic-req-1", envelope["request_id"])
}

func TestRecovery_NoPanicPassesThrough(t *testing.T) {
	engine := gin.New()
	engine.Use(Recovery(discardLogger()))
	engine.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ok", recorder.Body.String())
}

// Timeout tests

func TestSimpleTimeout_SetsDeadline(t *testing.T) {
	engine := gin.New()
	engine.Use(SimpleTimeout(5 * time.Second))

	var hasDeadline bool

	engine.GET("/test", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.True(t, hasDeadline)
}

func TestSimpleTimeout_ContextExpires(t *testing.T) {
	engine := gin.New()
	engine.Use(SimpleTimeout(10 * time.Millisecond))

	var ctxErr error

	engine.GET("/slow", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			ctxErr = c.Request.Context().Err()
		case <-time.After(time.Second):
		}
		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.ErrorIs(t, ctxErr, context.DeadlineExceeded)
}

// Logging tests

func newLoggingEngine(buf *bytes.Buffer) *gin.Engine {
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	engine := gin.New()
	// Completion logging reads the enriched context logger
	engine.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	})
	engine.Use(Logging(logger))
	engine.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	return engine
}

func TestLogging_LogsStartAndCompletion(t *testing.T) {
	var buf bytes.Buffer
	engine := newLoggingEngine(&buf)

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	output := buf.String()
	assert.Contains(t, output, "request started")
	assert.Contains(t, output, "request completed")
	assert.Contains(t, output, "/test")
}

func TestLogging_SkipsProbePaths(t *testing.T) {
	var buf bytes.Buffer
	engine := newLoggingEngine(&buf)

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Empty(t, buf.String())
}

func TestLogging_ServerErrorLogsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	engine := newLoggingEngine(&buf)

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
