package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/quotes-aggregator/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotes-aggregator/internal/ports"
)

// BuildInfo contains build-time information about the service.
// These values are typically injected at build time using ldflags.
type BuildInfo struct {
	// Version is the semantic version of the service.
	Version string `json:"version"`

	// Commit is the git commit SHA.
	Commit string `json:"commit"`

	// BuildTime is the timestamp when the binary was built.
	BuildTime string `json:"buildTime"`

	// GoVersion is the Go version used to build the binary.
	GoVersion string `json:"goVersion"`
}

// NewBuildInfo creates a BuildInfo with the Go version automatically set.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

// HealthHandler handles health-related HTTP endpoints.
type HealthHandler struct {
	registry  ports.HealthRegistry
	buildInfo BuildInfo
	now       func() time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(registry ports.HealthRegistry, buildInfo BuildInfo) *HealthHandler {
	return &HealthHandler{
		registry:  registry,
		buildInfo: buildInfo,
		now:       time.Now,
	}
}

// Health handles the /health endpoint.
// Returns 200 OK as long as the process is running. It does NOT check any
// dependencies; that is what readiness is for.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"timestamp":  h.now().UTC().Format(time.RFC3339),
		"request_id": middleware.GetRequestID(c),
	})
}

// readinessResponse is the response structure for the /ready endpoint.
type readinessResponse struct {
	Status    string                        `json:"status"`
	Checks    map[string]*ports.CheckResult `json:"checks,omitempty"`
	Timestamp string                        `json:"timestamp"`
}

// Readiness handles the /ready endpoint.
// Returns 200 OK if all registered health checks pass (the Redis ping among
// them), 503 Service Unavailable otherwise.
func (h *HealthHandler) Readiness(c *gin.Context) {
	result := h.registry.CheckAll(c.Request.Context())

	resp := readinessResponse{
		Status:    "ready",
		Checks:    result.Checks,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if result.Status == ports.HealthStatusUnhealthy {
		resp.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}

// BuildInfoHandler handles the /build endpoint.
// Returns build information including version, commit, and build time.
func (h *HealthHandler) BuildInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.buildInfo)
}

// MetricsHandler returns an http.Handler for Prometheus metrics.
// Use this with gin.WrapH() to register it as a route.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RegisterHealthRoutes registers probe and metrics routes on the engine root:
//   - GET /health - Liveness probe
//   - GET /ready - Readiness probe (cache connectivity)
//   - GET /build - Build information
//   - GET /metrics - Prometheus metrics
func (h *HealthHandler) RegisterHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Readiness)
	engine.GET("/build", h.BuildInfoHandler)
	engine.GET("/metrics", gin.WrapH(MetricsHandler()))
}
