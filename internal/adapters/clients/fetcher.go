package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotes-aggregator/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotes-aggregator/internal/platform/logging"
)

const (
	// instrumentationName is used for OpenTelemetry tracer and meter.
	instrumentationName = "github.com/jsamuelsen/quotes-aggregator/internal/adapters/clients"

	// userAgent identifies this service to upstream quote APIs.
	userAgent = "QuotesAggregator/1.0"

	// transportMaxIdleConns is the maximum number of idle connections.
	transportMaxIdleConns = 100

	// transportMaxIdleConnsPerHost is the maximum idle connections per host.
	transportMaxIdleConnsPerHost = 10

	// transportIdleConnTimeout is the idle connection timeout.
	transportIdleConnTimeout = 90 * time.Second
)

// RetryPolicy configures the bounded retry loop applied inside each
// breaker-permitted call.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts, jitter included.
	MaxBackoff time.Duration

	// Multiplier grows the delay between consecutive retries.
	Multiplier float64

	// JitterFactor adds up to this fraction of extra delay per retry.
	JitterFactor float64
}

// Config configures a Fetcher for a single upstream source.
type Config struct {
	// Name identifies the source for logging, metrics, and the Quote.Source field.
	Name string

	// URL is the full endpoint fetched with GET.
	URL string

	// Priority orders this source during aggregation; lower is tried first.
	Priority int

	// Timeout is the per-attempt deadline. Total wall-clock time may exceed
	// it due to retries and backoff.
	Timeout time.Duration

	// Retry configures retry behavior.
	Retry RetryPolicy

	// Breaker configures circuit breaker behavior.
	Breaker BreakerConfig

	// Logger is an optional logger. If nil, a default logger is used.
	Logger *slog.Logger
}

// Fetcher performs a single-source fetch under the full resilience pipeline:
// a per-source circuit breaker around a retrying, per-attempt-timed HTTP GET.
// Failures surface as one of ErrCircuitOpen, ErrTimeout, ErrNetwork,
// ErrExhaustedRetries, or *HTTPError.
type Fetcher struct {
	name     string
	url      string
	priority int
	timeout  time.Duration
	retry    RetryPolicy
	breaker  *CircuitBreaker
	http     *http.Client
	logger   *slog.Logger

	tracer trace.Tracer

	// Metrics
	fetchDuration metric.Float64Histogram
	fetchTotal    metric.Int64Counter

	// sleep waits between retry attempts. Overridable for testing.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher for one upstream source.
func NewFetcher(cfg *Config) (*Fetcher, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.Name == "" {
		return nil, errors.New("source name is required")
	}

	if cfg.URL == "" {
		return nil, errors.New("source URL is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("component", "clients.Fetcher"),
		slog.String("source", cfg.Name),
	)

	breaker := NewCircuitBreaker(cfg.Breaker)
	breaker.OnStateChange(func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	meter := otel.Meter(instrumentationName)

	fetchDuration, err := meter.Float64Histogram(
		"quotes.source.fetch.duration",
		metric.WithDescription("Duration of upstream source fetches"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	fetchTotal, err := meter.Int64Counter(
		"quotes.source.fetch.total",
		metric.WithDescription("Total number of upstream source fetches"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch counter: %w", err)
	}

	return &Fetcher{
		name:     cfg.Name,
		url:      cfg.URL,
		priority: cfg.Priority,
		timeout:  cfg.Timeout,
		retry:    cfg.Retry,
		breaker:  breaker,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        transportMaxIdleConns,
				MaxIdleConnsPerHost: transportMaxIdleConnsPerHost,
				IdleConnTimeout:     transportIdleConnTimeout,
			},
		},
		logger:        logger,
		tracer:        otel.Tracer(instrumentationName),
		fetchDuration: fetchDuration,
		fetchTotal:    fetchTotal,
		sleep:         sleepContext,
	}, nil
}

// Name returns the configured source name.
func (f *Fetcher) Name() string {
	return f.name
}

// Priority returns the configured source priority.
func (f *Fetcher) Priority() int {
	return f.priority
}

// CircuitState returns the current state of the source's circuit breaker.
func (f *Fetcher) CircuitState() State {
	return f.breaker.State()
}

// Fetch retrieves the raw response body from the source.
// The circuit breaker wraps the whole retry cycle, so an exhausted retry loop
// counts as one logical failure toward the failure threshold.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	startTime := time.Now()
	logger := logging.FromContext(ctx).With(slog.String("source", f.name))

	ctx, span := f.tracer.Start(ctx, "fetch "+f.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.url", f.url),
			attribute.String("peer.service", f.name),
		),
	)
	defer span.End()

	var body []byte

	err := f.breaker.Do(ctx, func(ctx context.Context) error {
		b, err := f.fetchWithRetry(ctx, logger)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		f.recordMetrics(ctx, time.Since(startTime), resultLabel(err))

		if errors.Is(err, ErrCircuitOpen) {
			logger.Warn("fetch blocked by circuit breaker")
		} else {
			logger.Error("fetch failed",
				slog.Duration("duration", time.Since(startTime)),
				slog.Any("error", err),
			)
		}

		return nil, err
	}

	f.recordMetrics(ctx, time.Since(startTime), "ok")
	logger.Debug("fetch completed", slog.Duration("duration", time.Since(startTime)))

	return body, nil
}

// fetchWithRetry performs the HTTP GET with the bounded retry loop.
// Only timeouts, network errors, and 5xx responses are retried; a 4xx
// response fails immediately.
func (f *Fetcher) fetchWithRetry(ctx context.Context, logger *slog.Logger) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < f.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := f.calculateBackoff(attempt - 1)
			logger.Debug("retrying fetch",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := f.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		body, err := f.attempt(ctx)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}

		logger.Debug("fetch attempt failed",
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, f.retry.MaxAttempts, lastErr)
}

// attempt performs a single timed GET against the source.
func (f *Fetcher) attempt(ctx context.Context) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", ErrNetwork, err)
	}

	return body, nil
}

// calculateBackoff returns the delay before retry number retryIndex+1.
// Exponential growth from InitialBackoff, capped at MaxBackoff; positive
// jitter is added but the cap is always honored.
func (f *Fetcher) calculateBackoff(retryIndex int) time.Duration {
	backoff := float64(f.retry.InitialBackoff) * math.Pow(f.retry.Multiplier, float64(retryIndex))

	if f.retry.JitterFactor > 0 {
		backoff += backoff * f.retry.JitterFactor * rand.Float64() //nolint:gosec // No need for crypto-grade randomness
	}

	if backoff > float64(f.retry.MaxBackoff) {
		backoff = float64(f.retry.MaxBackoff)
	}

	return time.Duration(backoff)
}

// recordMetrics records fetch metrics.
func (f *Fetcher) recordMetrics(ctx context.Context, duration time.Duration, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("source", f.name),
		attribute.String("result", result),
	}

	f.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	f.fetchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// classifyTransportError maps a transport failure to ErrTimeout or ErrNetwork.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// isRetryable reports whether the attempt error is a transient failure.
func isRetryable(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}

	return false
}

// resultLabel maps a fetch error to a metric result label.
func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrExhaustedRetries):
		return "retries_exhausted"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNetwork):
		return "network_error"
	default:
		return "error"
	}
}

// sleepContext waits for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
