package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/quotes-aggregator/internal/domain"
	"github.com/jsamuelsen/quotes-aggregator/internal/ports"
)

// Cache key layout. The aggregate cache is a single slot, not per-query.
const (
	idempotencyKeyPrefix = "idempotency:"
	quoteKeyPrefix       = "quote:"
	aggregateCacheKey    = "aggregated_quotes"
)

// CodeInvalidIdempotencyKey is surfaced when the Idempotency-Key header is
// not a syntactically valid UUID. The key is rejected before any cache access.
const CodeInvalidIdempotencyKey = "INVALID_IDEMPOTENCY_KEY"

// ErrNoQuotes indicates an aggregation pass in which every source failed.
var ErrNoQuotes = errors.New("no quotes available from any source")

// Default cache TTLs.
const (
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultQuoteTTL       = time.Hour
	DefaultAggregateTTL   = 5 * time.Minute
)

// QuoteAggregator is the slice of the aggregation coordinator the service
// depends on.
type QuoteAggregator interface {
	Aggregate(ctx context.Context) []domain.Quote
}

// QuoteServiceConfig contains configuration for the quote service.
type QuoteServiceConfig struct {
	Cache      ports.Cache
	Aggregator QuoteAggregator
	Logger     *slog.Logger

	// TTLs default to the package constants when zero.
	IdempotencyTTL time.Duration
	QuoteTTL       time.Duration
	AggregateTTL   time.Duration

	// Now and NewID are overridable for testing.
	Now   func() time.Time
	NewID func() string
}

// QuoteService orchestrates quote creation, lookup, and aggregation.
// The cache is the only persistence: created quotes live under their
// idempotency key (24h) and their own id (1h); aggregation results live in a
// single 5-minute slot.
type QuoteService struct {
	cache      ports.Cache
	aggregator QuoteAggregator
	logger     *slog.Logger

	idempotencyTTL time.Duration
	quoteTTL       time.Duration
	aggregateTTL   time.Duration

	now   func() time.Time
	newID func() string
}

// NewQuoteService creates a new quote service with the provided dependencies.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	s := &QuoteService{
		cache:          cfg.Cache,
		aggregator:     cfg.Aggregator,
		logger:         cfg.Logger,
		idempotencyTTL: cfg.IdempotencyTTL,
		quoteTTL:       cfg.QuoteTTL,
		aggregateTTL:   cfg.AggregateTTL,
		now:            cfg.Now,
		newID:          cfg.NewID,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.idempotencyTTL <= 0 {
		s.idempotencyTTL = DefaultIdempotencyTTL
	}
	if s.quoteTTL <= 0 {
		s.quoteTTL = DefaultQuoteTTL
	}
	if s.aggregateTTL <= 0 {
		s.aggregateTTL = DefaultAggregateTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	return s
}

// CreateQuote creates a quote with at-most-one semantic effect per
// idempotency key. On a key hit the stored payload is returned verbatim and
// the builder (validation plus construction) never runs again. On a miss the
// initial write uses set-if-absent, so two requests racing the same fresh key
// still produce exactly one stored payload; the losing writer reads it back
// and replays it.
//
// The returned bytes are the exact payload stored under the key; replayed
// reports whether this call reused an earlier creation.
func (s *QuoteService) CreateQuote(ctx context.Context, idempotencyKey string, in domain.CreateQuoteInput) (*domain.Quote, []byte, bool, error) {
	if _, err := uuid.Parse(idempotencyKey); err != nil {
		return nil, nil, false, domain.NewValidationError(CodeInvalidIdempotencyKey,
			"Idempotency-Key", "Idempotency-Key must be a valid UUID")
	}

	cacheKey := idempotencyKeyPrefix + idempotencyKey

	if raw, err := s.cache.Get(ctx, cacheKey); err == nil {
		s.logger.InfoContext(ctx, "replaying cached creation",
			slog.String("idempotency_key", idempotencyKey))
		return unmarshalQuote(raw)
	} else if !domain.IsNotFound(err) {
		// Without the key check there is no idempotency guarantee.
		return nil, nil, false, fmt.Errorf("checking idempotency key: %w", err)
	}

	quote, err := domain.ValidateQuote(in, s.newID(), s.now())
	if err != nil {
		return nil, nil, false, err
	}

	raw, err := json.Marshal(quote)
	if err != nil {
		return nil, nil, false, fmt.Errorf("encoding quote: %w", err)
	}

	stored, err := s.cache.SetNX(ctx, cacheKey, raw, s.idempotencyTTL)
	if err != nil {
		return nil, nil, false, fmt.Errorf("storing idempotency record: %w", err)
	}

	if !stored {
		// Lost the first-writer race; the winning payload is authoritative.
		winning, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			return nil, nil, false, fmt.Errorf("reading winning idempotency record: %w", err)
		}
		return unmarshalQuote(winning)
	}

	if err := s.cache.Set(ctx, quoteKeyPrefix+quote.ID, raw, s.quoteTTL); err != nil {
		return nil, nil, false, fmt.Errorf("storing quote: %w", err)
	}

	s.logger.InfoContext(ctx, "created quote",
		slog.String("quote_id", quote.ID),
		slog.String("idempotency_key", idempotencyKey),
	)

	return quote, raw, false, nil
}

// GetQuote returns the cached quote payload for the given id.
// The quote cache is the only persistence, so an expired or never-written
// entry is a plain not-found. Cache transport failures on this read path are
// logged and reported as not-found as well.
func (s *QuoteService) GetQuote(ctx context.Context, id string) ([]byte, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewValidationError("INVALID_QUOTE_ID", "id",
			"invalid quote ID format")
	}

	raw, err := s.cache.Get(ctx, quoteKeyPrefix+id)
	if err != nil {
		if !domain.IsNotFound(err) {
			s.logger.ErrorContext(ctx, "quote cache read failed",
				slog.String("quote_id", id),
				slog.Any("error", err),
			)
		}
		return nil, domain.NewNotFoundError("quote", id)
	}

	s.logger.InfoContext(ctx, "returning cached quote", slog.String("quote_id", id))

	return raw, nil
}

// AggregateQuotes returns the aggregated quotes payload, serving the
// single-slot cache when fresh. The cache is an optimization here, not a
// correctness requirement: read and write failures are logged and the pass
// recomputes. Returns ErrNoQuotes when every source failed; empty results
// are never cached.
func (s *QuoteService) AggregateQuotes(ctx context.Context) (*domain.AggregatedResult, []byte, error) {
	raw, err := s.cache.Get(ctx, aggregateCacheKey)
	if err == nil {
		var result domain.AggregatedResult
		if unmarshalErr := json.Unmarshal(raw, &result); unmarshalErr == nil {
			s.logger.InfoContext(ctx, "returning cached aggregated quotes")
			return &result, raw, nil
		}
	} else if !domain.IsNotFound(err) {
		s.logger.ErrorContext(ctx, "aggregate cache read failed", slog.Any("error", err))
	}

	quotes := s.aggregator.Aggregate(ctx)
	if len(quotes) == 0 {
		return nil, nil, ErrNoQuotes
	}

	result := domain.NewAggregatedResult(quotes, s.now())

	raw, err = json.Marshal(result)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding aggregated result: %w", err)
	}

	if err := s.cache.Set(ctx, aggregateCacheKey, raw, s.aggregateTTL); err != nil {
		s.logger.ErrorContext(ctx, "failed to cache aggregated quotes", slog.Any("error", err))
	}

	return result, raw, nil
}

// unmarshalQuote decodes a stored creation payload for replay.
func unmarshalQuote(raw []byte) (*domain.Quote, []byte, bool, error) {
	var quote domain.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, nil, false, fmt.Errorf("decoding cached quote: %w", err)
	}

	return &quote, raw, true, nil
}
