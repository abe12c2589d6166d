// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrUnavailable, etc.)
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/quotes-aggregator/internal/domain"
)

// QuoteSource is an upstream quote provider tried during aggregation.
// Implementations wrap an HTTP endpoint with the retry and circuit-breaker
// pipeline and translate the upstream payload to a domain Quote.
type QuoteSource interface {
	// Name returns the configured source name (e.g. "primary").
	Name() string

	// Priority orders sources during aggregation; lower is tried first.
	Priority() int

	// Fetch retrieves one quote from the source.
	// Returns a non-nil error when the source cannot produce a quote,
	// wrapping the transport failure kind for callers that inspect it.
	Fetch(ctx context.Context) (*domain.Quote, error)
}

// Cache is the key-value store used for idempotency records and response
// caching. Only single-key atomicity is assumed; there are no cross-key
// transactions.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an expiry. A TTL of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores a value only if the key does not already exist.
	// Returns true if the value was stored, false if the key was taken.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
