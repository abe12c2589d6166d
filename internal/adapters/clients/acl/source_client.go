// Package acl implements the Anti-Corruption Layer pattern for upstream
// quote sources. It translates whatever shape a source returns into the
// domain Quote, protecting the domain from upstream schema differences.
package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/quotes-aggregator/internal/adapters/clients"
	"github.com/jsamuelsen/quotes-aggregator/internal/domain"
)

// Defaults applied when an upstream payload lacks the expected fields.
const (
	defaultContent = "No content available"
	defaultAuthor  = "Unknown"
)

// SourceClientConfig contains configuration for a source client.
type SourceClientConfig struct {
	// Fetcher performs the resilient HTTP fetch for this source.
	Fetcher *clients.Fetcher

	// Logger is the structured logger. Defaults to slog.Default() if nil.
	Logger *slog.Logger

	// Now returns the current time for RetrievedAt stamps. Defaults to time.Now.
	Now func() time.Time
}

// SourceClient implements ports.QuoteSource over a resilient Fetcher.
// Upstream APIs disagree on field names, so translation accepts either a
// "content" or a "quote" field and falls back to fixed defaults.
type SourceClient struct {
	fetcher *clients.Fetcher
	logger  *slog.Logger
	now     func() time.Time
}

// NewSourceClient creates a source client adapter.
// Panics if Fetcher is nil.
func NewSourceClient(cfg SourceClientConfig) *SourceClient {
	if cfg.Fetcher == nil {
		panic("SourceClient: Fetcher is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &SourceClient{
		fetcher: cfg.Fetcher,
		logger:  logger,
		now:     now,
	}
}

// upstreamQuote is the external DTO. Never exposed outside the ACL.
type upstreamQuote struct {
	Content string `json:"content"`
	Quote   string `json:"quote"`
	Author  string `json:"author"`
}

// Name implements ports.QuoteSource.
func (c *SourceClient) Name() string {
	return c.fetcher.Name()
}

// Priority implements ports.QuoteSource.
func (c *SourceClient) Priority() int {
	return c.fetcher.Priority()
}

// Fetch retrieves one quote from the source and translates it to a domain
// Quote with a freshly generated ID and a RetrievedAt stamp.
// Implements ports.QuoteSource.
func (c *SourceClient) Fetch(ctx context.Context) (*domain.Quote, error) {
	body, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching from %s: %w", c.fetcher.Name(), err)
	}

	var external upstreamQuote
	if err := json.Unmarshal(body, &external); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", c.fetcher.Name(), err)
	}

	quote := c.translateToDomain(&external)

	c.logger.DebugContext(ctx, "translated upstream payload",
		slog.String("source", quote.Source),
		slog.String("quote_id", quote.ID),
		slog.String("author", quote.Author),
	)

	return quote, nil
}

// translateToDomain converts the upstream payload to a domain Quote.
// Content comes from either the "content" or "quote" field; missing fields
// get fixed defaults rather than failing the source.
func (c *SourceClient) translateToDomain(ext *upstreamQuote) *domain.Quote {
	content := ext.Content
	if content == "" {
		content = ext.Quote
	}
	if content == "" {
		content = defaultContent
	}

	author := ext.Author
	if author == "" {
		author = defaultAuthor
	}

	retrievedAt := c.now().UTC()

	return &domain.Quote{
		ID:          uuid.NewString(),
		Content:     content,
		Author:      author,
		Source:      c.fetcher.Name(),
		RetrievedAt: &retrievedAt,
	}
}
