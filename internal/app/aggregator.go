// Package app contains application services that orchestrate use cases.
package app

import (
	"context"
	"log/slog"
	"sort"

	"github.com/jsamuelsen/quotes-aggregator/internal/domain"
	"github.com/jsamuelsen/quotes-aggregator/internal/ports"
)

// DefaultMaxQuotes is how many quotes an aggregation pass collects before
// stopping early. Early termination bounds latency and upstream load at the
// cost of not always trying every source.
const DefaultMaxQuotes = 2

// AggregatorConfig contains configuration for the aggregator.
type AggregatorConfig struct {
	// Sources are the upstream providers to try. They are sorted by
	// ascending priority at construction; configuration order breaks ties.
	Sources []ports.QuoteSource

	// MaxQuotes stops the pass once this many quotes are collected.
	// Defaults to DefaultMaxQuotes.
	MaxQuotes int

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Aggregator walks the ranked sources in priority order and collects quotes
// under failure isolation: one source's outage never blocks the others.
type Aggregator struct {
	sources   []ports.QuoteSource
	maxQuotes int
	logger    *slog.Logger
}

// NewAggregator creates an aggregator over the given sources.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	sources := make([]ports.QuoteSource, len(cfg.Sources))
	copy(sources, cfg.Sources)

	// Stable sort keeps configuration order on priority ties.
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority() < sources[j].Priority()
	})

	maxQuotes := cfg.MaxQuotes
	if maxQuotes <= 0 {
		maxQuotes = DefaultMaxQuotes
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Aggregator{
		sources:   sources,
		maxQuotes: maxQuotes,
		logger:    logger,
	}
}

// Aggregate fetches quotes from the sources in priority order.
// It never fails: every per-source error is logged and the next source is
// tried. The pass stops once maxQuotes quotes are collected, so
// lower-priority sources may never be called. The returned quotes keep
// source priority order; duplicates across sources are not deduplicated.
func (a *Aggregator) Aggregate(ctx context.Context) []domain.Quote {
	quotes := make([]domain.Quote, 0, a.maxQuotes)

	for _, source := range a.sources {
		a.logger.InfoContext(ctx, "trying source", slog.String("source", source.Name()))

		quote, err := source.Fetch(ctx)
		if err != nil {
			a.logger.ErrorContext(ctx, "source failed",
				slog.String("source", source.Name()),
				slog.Any("error", err),
			)
			continue
		}

		quotes = append(quotes, *quote)
		a.logger.InfoContext(ctx, "got quote from source",
			slog.String("source", source.Name()),
			slog.String("quote_id", quote.ID),
		)

		if len(quotes) >= a.maxQuotes {
			break
		}
	}

	return quotes
}
