// Package domain contains core business entities and rules.
package domain

import "time"

// DefaultCategory is assigned when a creation request omits the category.
const DefaultCategory = "general"

// DefaultLanguage is assigned when a creation request omits the language.
const DefaultLanguage = "en"

// Categories is the fixed set of accepted quote categories.
var Categories = []string{
	"inspiration", "wisdom", "success", "love", "life", "business", "technology",
}

// Quote represents a quotation with its author.
// A quote is immutable once created. It originates either from a creation
// request (CreatedAt set) or from an upstream source during aggregation
// (RetrievedAt and Source set).
type Quote struct {
	// ID is the unique identifier for this quote.
	ID string `json:"id"`

	// Content is the text of the quote.
	Content string `json:"content"`

	// Author is who said or wrote the quote.
	Author string `json:"author"`

	// Category classifies the quote. Defaults to "general" for created quotes.
	Category string `json:"category,omitempty"`

	// Tags are themes associated with the quote.
	Tags []string `json:"tags,omitempty"`

	// Language is the 2-letter ISO code of the quote's language.
	Language string `json:"language,omitempty"`

	// CreatedAt is set for quotes created through the API.
	CreatedAt *time.Time `json:"created_at,omitempty"`

	// RetrievedAt is set for quotes fetched from upstream sources.
	RetrievedAt *time.Time `json:"retrieved_at,omitempty"`

	// Source names the upstream source for aggregated quotes.
	// Empty for created quotes.
	Source string `json:"source,omitempty"`
}

// AggregatedResult is the outcome of one aggregation pass across the
// configured sources.
type AggregatedResult struct {
	Quotes    []Quote   `json:"quotes"`
	Count     int       `json:"count"`
	Sources   []string  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAggregatedResult builds a result from the quotes collected during one
// aggregation pass. Sources are listed in the same order as the quotes.
func NewAggregatedResult(quotes []Quote, now time.Time) *AggregatedResult {
	sources := make([]string, 0, len(quotes))
	for _, q := range quotes {
		sources = append(sources, q.Source)
	}

	return &AggregatedResult{
		Quotes:    quotes,
		Count:     len(quotes),
		Sources:   sources,
		Timestamp: now.UTC(),
	}
}
