package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Validation codes surfaced to API callers.
const (
	CodeMissingField         = "MISSING_FIELD"
	CodeInvalidContentLength = "INVALID_CONTENT_LENGTH"
	CodeInvalidAuthorLength  = "INVALID_AUTHOR_LENGTH"
	CodeTooManyTags          = "TOO_MANY_TAGS"
	CodeInvalidTag           = "INVALID_TAG"
	CodeInvalidCategory      = "INVALID_CATEGORY"
	CodeInvalidLanguage      = "INVALID_LANGUAGE"
)

// Field length bounds for quote creation.
const (
	MinContentLength = 3
	MaxContentLength = 500
	MinAuthorLength  = 2
	MaxAuthorLength  = 100
	MinTagLength     = 2
	MaxTagLength     = 30
	MaxTags          = 10
	LanguageLength   = 2
)

// CreateQuoteInput is the raw creation payload before validation.
// Pointer fields distinguish absent from empty: a nil field was not supplied
// and receives its default, a non-nil field is validated as given.
type CreateQuoteInput struct {
	Content  *string
	Author   *string
	Category *string
	Tags     []string
	Language *string
}

// ValidateQuote checks a creation payload and builds the resulting Quote.
// Checks run in a fixed order and the first failing check determines the
// reported error: required fields, content length, author length, tags,
// category, language. Pure function, no I/O.
func ValidateQuote(in CreateQuoteInput, id string, now time.Time) (*Quote, error) {
	if in.Content == nil {
		return nil, NewValidationErrorWithDetails(CodeMissingField, "content",
			"missing required field: content", map[string]any{"field": "content"})
	}

	if in.Author == nil {
		return nil, NewValidationErrorWithDetails(CodeMissingField, "author",
			"missing required field: author", map[string]any{"field": "author"})
	}

	if err := validateLength(*in.Content, "content", CodeInvalidContentLength,
		MinContentLength, MaxContentLength); err != nil {
		return nil, err
	}

	if err := validateLength(*in.Author, "author", CodeInvalidAuthorLength,
		MinAuthorLength, MaxAuthorLength); err != nil {
		return nil, err
	}

	if err := validateTags(in.Tags); err != nil {
		return nil, err
	}

	if in.Category != nil && !slices.Contains(Categories, *in.Category) {
		return nil, NewValidationError(CodeInvalidCategory, "category",
			"category must be one of: "+strings.Join(Categories, ", "))
	}

	if in.Language != nil && utf8.RuneCountInString(*in.Language) != LanguageLength {
		return nil, NewValidationError(CodeInvalidLanguage, "language",
			"language must be a 2-letter ISO code")
	}

	q := &Quote{
		ID:       id,
		Content:  *in.Content,
		Author:   *in.Author,
		Category: DefaultCategory,
		Tags:     []string{},
		Language: DefaultLanguage,
	}

	if in.Category != nil {
		q.Category = *in.Category
	}

	if in.Tags != nil {
		q.Tags = in.Tags
	}

	if in.Language != nil {
		q.Language = *in.Language
	}

	createdAt := now.UTC()
	q.CreatedAt = &createdAt

	return q, nil
}

// validateLength checks that a field's rune count falls within [min, max].
func validateLength(value, field, code string, minLen, maxLen int) error {
	length := utf8.RuneCountInString(value)
	if length < minLen || length > maxLen {
		return NewValidationErrorWithDetails(code, field,
			fmt.Sprintf("%s must be between %d and %d characters", field, minLen, maxLen),
			map[string]any{
				"current_length": length,
				"min_length":     minLen,
				"max_length":     maxLen,
			})
	}

	return nil
}

// validateTags checks tag count and per-tag length bounds.
func validateTags(tags []string) error {
	if len(tags) > MaxTags {
		return NewValidationError(CodeTooManyTags, "tags",
			fmt.Sprintf("maximum %d tags allowed", MaxTags))
	}

	for _, tag := range tags {
		length := utf8.RuneCountInString(tag)
		if length < MinTagLength || length > MaxTagLength {
			return NewValidationError(CodeInvalidTag, "tags",
				fmt.Sprintf("tags must be strings between %d and %d characters", MinTagLength, MaxTagLength))
		}
	}

	return nil
}
