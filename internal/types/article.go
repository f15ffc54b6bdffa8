// Package types provides type definitions for structured data used throughout the newsbrief system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Article is a news item as returned by providers and consumed by the ranker and summarizer.
// Identity is the canonicalized Link.
type Article struct {
	Title   string `json:"title" validate:"required"`
	Link    string `json:"link" validate:"required"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
	// PublishedAt is an ISO-8601 UTC timestamp; nil means the date is unknown
	PublishedAt *string `json:"published_at"`
	// Score is set by the ranker on the copies it returns
	Score *float64 `json:"score,omitempty"`
}

// ValidationError reports a malformed or missing required article field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

var articleValidator = validator.New()

// Validate checks the fields required for ingestion (title and link).
// The first failing field is reported as a *ValidationError.
func (a *Article) Validate() error {
	err := articleValidator.Struct(a)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %q check", fe.Tag()),
		}
	}
	return &ValidationError{Field: "article", Message: err.Error()}
}

// Clone returns a copy of the article whose pointer fields do not alias the original.
func (a Article) Clone() Article {
	out := a
	if a.PublishedAt != nil {
		v := *a.PublishedAt
		out.PublishedAt = &v
	}
	if a.Score != nil {
		v := *a.Score
		out.Score = &v
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
