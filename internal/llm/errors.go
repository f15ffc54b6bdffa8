package llm

import (
	"errors"
	"fmt"
)

// ErrDependencyUnavailable matches every generation and embedding failure via errors.Is.
var ErrDependencyUnavailable = errors.New("dependency unavailable")

// ErrEmptyResponse is returned when a provider answers without usable content.
var ErrEmptyResponse = errors.New("empty response")

// GenerationUnavailableError wraps any failure of a generation call.
type GenerationUnavailableError struct {
	Provider Provider
	Model    string
	Cause    error
}

func (e *GenerationUnavailableError) Error() string {
	return fmt.Sprintf("generation unavailable (%s/%s): %v", e.Provider, e.Model, e.Cause)
}

func (e *GenerationUnavailableError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrDependencyUnavailable.
func (e *GenerationUnavailableError) Is(target error) bool {
	return target == ErrDependencyUnavailable
}

// EmbeddingUnavailableError wraps any failure of an embedding call.
type EmbeddingUnavailableError struct {
	Provider Provider
	Model    string
	Cause    error
}

func (e *EmbeddingUnavailableError) Error() string {
	return fmt.Sprintf("embedding unavailable (%s/%s): %v", e.Provider, e.Model, e.Cause)
}

func (e *EmbeddingUnavailableError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrDependencyUnavailable.
func (e *EmbeddingUnavailableError) Is(target error) bool {
	return target == ErrDependencyUnavailable
}
