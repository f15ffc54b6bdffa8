package safety

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrScorerNotConfigured is returned when no scoring endpoint is configured.
var ErrScorerNotConfigured = errors.New("safety scorer not configured")

// UnsafeContentError is returned when a query fails moderation.
type UnsafeContentError struct {
	Flags  map[string]bool
	Scores map[string]float64
}

func (e *UnsafeContentError) Error() string {
	var hit []string
	for name, on := range e.Flags {
		if on {
			hit = append(hit, name)
		}
	}
	sort.Strings(hit)
	if len(hit) == 0 {
		return "blocked by safety: model scores over threshold"
	}
	return fmt.Sprintf("blocked by safety: %s", strings.Join(hit, ", "))
}

// ScorerError represents a failure talking to the scoring model.
type ScorerError struct {
	Message string
	Cause   error
}

func (e *ScorerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("safety scorer error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("safety scorer error: %s", e.Message)
}

func (e *ScorerError) Unwrap() error {
	return e.Cause
}
