package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/newsbrief/internal/llm"
	"github.com/jonathan/newsbrief/internal/safety"
	"github.com/jonathan/newsbrief/internal/schemas"
	"github.com/jonathan/newsbrief/internal/types"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		unsafe     *safety.UnsafeContentError
		reqErr     *ErrValidation
		articleErr *types.ValidationError
		schemaErr  *schemas.ValidationError
	)
	switch {
	case errors.As(err, &unsafe), errors.As(err, &reqErr),
		errors.As(err, &articleErr), errors.As(err, &schemaErr):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// blockedResponse is the body returned for a query rejected by moderation.
type blockedResponse struct {
	Message string          `json:"message"`
	Blocked bool            `json:"blocked"`
	Flags   map[string]bool `json:"flags"`
}

// errorBody builds the JSON body for err.
func errorBody(err error) any {
	var unsafe *safety.UnsafeContentError
	if errors.As(err, &unsafe) {
		flags := unsafe.Flags
		if flags == nil {
			flags = map[string]bool{}
		}
		return blockedResponse{
			Message: "Query blocked by content safety",
			Blocked: true,
			Flags:   flags,
		}
	}
	return map[string]string{"error": err.Error()}
}
