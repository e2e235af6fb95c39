// Package perception holds the clients that send proofreading prompts to
// an upstream language model and return its raw text response.
//
// Clients make exactly one attempt per call. Retrying is left to callers.
package perception

import (
	"context"
	"errors"
	"fmt"
)

// LLMClient defines the interface for LLM providers.
type LLMClient interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrAPIKeyMissing is returned when a client has no API key.
var ErrAPIKeyMissing = errors.New("API key not configured")

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, truncate(e.Body, 512))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
