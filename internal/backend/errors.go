package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable marks a model the backend cannot serve.
	ErrModelUnavailable = errors.New("model not available")

	// ErrTurnInProgress is returned by Send while a previous turn's stream
	// is still open.
	ErrTurnInProgress = errors.New("turn already in progress")

	// ErrSessionClosed is returned by Send after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrAPIKeyMissing is returned when no credentials are configured.
	ErrAPIKeyMissing = errors.New("API key not configured")

	// ErrUnknownProvider is returned for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown backend provider")
)

// APIError is a non-success HTTP response from a backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// RateLimitError indicates a 429 response.
type RateLimitError struct {
	Body string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (429): %s", e.Body)
}
