package agent

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoScan is returned when Analyze is called without a scan result.
	ErrNoScan = errors.New("scan result is required")

	// ErrNoCandidates is returned when the candidate model list is empty.
	ErrNoCandidates = errors.New("no candidate models configured")

	// ErrTimeout marks a send that exceeded its per-turn timeout. Any partial
	// response is discarded.
	ErrTimeout = errors.New("backend turn timed out")
)

// NoAvailableModelsError is returned when every candidate model was
// reported unavailable.
type NoAvailableModelsError struct {
	Tried []string
	// Last is the error from the final candidate.
	Last error
}

func (e *NoAvailableModelsError) Error() string {
	return fmt.Sprintf("no available models (tried: %s)", strings.Join(e.Tried, ", "))
}

func (e *NoAvailableModelsError) Unwrap() error {
	return e.Last
}

// ValidationFailedError is the terminal error when no attempt produced a
// valid document.
type ValidationFailedError struct {
	Attempts int
	Errors   []string
	// Preview is the start of the last raw response.
	Preview string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("response failed validation after %d attempt(s): %s (response preview: %q)",
		e.Attempts, strings.Join(e.Errors, "; "), e.Preview)
}
