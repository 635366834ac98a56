package agent

import (
	"unicode/utf8"

	"repolens/internal/schema"
)

// MaxRetries is the number of re-prompts after the initial attempt.
const MaxRetries = 2

// previewLen bounds the raw response quoted in ValidationFailedError.
const previewLen = 500

type retryState int

const (
	stateInitial retryState = iota
	stateRetry1
	stateRetry2
	stateSucceeded
	stateFailed
)

func (s retryState) String() string {
	switch s {
	case stateInitial:
		return "initial"
	case stateRetry1:
		return "retry1"
	case stateRetry2:
		return "retry2"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// retryController walks Initial → Retry1 → Retry2 → Failed, leaving for
// Succeeded on the first valid response.
type retryController struct {
	state    retryState
	initial  string
	override string
	// errors are the validation errors of the latest attempt.
	errors []string
	sent   int
}

func newRetryController(initial, override string) *retryController {
	return &retryController{state: stateInitial, initial: initial, override: override}
}

func (r *retryController) terminal() bool {
	return r.state == stateSucceeded || r.state == stateFailed
}

// prompt returns the prompt for the current state. Terminal states have none.
func (r *retryController) prompt() string {
	switch r.state {
	case stateInitial:
		return r.initial
	case stateRetry1:
		return retry1Prompt(schema.SummarizeMissingFields(r.errors), r.override)
	case stateRetry2:
		return retry2Prompt(r.override)
	default:
		return ""
	}
}

// next records the outcome of the attempt made in the current state and
// advances. Terminal states do not move.
func (r *retryController) next(valid bool, errs []string) retryState {
	if r.terminal() {
		return r.state
	}
	r.sent++
	r.errors = errs
	if valid {
		r.state = stateSucceeded
		return r.state
	}
	switch r.state {
	case stateInitial:
		r.state = stateRetry1
	case stateRetry1:
		r.state = stateRetry2
	default:
		r.state = stateFailed
	}
	return r.state
}

// failure builds the terminal error from the last attempt.
func (r *retryController) failure(lastResponse string) *ValidationFailedError {
	return &ValidationFailedError{
		Attempts: r.sent,
		Errors:   append([]string(nil), r.errors...),
		Preview:  preview(lastResponse),
	}
}

func preview(s string) string {
	return cutAtRune(s, previewLen)
}

// cutAtRune returns at most n bytes of s without splitting a UTF-8 sequence.
func cutAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
