package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"repolens/internal/schema"
)

func TestRetryController_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []bool
		want     []retryState
	}{
		{"first attempt valid", []bool{true}, []retryState{stateSucceeded}},
		{"valid on retry1", []bool{false, true}, []retryState{stateRetry1, stateSucceeded}},
		{"valid on retry2", []bool{false, false, true}, []retryState{stateRetry1, stateRetry2, stateSucceeded}},
		{"never valid", []bool{false, false, false}, []retryState{stateRetry1, stateRetry2, stateFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := newRetryController("initial", "")
			var got []retryState
			for _, ok := range tt.outcomes {
				got = append(got, rc.next(ok, nil))
			}
			assert.Equal(t, tt.want, got)
			assert.True(t, rc.terminal())
			assert.Equal(t, len(tt.outcomes), rc.sent)

			// Terminal states are sticky.
			assert.Equal(t, got[len(got)-1], rc.next(true, nil))
			assert.Equal(t, len(tt.outcomes), rc.sent)
		})
	}
}

func TestRetryController_MaxAttempts(t *testing.T) {
	rc := newRetryController("initial", "")
	attempts := 0
	for !rc.terminal() {
		attempts++
		rc.next(false, []string{"missing: repo"})
	}
	assert.Equal(t, MaxRetries+1, attempts)
	assert.Equal(t, stateFailed, rc.state)
}

func TestRetryController_Prompts(t *testing.T) {
	rc := newRetryController("explore the repo", "House rules.")
	assert.Equal(t, "explore the repo", rc.prompt())

	rc.next(false, []string{"missing: architecture", "missing: firstTasks", "enum: firstTasks[0].difficulty must be one of a|b (got \"x\")"})
	p1 := rc.prompt()
	assert.Contains(t, p1, "missing: architecture, firstTasks; enum: firstTasks[0].difficulty")
	assert.Contains(t, p1, "JSON")
	assert.True(t, strings.HasSuffix(p1, "House rules."))
	assert.NotContains(t, p1, schema.FieldContract)

	rc.next(false, []string{"missing: repo"})
	p2 := rc.prompt()
	assert.Contains(t, p2, schema.FieldContract)
	assert.True(t, strings.HasSuffix(p2, "House rules."))

	rc.next(false, nil)
	assert.Empty(t, rc.prompt())
}

func TestRetryController_Failure(t *testing.T) {
	rc := newRetryController("p", "")
	for !rc.terminal() {
		rc.next(false, []string{"missing: keyFiles"})
	}
	long := strings.Repeat("x", 800)
	err := rc.failure(long)
	assert.Equal(t, 3, err.Attempts)
	assert.Equal(t, []string{"missing: keyFiles"}, err.Errors)
	assert.Len(t, err.Preview, previewLen)
	assert.Contains(t, err.Error(), "after 3 attempt(s)")
}

func TestRetryState_String(t *testing.T) {
	assert.Equal(t, "retry2", stateRetry2.String())
	assert.Equal(t, "unknown", retryState(42).String())
}
