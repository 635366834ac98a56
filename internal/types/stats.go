package types

import "time"

// Analysis modes.
const (
	ModeStandard = "standard"
	ModeFast     = "fast"
)

// ToolCallRecord is one tool invocation. Records are appended, never mutated.
type ToolCallRecord struct {
	Name     string        `json:"name"`
	Args     string        `json:"args"`
	Duration time.Duration `json:"duration"`
	Failed   bool          `json:"failed"`
}

// AnalysisStats describes one analysis call. It is populated up to the point
// of failure when the call fails.
type AnalysisStats struct {
	Model         string           `json:"model"`
	Mode          string           `json:"mode"`
	ModelAttempts []string         `json:"modelAttempts"`
	Attempts      int              `json:"attempts"`
	ToolCalls     []ToolCallRecord `json:"toolCalls"`
	TotalEvents   int              `json:"totalEvents"`
	// ResponseLength is the byte length of the last attempt's response buffer.
	ResponseLength int       `json:"responseLength"`
	StartedAt      time.Time `json:"startedAt"`
	EndedAt        time.Time `json:"endedAt"`
}

// Duration returns the wall-clock time of the call, or zero if it has not ended.
func (s *AnalysisStats) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// FailedToolCalls counts tool calls that returned a failure result.
func (s *AnalysisStats) FailedToolCalls() int {
	n := 0
	for _, c := range s.ToolCalls {
		if c.Failed {
			n++
		}
	}
	return n
}
