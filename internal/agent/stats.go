package agent

import (
	"time"

	"repolens/internal/tools"
	"repolens/internal/types"
)

// maxRecordedArgs bounds the argument summary kept per tool call.
const maxRecordedArgs = 200

// statsCollector accumulates AnalysisStats for one call. It is only touched
// from the goroutine consuming the stream, including the tool observers the
// dispatcher runs there, so it needs no lock.
type statsCollector struct {
	stats       types.AnalysisStats
	pendingArgs string
	now         func() time.Time
}

func newStatsCollector(mode string, now func() time.Time) *statsCollector {
	if now == nil {
		now = time.Now
	}
	return &statsCollector{
		stats: types.AnalysisStats{Mode: mode, StartedAt: now()},
		now:   now,
	}
}

func (c *statsCollector) modelAttempt(model string) {
	c.stats.ModelAttempts = append(c.stats.ModelAttempts, model)
}

func (c *statsCollector) setModel(model string) { c.stats.Model = model }

func (c *statsCollector) attempt() { c.stats.Attempts++ }

func (c *statsCollector) event() { c.stats.TotalEvents++ }

func (c *statsCollector) responseLength(n int) { c.stats.ResponseLength = n }

// toolInvoked and toolFinished are installed as tools.Context observers.
func (c *statsCollector) toolInvoked(_ string, args map[string]any) {
	c.pendingArgs = tools.Summarize(args, maxRecordedArgs)
}

func (c *statsCollector) toolFinished(name string, res tools.Result, elapsed time.Duration) {
	c.stats.ToolCalls = append(c.stats.ToolCalls, types.ToolCallRecord{
		Name:     name,
		Args:     c.pendingArgs,
		Duration: elapsed,
		Failed:   res.IsError,
	})
	c.pendingArgs = ""
}

// finish stamps the end time and returns a snapshot.
func (c *statsCollector) finish() *types.AnalysisStats {
	c.stats.EndedAt = c.now()
	out := c.stats
	out.ModelAttempts = append([]string(nil), c.stats.ModelAttempts...)
	out.ToolCalls = append([]types.ToolCallRecord(nil), c.stats.ToolCalls...)
	return &out
}
