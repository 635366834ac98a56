package agent

import (
	"context"
	"io"
	"strings"

	"repolens/internal/backend"
	"repolens/internal/logging"
	"repolens/internal/tools"
)

// ThinkingNotice is sent to the progress callback when a reasoning burst
// starts and verbose output is off.
const ThinkingNotice = "thinking…"

// multiplexer reduces a turn's event stream into the response text. It runs
// on the caller's goroutine, so tool requests are executed one at a time in
// arrival order.
type multiplexer struct {
	stats      *statsCollector
	dispatcher *tools.Dispatcher // nil when no tools are attached
	verbose    io.Writer         // nil unless verbose output is on
	progress   func(string)

	buf      strings.Builder
	thinking bool
}

func newMultiplexer(stats *statsCollector, dispatcher *tools.Dispatcher, verbose io.Writer, progress func(string)) *multiplexer {
	if progress == nil {
		progress = func(string) {}
	}
	return &multiplexer{
		stats:      stats,
		dispatcher: dispatcher,
		verbose:    verbose,
		progress:   progress,
	}
}

// reset clears the per-attempt buffer.
func (m *multiplexer) reset() {
	m.buf.Reset()
	m.thinking = false
}

// buffered is the text accumulated so far in this attempt.
func (m *multiplexer) buffered() int {
	return m.buf.Len()
}

// consume drains stream and returns the accumulated response. The stream's
// terminal error, if any, is returned instead of the text.
func (m *multiplexer) consume(ctx context.Context, stream *backend.Stream) (string, error) {
	for ev := range stream.Events() {
		m.handle(ctx, ev)
	}
	if err := stream.Err(); err != nil {
		return "", err
	}
	return m.buf.String(), nil
}

func (m *multiplexer) handle(ctx context.Context, ev backend.Event) {
	// ToolRequest is the control half of a ToolCall and is not counted.
	if _, ok := ev.(*backend.ToolRequest); !ok {
		m.stats.event()
	}

	switch e := ev.(type) {
	case backend.MessageDelta:
		m.thinking = false
		m.buf.WriteString(e.Text)
		m.echo(e.Text)

	case backend.ReasoningDelta:
		if m.verbose != nil {
			m.echo(e.Text)
		} else if !m.thinking {
			m.progress(ThinkingNotice)
		}
		m.thinking = true

	case backend.ToolCall:
		m.thinking = false
		logging.StreamDebug("Tool call %s %s(%s)", e.ID, e.Name, e.Args)

	case backend.FinalMessage:
		if m.buf.Len() == 0 {
			m.buf.WriteString(e.Text)
		}

	case *backend.ToolRequest:
		m.runTool(ctx, e)

	case backend.Unknown:
		logging.StreamWarn("Ignoring unrecognized event kind %q", e.Kind)

	default:
		logging.StreamWarn("Ignoring unexpected event type %T", ev)
	}
}

func (m *multiplexer) runTool(ctx context.Context, req *backend.ToolRequest) {
	if m.dispatcher == nil {
		logging.StreamWarn("Tool %s requested but no tools are attached", req.Name)
		req.Respond("tools are not available in this session", true)
		return
	}
	res := m.dispatcher.Invoke(ctx, req.Name, req.Args)
	req.Respond(res.Content, res.IsError)
}

func (m *multiplexer) echo(text string) {
	if m.verbose == nil || text == "" {
		return
	}
	if _, err := io.WriteString(m.verbose, text); err != nil {
		logging.StreamDebug("verbose write failed: %v", err)
	}
}
