// Package backend talks to remote reasoning backends. A Session is one
// conversation; each Send starts a turn whose output arrives as a Stream of
// typed events. Tool execution is delegated to the stream consumer through
// ToolRequest events, so all tool work happens on the consumer's goroutine.
package backend

import (
	"context"
	"sync/atomic"
)

// ToolSpec declares a tool the model may call.
type ToolSpec struct {
	Name        string
	Description string
	// InputSchema is a JSON Schema object for the arguments.
	InputSchema map[string]any
}

// SessionConfig configures a new session.
type SessionConfig struct {
	Model        string
	SystemPrompt string
	// Streaming enables incremental deltas. Without it only FinalMessage
	// carries answer text.
	Streaming bool
	Tools     []ToolSpec
}

// Session is one conversation with a backend.
type Session interface {
	ID() string
	Model() string
	// Send starts a turn. The returned stream closes when the backend has
	// finished producing output for the turn. A Send while a turn is still
	// running fails with ErrTurnInProgress.
	Send(ctx context.Context, prompt string) (*Stream, error)
	// Close releases the session. It is idempotent.
	Close() error
}

// SessionFactory opens sessions. CreateSession returns an error wrapping
// ErrModelUnavailable when the model cannot be used.
type SessionFactory interface {
	CreateSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

// turnGuard enforces one turn at a time and rejects use after Close.
type turnGuard struct {
	busy   atomic.Bool
	closed atomic.Bool
}

func (g *turnGuard) begin() error {
	if g.closed.Load() {
		return ErrSessionClosed
	}
	if !g.busy.CompareAndSwap(false, true) {
		return ErrTurnInProgress
	}
	return nil
}

func (g *turnGuard) end() {
	g.busy.Store(false)
}

// close reports whether this call performed the close.
func (g *turnGuard) close() bool {
	return g.closed.CompareAndSwap(false, true)
}
