package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// StreamBuffer is the channel capacity of a turn's event stream. A full
// buffer blocks the producer until the consumer catches up.
const StreamBuffer = 64

// Stream is the ordered event stream of one turn. It has exactly one producer
// (the backend's turn goroutine) and is meant for exactly one consumer.
type Stream struct {
	events chan Event
	once   sync.Once
	err    error
}

// NewStream returns an open stream.
func NewStream() *Stream {
	return &Stream{events: make(chan Event, StreamBuffer)}
}

// Events returns the receive side. It is closed when the turn ends.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Err returns the terminal error of the turn. Only meaningful after Events
// has been drained and closed.
func (s *Stream) Err() error {
	return s.err
}

// Emit sends ev, blocking while the buffer is full. It returns false if ctx
// ended first.
func (s *Stream) Emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close ends the stream with err. Later calls are ignored.
func (s *Stream) Close(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.events)
	})
}

// RequestTool emits a ToolCall notice and a ToolRequest, then waits for the
// consumer's reply.
func (s *Stream) RequestTool(ctx context.Context, id, name string, args map[string]any) (ToolReply, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		encoded = []byte(fmt.Sprint(args))
	}
	if !s.Emit(ctx, ToolCall{ID: id, Name: name, Args: truncateArgs(string(encoded))}) {
		return ToolReply{}, ctx.Err()
	}

	req := NewToolRequest(id, name, args)
	if !s.Emit(ctx, req) {
		return ToolReply{}, ctx.Err()
	}
	select {
	case reply := <-req.reply:
		return reply, nil
	case <-ctx.Done():
		return ToolReply{}, ctx.Err()
	}
}
