package backend

import "unicode/utf8"

// MaxToolArgsLen bounds ToolCall.Args so diagnostic events stay small.
const MaxToolArgsLen = 200

// Event is one item of a turn's stream. The set of variants is closed:
// MessageDelta, ReasoningDelta, ToolCall, FinalMessage, *ToolRequest and
// Unknown.
type Event interface {
	isEvent()
}

// MessageDelta is an incremental fragment of answer text.
type MessageDelta struct {
	Text string
}

// ReasoningDelta is an incremental fragment of the model's reasoning trace.
type ReasoningDelta struct {
	Text string
}

// ToolCall reports that the model invoked a tool. It is observational; the
// matching *ToolRequest carries the work.
type ToolCall struct {
	ID   string
	Name string
	// Args is the JSON-encoded argument object, truncated to MaxToolArgsLen.
	Args string
}

// FinalMessage carries the complete answer text for the turn.
type FinalMessage struct {
	Text string
}

// ToolRequest asks the consumer to execute a tool. The producer blocks until
// Respond is called or the turn's context ends.
type ToolRequest struct {
	ID    string
	Name  string
	Args  map[string]any
	reply chan ToolReply
}

// ToolReply is the consumer's answer to a ToolRequest.
type ToolReply struct {
	Content string
	IsError bool
}

// Unknown is emitted for provider output the backend does not model.
type Unknown struct {
	Kind string
}

func (MessageDelta) isEvent()   {}
func (ReasoningDelta) isEvent() {}
func (ToolCall) isEvent()       {}
func (FinalMessage) isEvent()   {}
func (*ToolRequest) isEvent()   {}
func (Unknown) isEvent()        {}

// NewToolRequest builds a request with a one-slot reply channel.
func NewToolRequest(id, name string, args map[string]any) *ToolRequest {
	return &ToolRequest{ID: id, Name: name, Args: args, reply: make(chan ToolReply, 1)}
}

// Respond delivers the tool result. Only the first call has an effect.
func (r *ToolRequest) Respond(content string, isError bool) {
	select {
	case r.reply <- ToolReply{Content: content, IsError: isError}:
	default:
	}
}

func truncateArgs(s string) string {
	if len(s) <= MaxToolArgsLen {
		return s
	}
	cut := MaxToolArgsLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
