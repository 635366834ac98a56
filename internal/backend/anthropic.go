package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"repolens/internal/logging"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicConfig configures the Anthropic Messages API backend.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string

	MaxTokens      int
	MaxToolRounds  int
	ThinkingBudget int // 0 disables extended thinking

	// HTTPClient defaults to a client without a timeout; every request
	// carries the turn's context deadline instead.
	HTTPClient *http.Client
}

// AnthropicFactory opens sessions against the Anthropic Messages API.
type AnthropicFactory struct {
	cfg AnthropicConfig
}

// NewAnthropicFactory creates a factory, filling defaults.
func NewAnthropicFactory(cfg AnthropicConfig) *AnthropicFactory {
	if cfg.BaseURL == "" {
		cfg.BaseURL = anthropicBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 16000
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 40
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &AnthropicFactory{cfg: cfg}
}

// CreateSession probes the model and returns a session bound to it.
func (f *AnthropicFactory) CreateSession(ctx context.Context, sc SessionConfig) (Session, error) {
	if f.cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	if err := f.probeModel(ctx, sc.Model); err != nil {
		return nil, err
	}

	tools := make([]anthropicTool, 0, len(sc.Tools))
	for _, t := range sc.Tools {
		tools = append(tools, anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}

	s := &anthropicSession{
		id:     uuid.NewString(),
		cfg:    f.cfg,
		sc:     sc,
		tools:  tools,
		logger: logging.Get(logging.CategoryBackend),
	}
	s.logger = s.logger.With("session", s.id, "model", sc.Model)
	s.logger.Info("[Anthropic] session opened (tools=%d streaming=%v)", len(tools), sc.Streaming)
	return s, nil
}

// probeModel checks the model exists. A 404 means unavailable.
func (f *AnthropicFactory) probeModel(ctx context.Context, model string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.BaseURL+"/models/"+url.PathEscape(model), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	f.setHeaders(req)

	resp, err := f.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelUnavailable, model)
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Body: string(body)}
	default:
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

func (f *AnthropicFactory) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", f.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Signature string          `json:"signature,omitempty"`
	Data      string          `json:"data,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
}

type anthropicRequest struct {
	Model      string               `json:"model"`
	MaxTokens  int                  `json:"max_tokens"`
	System     string               `json:"system,omitempty"`
	Messages   []anthropicMessage   `json:"messages"`
	Tools      []anthropicTool      `json:"tools,omitempty"`
	ToolChoice *anthropicToolChoice `json:"tool_choice,omitempty"`
	Thinking   *anthropicThinking   `json:"thinking,omitempty"`
	Stream     bool                 `json:"stream"`
}

type anthropicSSE struct {
	Type         string          `json:"type"`
	Index        int             `json:"index"`
	ContentBlock *anthropicBlock `json:"content_block,omitempty"`
	Delta        *struct {
		Type        string `json:"type"`
		Text        string `json:"text,omitempty"`
		Thinking    string `json:"thinking,omitempty"`
		PartialJSON string `json:"partial_json,omitempty"`
		Signature   string `json:"signature,omitempty"`
		StopReason  string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// =============================================================================
// SESSION
// =============================================================================

type anthropicSession struct {
	id     string
	cfg    AnthropicConfig
	sc     SessionConfig
	tools  []anthropicTool
	guard  turnGuard
	logger *logging.Logger

	// history is only touched by the running turn; guard serialises turns.
	history []anthropicMessage
}

func (s *anthropicSession) ID() string    { return s.id }
func (s *anthropicSession) Model() string { return s.sc.Model }

func (s *anthropicSession) Close() error {
	if s.guard.close() {
		s.logger.Debug("[Anthropic] session closed")
	}
	return nil
}

func (s *anthropicSession) Send(ctx context.Context, prompt string) (*Stream, error) {
	if err := s.guard.begin(); err != nil {
		return nil, err
	}

	stream := NewStream()
	go func() {
		start := time.Now()
		err := s.turn(ctx, stream, prompt)
		if err != nil {
			s.logger.Warn("[Anthropic] turn failed after %v: %v", time.Since(start), err)
		} else {
			s.logger.Debug("[Anthropic] turn completed in %v", time.Since(start))
		}
		s.guard.end()
		stream.Close(err)
	}()
	return stream, nil
}

// turn runs one user prompt to completion, looping while the model asks for
// tools. History is rolled back if the turn fails.
func (s *anthropicSession) turn(ctx context.Context, stream *Stream, prompt string) (err error) {
	mark := len(s.history)
	defer func() {
		if err != nil {
			s.history = s.history[:mark]
		}
	}()

	s.history = append(s.history, anthropicMessage{
		Role:    "user",
		Content: []anthropicBlock{{Type: "text", Text: prompt}},
	})

	var final strings.Builder
	for round := 0; ; round++ {
		allowTools := len(s.tools) > 0 && round < s.cfg.MaxToolRounds
		blocks, stop, err := s.roundTrip(ctx, stream, allowTools)
		if err != nil {
			return err
		}
		s.history = append(s.history, anthropicMessage{Role: "assistant", Content: blocks})

		var calls []anthropicBlock
		for _, b := range blocks {
			switch b.Type {
			case "text":
				final.WriteString(b.Text)
			case "tool_use":
				calls = append(calls, b)
			}
		}

		if stop == "max_tokens" {
			s.logger.Warn("[Anthropic] response hit max_tokens (%d)", s.cfg.MaxTokens)
		}
		if stop != "tool_use" || len(calls) == 0 {
			break
		}

		results := make([]anthropicBlock, 0, len(calls))
		for _, call := range calls {
			var args map[string]any
			if err := json.Unmarshal(call.Input, &args); err != nil {
				args = map[string]any{}
			}
			reply, err := stream.RequestTool(ctx, call.ID, call.Name, args)
			if err != nil {
				return err
			}
			results = append(results, anthropicBlock{
				Type:      "tool_result",
				ToolUseID: call.ID,
				Content:   reply.Content,
				IsError:   reply.IsError,
			})
		}
		s.history = append(s.history, anthropicMessage{Role: "user", Content: results})
	}

	if !stream.Emit(ctx, FinalMessage{Text: final.String()}) {
		return ctx.Err()
	}
	return nil
}

// roundTrip sends the history once and decodes the SSE response into
// content blocks, emitting deltas as they arrive.
func (s *anthropicSession) roundTrip(ctx context.Context, stream *Stream, allowTools bool) ([]anthropicBlock, string, error) {
	reqBody := anthropicRequest{
		Model:     s.sc.Model,
		MaxTokens: s.cfg.MaxTokens,
		System:    s.sc.SystemPrompt,
		Messages:  s.history,
		Stream:    true,
	}
	if len(s.tools) > 0 {
		reqBody.Tools = s.tools
		if !allowTools {
			// Out of rounds: the model must answer with what it has.
			reqBody.ToolChoice = &anthropicToolChoice{Type: "none"}
		}
	}
	if s.cfg.ThinkingBudget > 0 {
		reqBody.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: s.cfg.ThinkingBudget}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-api-key", s.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, "", &RateLimitError{Body: string(body)}
		}
		return nil, "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var (
		blocks  []anthropicBlock
		partial = map[int]*strings.Builder{}
		stop    string
	)
	block := func(i int) *anthropicBlock {
		for len(blocks) <= i {
			blocks = append(blocks, anthropicBlock{})
		}
		return &blocks[i]
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var evt anthropicSSE
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			s.logger.Debug("[Anthropic] skipping malformed SSE payload: %v", err)
			continue
		}

		switch evt.Type {
		case "error":
			msg := "unknown error"
			if evt.Error != nil {
				msg = evt.Error.Message
			}
			return nil, "", fmt.Errorf("API error: %s", msg)

		case "content_block_start":
			if evt.ContentBlock == nil {
				continue
			}
			b := block(evt.Index)
			*b = *evt.ContentBlock
			switch b.Type {
			case "text", "thinking", "redacted_thinking":
			case "tool_use":
				b.Input = nil
				partial[evt.Index] = &strings.Builder{}
			default:
				if !stream.Emit(ctx, Unknown{Kind: b.Type}) {
					return nil, "", ctx.Err()
				}
			}

		case "content_block_delta":
			if evt.Delta == nil {
				continue
			}
			b := block(evt.Index)
			var ev Event
			switch evt.Delta.Type {
			case "text_delta":
				b.Text += evt.Delta.Text
				if s.sc.Streaming {
					ev = MessageDelta{Text: evt.Delta.Text}
				}
			case "thinking_delta":
				b.Thinking += evt.Delta.Thinking
				ev = ReasoningDelta{Text: evt.Delta.Thinking}
			case "input_json_delta":
				if sb, ok := partial[evt.Index]; ok {
					sb.WriteString(evt.Delta.PartialJSON)
				}
			case "signature_delta":
				b.Signature += evt.Delta.Signature
			default:
				ev = Unknown{Kind: evt.Delta.Type}
			}
			if ev != nil && !stream.Emit(ctx, ev) {
				return nil, "", ctx.Err()
			}

		case "content_block_stop":
			if sb, ok := partial[evt.Index]; ok {
				input := strings.TrimSpace(sb.String())
				if input == "" {
					input = "{}"
				}
				block(evt.Index).Input = json.RawMessage(input)
			}

		case "message_delta":
			if evt.Delta != nil && evt.Delta.StopReason != "" {
				stop = evt.Delta.StopReason
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", fmt.Errorf("stream error: %w", err)
	}
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}

	kept := blocks[:0]
	for _, b := range blocks {
		if b.Type == "" || (b.Type == "text" && b.Text == "") {
			continue
		}
		kept = append(kept, b)
	}
	return kept, stop, nil
}
