package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"repolens/internal/logging"
)

// GeminiConfig configures the Gemini API backend.
type GeminiConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL string

	MaxTokens      int
	MaxToolRounds  int
	ThinkingBudget int

	HTTPClient *http.Client
}

// GeminiFactory opens sessions through the google.golang.org/genai SDK.
type GeminiFactory struct {
	cfg    GeminiConfig
	client *genai.Client
}

// NewGeminiFactory creates the SDK client shared by every session.
func NewGeminiFactory(ctx context.Context, cfg GeminiConfig) (*GeminiFactory, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 16000
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 40
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiFactory{cfg: cfg, client: client}, nil
}

// CreateSession probes the model and returns a session bound to it.
func (f *GeminiFactory) CreateSession(ctx context.Context, sc SessionConfig) (Session, error) {
	if _, err := f.client.Models.Get(ctx, sc.Model, nil); err != nil {
		return nil, classifyGenAIError(err, sc.Model)
	}

	var tools []*genai.Tool
	if len(sc.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(sc.Tools))
		for _, t := range sc.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: t.InputSchema,
			})
		}
		tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	s := &geminiSession{
		id:     uuid.NewString(),
		cfg:    f.cfg,
		sc:     sc,
		client: f.client,
		tools:  tools,
	}
	s.logger = logging.Get(logging.CategoryBackend).With("session", s.id, "model", sc.Model)
	s.logger.Info("[Gemini] session opened (tools=%d streaming=%v)", len(sc.Tools), sc.Streaming)
	return s, nil
}

// classifyGenAIError maps SDK errors onto backend sentinels.
func classifyGenAIError(err error, model string) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelUnavailable, model)
		case http.StatusTooManyRequests:
			return &RateLimitError{Body: apiErr.Message}
		default:
			return &APIError{StatusCode: apiErr.Code, Body: apiErr.Message}
		}
	}
	return fmt.Errorf("GenAI request failed: %w", err)
}

type geminiSession struct {
	id     string
	cfg    GeminiConfig
	sc     SessionConfig
	client *genai.Client
	tools  []*genai.Tool
	guard  turnGuard
	logger *logging.Logger

	history []*genai.Content
}

func (s *geminiSession) ID() string    { return s.id }
func (s *geminiSession) Model() string { return s.sc.Model }

// Close marks the session closed. The SDK client is shared by the factory
// and holds no per-session connection.
func (s *geminiSession) Close() error {
	if s.guard.close() {
		s.logger.Debug("[Gemini] session closed")
	}
	return nil
}

func (s *geminiSession) Send(ctx context.Context, prompt string) (*Stream, error) {
	if err := s.guard.begin(); err != nil {
		return nil, err
	}

	stream := NewStream()
	go func() {
		start := time.Now()
		err := s.turn(ctx, stream, prompt)
		if err != nil {
			s.logger.Warn("[Gemini] turn failed after %v: %v", time.Since(start), err)
		} else {
			s.logger.Debug("[Gemini] turn completed in %v", time.Since(start))
		}
		s.guard.end()
		stream.Close(err)
	}()
	return stream, nil
}

func (s *geminiSession) generateConfig(allowTools bool) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(s.cfg.MaxTokens),
		ThinkingConfig:  &genai.ThinkingConfig{IncludeThoughts: true},
	}
	if s.cfg.ThinkingBudget > 0 {
		budget := int32(s.cfg.ThinkingBudget)
		cfg.ThinkingConfig.ThinkingBudget = &budget
	}
	if s.sc.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(s.sc.SystemPrompt, genai.RoleUser)
	}
	if len(s.tools) > 0 {
		cfg.Tools = s.tools
		if !allowTools {
			cfg.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeNone},
			}
		}
	}
	return cfg
}

func (s *geminiSession) turn(ctx context.Context, stream *Stream, prompt string) (err error) {
	mark := len(s.history)
	defer func() {
		if err != nil {
			s.history = s.history[:mark]
		}
	}()

	s.history = append(s.history, genai.NewContentFromText(prompt, genai.RoleUser))

	var final strings.Builder
	for round := 0; ; round++ {
		allowTools := len(s.tools) > 0 && round < s.cfg.MaxToolRounds

		var (
			parts []*genai.Part
			calls []*genai.FunctionCall
		)
		for resp, err := range s.client.Models.GenerateContentStream(ctx, s.sc.Model, s.history, s.generateConfig(allowTools)) {
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return classifyGenAIError(err, s.sc.Model)
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, p := range resp.Candidates[0].Content.Parts {
				parts = append(parts, p)

				var ev Event
				switch {
				case p.FunctionCall != nil:
					calls = append(calls, p.FunctionCall)
				case p.Thought:
					ev = ReasoningDelta{Text: p.Text}
				case p.Text != "":
					final.WriteString(p.Text)
					if s.sc.Streaming {
						ev = MessageDelta{Text: p.Text}
					}
				case len(p.ThoughtSignature) > 0:
				default:
					ev = Unknown{Kind: "part"}
				}
				if ev != nil && !stream.Emit(ctx, ev) {
					return ctx.Err()
				}
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.history = append(s.history, &genai.Content{Role: genai.RoleModel, Parts: parts})
		if len(calls) == 0 || !allowTools {
			break
		}

		replies := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			id := call.ID
			if id == "" {
				id = uuid.NewString()
			}
			reply, err := stream.RequestTool(ctx, id, call.Name, call.Args)
			if err != nil {
				return err
			}
			key := "output"
			if reply.IsError {
				key = "error"
			}
			part := genai.NewPartFromFunctionResponse(call.Name, map[string]any{key: reply.Content})
			part.FunctionResponse.ID = call.ID
			replies = append(replies, part)
		}
		s.history = append(s.history, genai.NewContentFromParts(replies, genai.RoleUser))
	}

	if !stream.Emit(ctx, FinalMessage{Text: final.String()}) {
		return ctx.Err()
	}
	return nil
}
