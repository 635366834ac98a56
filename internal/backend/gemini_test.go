package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGemini serves the two REST endpoints the SDK uses: model lookup and
// streamGenerateContent (SSE).
type fakeGemini struct {
	mu     sync.Mutex
	bodies []map[string]any
	turns  [][]string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1beta/models/gemini-ok":
		fmt.Fprint(w, `{"name":"models/gemini-ok","displayName":"ok"}`)
	case r.Method == http.MethodGet:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"model not found","status":"NOT_FOUND"}}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":streamGenerateContent"):
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		f.mu.Lock()
		f.bodies = append(f.bodies, body)
		n := len(f.bodies)
		turns := f.turns
		f.mu.Unlock()

		if n > len(turns) {
			<-r.Context().Done()
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range turns[n-1] {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeGemini) body(i int) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[i]
}

func newGeminiFactoryForTest(t *testing.T, fake *fakeGemini) *GeminiFactory {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	f, err := NewGeminiFactory(context.Background(), GeminiConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		ThinkingBudget: 512,
		HTTPClient:     srv.Client(),
	})
	require.NoError(t, err)
	return f
}

func TestGemini_ToolLoop(t *testing.T) {
	fake := &fakeGemini{turns: [][]string{
		{
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"Scanning the tree.","thought":true}]}}]}`,
			`{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"id":"fc_1","name":"list_files","args":{"path":"src"}}}]}}]}`,
		},
		{
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"repo\":"}]}}]}`,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"1}"}]},"finishReason":"STOP"}]}`,
		},
	}}
	f := newGeminiFactoryForTest(t, fake)

	sess, err := f.CreateSession(context.Background(), SessionConfig{
		Model:     "gemini-ok",
		Streaming: true,
		Tools:     []ToolSpec{{Name: "list_files", Description: "list", InputSchema: map[string]any{"type": "object"}}},
	})
	require.NoError(t, err)
	defer sess.Close()

	stream, err := sess.Send(context.Background(), "analyze")
	require.NoError(t, err)

	var got []Event
	for ev := range stream.Events() {
		if req, ok := ev.(*ToolRequest); ok {
			assert.Equal(t, map[string]any{"path": "src"}, req.Args)
			req.Respond("src/main.go", false)
			continue
		}
		got = append(got, ev)
	}
	require.NoError(t, stream.Err())

	assert.Equal(t, []Event{
		ReasoningDelta{Text: "Scanning the tree."},
		ToolCall{ID: "fc_1", Name: "list_files", Args: `{"path":"src"}`},
		MessageDelta{Text: `{"repo":`},
		MessageDelta{Text: `1}`},
		FinalMessage{Text: `{"repo":1}`},
	}, got)

	contents, ok := fake.body(1)["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 3)
	encoded, _ := json.Marshal(contents[2])
	assert.Contains(t, string(encoded), `"functionResponse"`)
	assert.Contains(t, string(encoded), `src/main.go`)
}

func TestGemini_ModelUnavailable(t *testing.T) {
	f := newGeminiFactoryForTest(t, &fakeGemini{})

	_, err := f.CreateSession(context.Background(), SessionConfig{Model: "gemini-gone"})
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestGemini_MissingKey(t *testing.T) {
	_, err := NewGeminiFactory(context.Background(), GeminiConfig{})
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}
