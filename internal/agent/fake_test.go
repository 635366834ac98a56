package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"repolens/internal/backend"
	"repolens/internal/types"
)

// turnScript plays one backend turn onto a stream. Its return value becomes
// the stream's terminal error.
type turnScript func(ctx context.Context, s *backend.Stream) error

// fakeFactory is a scripted SessionFactory. Turns are consumed in order
// across every session it creates.
type fakeFactory struct {
	mu          sync.Mutex
	unavailable map[string]error
	created     []string
	configs     []backend.SessionConfig
	sessions    []*fakeSession
	prompts     []string
	turns       []turnScript
}

func newFakeFactory(turns ...turnScript) *fakeFactory {
	return &fakeFactory{unavailable: map[string]error{}, turns: turns}
}

func (f *fakeFactory) CreateSession(_ context.Context, cfg backend.SessionConfig) (backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, cfg.Model)
	f.configs = append(f.configs, cfg)
	if err, ok := f.unavailable[cfg.Model]; ok {
		return nil, err
	}
	s := &fakeSession{id: fmt.Sprintf("s%d", len(f.sessions)+1), model: cfg.Model, factory: f}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeFactory) nextTurn(prompt string) turnScript {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if len(f.turns) == 0 {
		return func(context.Context, *backend.Stream) error { return errors.New("script exhausted") }
	}
	t := f.turns[0]
	f.turns = f.turns[1:]
	return t
}

func (f *fakeFactory) sentPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

type fakeSession struct {
	id      string
	model   string
	factory *fakeFactory
	closes  atomic.Int32
}

func (s *fakeSession) ID() string    { return s.id }
func (s *fakeSession) Model() string { return s.model }

func (s *fakeSession) Send(ctx context.Context, prompt string) (*backend.Stream, error) {
	script := s.factory.nextTurn(prompt)
	stream := backend.NewStream()
	go func() {
		stream.Close(script(ctx, stream))
	}()
	return stream, nil
}

func (s *fakeSession) Close() error {
	s.closes.Add(1)
	return nil
}

// reply streams text as two deltas followed by the final message.
func reply(text string) turnScript {
	return func(ctx context.Context, s *backend.Stream) error {
		half := len(text) / 2
		for _, ev := range []backend.Event{
			backend.ReasoningDelta{Text: "considering"},
			backend.MessageDelta{Text: text[:half]},
			backend.MessageDelta{Text: text[half:]},
			backend.FinalMessage{Text: text},
		} {
			if !s.Emit(ctx, ev) {
				return ctx.Err()
			}
		}
		return nil
	}
}

// finalOnly mimics a backend that sends no deltas.
func finalOnly(text string) turnScript {
	return func(ctx context.Context, s *backend.Stream) error {
		s.Emit(ctx, backend.FinalMessage{Text: text})
		return nil
	}
}

// hang emits a partial delta and waits for the turn to be cancelled.
func hang(partial string) turnScript {
	return func(ctx context.Context, s *backend.Stream) error {
		s.Emit(ctx, backend.MessageDelta{Text: partial})
		<-ctx.Done()
		return ctx.Err()
	}
}

// failTurn ends the turn with err.
func failTurn(err error) turnScript {
	return func(context.Context, *backend.Stream) error { return err }
}

const validDoc = `{
  "repo": {"name": "widget", "description": "A widget service", "purpose": "Serves widgets"},
  "stack": {"languages": ["Go"], "frameworks": ["cobra", "Gin"], "buildSystem": "bazel", "packageManager": "none", "hasDocker": true, "hasCI": true},
  "architecture": {"summary": "One binary", "components": [{"name": "cli", "path": "cmd/widget", "description": "entry point"}], "dataFlow": "in, out"},
  "keyFiles": [{"path": "main.go", "purpose": "entry point"}],
  "commands": [{"name": "build", "command": "go build ./...", "description": "build"}],
  "firstTasks": [{"title": "Fix typo", "description": "README typo", "difficulty": "beginner", "files": ["README.md"]}]
}`

// fixtureRepo writes a tiny Go repository and its scan result.
func fixtureRepo(t *testing.T) *types.ScanResult {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"README.md": "# widget\n\nServes widgets.\n",
		"go.mod":    "module example.com/widget\n\ngo 1.24\n",
		"main.go":   "package main\n\nfunc main() {}\n",
		"Makefile":  "build:\n\tgo build ./...\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	return &types.ScanResult{
		Root: root,
		Repo: types.RepoInfo{Owner: "acme", Name: "widget"},
		Files: []types.FileEntry{
			{Path: "Makefile", Size: 23},
			{Path: "README.md", Size: 27},
			{Path: "go.mod", Size: 37},
			{Path: "main.go", Size: 29},
		},
		Stack: types.Stack{
			Languages:      []string{"Go"},
			Frameworks:     []string{"Cobra"},
			BuildSystem:    "make",
			PackageManager: "go modules",
			HasDocker:      false,
			HasCI:          false,
		},
	}
}
