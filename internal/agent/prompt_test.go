package agent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/backend"
	"repolens/internal/config"
)

func TestLoadRepoPrompt(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		assert.Empty(t, LoadRepoPrompt(t.TempDir(), ""))
	})

	t.Run("blank", func(t *testing.T) {
		root := t.TempDir()
		writePrompt(t, root, " \n\t\n")
		assert.Empty(t, LoadRepoPrompt(root, ""))
	})

	t.Run("trimmed", func(t *testing.T) {
		root := t.TempDir()
		writePrompt(t, root, "\n  Prefer the v2 API.  \n")
		assert.Equal(t, "Prefer the v2 API.", LoadRepoPrompt(root, ""))
	})

	t.Run("truncated", func(t *testing.T) {
		root := t.TempDir()
		writePrompt(t, root, strings.Repeat("ü", MaxRepoPromptChars+100))
		got := LoadRepoPrompt(root, "")
		assert.Equal(t, MaxRepoPromptChars, utf8.RuneCountInString(got))
	})

	t.Run("explicit path wins", func(t *testing.T) {
		root := t.TempDir()
		writePrompt(t, root, "default")
		explicit := filepath.Join(t.TempDir(), "custom.md")
		require.NoError(t, os.WriteFile(explicit, []byte("custom"), 0o644))
		assert.Equal(t, "custom", LoadRepoPrompt(root, explicit))
	})

	t.Run("unreadable", func(t *testing.T) {
		root := t.TempDir()
		// A directory where the file should be cannot be read.
		require.NoError(t, os.MkdirAll(filepath.Join(root, config.DefaultDir, RepoPromptFile), 0o755))
		assert.Empty(t, LoadRepoPrompt(root, ""))
	})
}

func writePrompt(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, config.DefaultDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, RepoPromptFile), []byte(content), 0o644))
}

func TestIsDeepModel(t *testing.T) {
	for model, want := range map[string]bool{
		"claude-opus-4-1":   true,
		"gemini-2.5-pro":    true,
		"Claude-OPUS":       true,
		"claude-sonnet-4-5": false,
		"gemini-2.5-flash":  false,
	} {
		assert.Equal(t, want, isDeepModel(model), model)
	}
}

func TestIsModelUnavailable(t *testing.T) {
	assert.True(t, isModelUnavailable(backend.ErrModelUnavailable))
	assert.True(t, isModelUnavailable(errors.New("Model claude-x not found")))
	assert.True(t, isModelUnavailable(errors.New("endpoint not available")))
	assert.False(t, isModelUnavailable(errors.New("connection refused")))
	assert.False(t, isModelUnavailable(&backend.APIError{StatusCode: 500, Body: "overloaded"}))

	dial := &url.Error{Op: "Get", URL: "http://127.0.0.1:1/models/claude-a", Err: errors.New("connection refused")}
	assert.False(t, isModelUnavailable(fmt.Errorf("probe request failed: %w", dial)))
	assert.False(t, isModelUnavailable(fmt.Errorf("models/gemini-x: %w", context.DeadlineExceeded)))
	assert.False(t, isModelUnavailable(fmt.Errorf("model stream: %w", context.Canceled)))
}

func TestPrompts_FocusAndAudience(t *testing.T) {
	scan := fixtureRepo(t)
	p := buildAnalysisPrompt(promptInput{
		scan:     scan,
		focus:    config.FocusArchitecture,
		audience: config.AudienceOSSContributor,
	})
	assert.Contains(t, p, "Repository: acme/widget")
	assert.Contains(t, p, "Emphasise architecture")
	assert.Contains(t, p, "open-source contributor")
	assert.Contains(t, p, "Build system: make")
	assert.NotContains(t, p, "Repository-specific instructions")

	sys := systemPrompt(true)
	assert.Contains(t, sys, "read_file")
	assert.NotContains(t, systemPrompt(false), "read_file")
}
