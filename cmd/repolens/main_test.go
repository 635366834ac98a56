package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/agent"
	"repolens/internal/config"
	"repolens/internal/types"
)

// resetFlags restores the package-level flag globals after a test.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		configPath = ""
		debugLogs = false
		cfg = nil
		fastMode, verboseOutput, repoPrompts, showStats = false, false, true, true
		modelOverride, focusFlag, audienceFlag, repoPromptFile, outPath = "", "", "", "", ""
		forceInit = false
	})
}

func newTestCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	return cmd, &stdout, &stderr
}

func TestVersionCmd(t *testing.T) {
	cmd, stdout, _ := newTestCmd()
	versionCmd.Run(cmd, nil)
	assert.Equal(t, "repolens dev\n", stdout.String())
}

func TestConfigInit(t *testing.T) {
	resetFlags(t)
	root := t.TempDir()
	cmd, stdout, _ := newTestCmd()

	require.NoError(t, runConfigInit(cmd, []string{root}))
	assert.Contains(t, stdout.String(), config.DefaultPath(root))

	loaded, err := config.Load(config.DefaultPath(root))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Backend.Provider, loaded.Backend.Provider)

	t.Run("refuses to overwrite", func(t *testing.T) {
		err := runConfigInit(cmd, []string{root})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--force")
	})

	t.Run("force overwrites", func(t *testing.T) {
		require.NoError(t, os.WriteFile(config.DefaultPath(root), []byte("backend: {provider: gemini}\n"), 0644))
		forceInit = true
		require.NoError(t, runConfigInit(cmd, []string{root}))
		data, err := os.ReadFile(config.DefaultPath(root))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "provider: gemini")
	})
}

func TestConfigInit_ExplicitPath(t *testing.T) {
	resetFlags(t)
	configPath = filepath.Join(t.TempDir(), "nested", "rl.yaml")
	cmd, _, _ := newTestCmd()

	require.NoError(t, runConfigInit(cmd, nil))
	_, err := os.Stat(configPath)
	assert.NoError(t, err)
}

func TestAnalyzeOptions(t *testing.T) {
	resetFlags(t)
	c := config.DefaultConfig()

	focusFlag = "Architecture"
	audienceFlag = "oss-contributor"
	modelOverride = "claude-opus-4-1"
	fastMode = true
	opts, err := analyzeOptions(c)
	require.NoError(t, err)
	assert.Equal(t, config.FocusArchitecture, opts.Focus)
	assert.Equal(t, config.AudienceOSSContributor, opts.Audience)
	assert.Equal(t, "claude-opus-4-1", opts.Model)
	assert.True(t, opts.Fast)
	assert.True(t, opts.RepoPrompts)

	focusFlag = "deep"
	_, err = analyzeOptions(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid focus")
}

func TestRunAnalyze_RejectsBadInputBeforeNetwork(t *testing.T) {
	resetFlags(t)
	cfg = config.DefaultConfig()
	cfg.Backend.APIKey = ""
	cmd, stdout, _ := newTestCmd()

	audienceFlag = "everyone"
	err := runAnalyze(cmd, []string{t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid audience")

	audienceFlag = ""
	err = runAnalyze(cmd, []string{t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Empty(t, stdout.String())
}

func TestWriteOutput(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, writeOutput(&stdout, "", []byte("{}\n")))
	assert.Equal(t, "{}\n", stdout.String())

	path := filepath.Join(t.TempDir(), "out", "facts.json")
	require.NoError(t, writeOutput(&stdout, path, []byte(`{"a":1}`)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestRenderStats(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stats := &types.AnalysisStats{
		Model:          "claude-sonnet-4-5",
		Mode:           "standard",
		ModelAttempts:  []string{"claude-opus-4-1", "claude-sonnet-4-5"},
		Attempts:       2,
		ToolCalls:      []types.ToolCallRecord{{Name: "read_file"}, {Name: "search", Failed: true}},
		TotalEvents:    17,
		ResponseLength: 2048,
		StartedAt:      start,
		EndedAt:        start.Add(1500 * time.Millisecond),
	}

	out := renderStats(stats, nil)
	for _, want := range []string{
		"claude-sonnet-4-5 (tried claude-opus-4-1, claude-sonnet-4-5)",
		"standard",
		"2 (1 failed)",
		"17",
		"2048 bytes",
		"1.5s",
		"success",
	} {
		assert.True(t, strings.Contains(out, want), "missing %q in:\n%s", want, out)
	}

	failed := renderStats(&types.AnalysisStats{Mode: "fast"}, &agent.ValidationFailedError{Attempts: 1})
	assert.Contains(t, failed, "validation_failed")
	assert.Contains(t, failed, "none")

	assert.Empty(t, renderStats(nil, nil))
}
