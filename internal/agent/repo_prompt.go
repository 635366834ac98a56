package agent

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"repolens/internal/config"
	"repolens/internal/logging"
)

const (
	// RepoPromptFile is the repository-local prompt override.
	RepoPromptFile = "prompt.md"
	// MaxRepoPromptChars caps the override; longer files are truncated.
	MaxRepoPromptChars = 8000
)

// LoadRepoPrompt reads the prompt override for root. An explicit path wins
// over <root>/.repolens/prompt.md. Missing, unreadable and blank files yield
// "" without error.
func LoadRepoPrompt(root, explicit string) string {
	path := explicit
	if path == "" {
		path = filepath.Join(root, config.DefaultDir, RepoPromptFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.AgentDebug("Ignoring unreadable prompt override %s: %v", path, err)
		}
		return ""
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return ""
	}
	if utf8.RuneCountInString(text) > MaxRepoPromptChars {
		text = string([]rune(text)[:MaxRepoPromptChars])
		logging.AgentDebug("Prompt override %s truncated to %d characters", path, MaxRepoPromptChars)
	}
	logging.Agent("Loaded prompt override from %s (%d chars)", path, utf8.RuneCountInString(text))
	return text
}
