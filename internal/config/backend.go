package config

import "fmt"

// Supported backend providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ValidProviders lists all supported backend providers.
var ValidProviders = []string{ProviderAnthropic, ProviderGemini}

// BackendConfig configures the reasoning backend.
type BackendConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`

	// Models is the ordered fallback list. Empty means the provider defaults.
	Models []string `yaml:"models"`

	MaxTokens      int `yaml:"max_tokens"`
	MaxToolRounds  int `yaml:"max_tool_rounds"`
	ThinkingBudget int `yaml:"thinking_budget"` // 0 disables extended thinking
}

// DefaultBackendConfig returns sensible defaults.
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Provider:       ProviderAnthropic,
		MaxTokens:      16000,
		MaxToolRounds:  40,
		ThinkingBudget: 4000,
	}
}

// DefaultModels returns the fallback order for a provider, strongest first.
func DefaultModels(provider string) []string {
	switch provider {
	case ProviderGemini:
		return []string{"gemini-2.5-pro", "gemini-2.5-flash"}
	default:
		return []string{"claude-opus-4-1", "claude-sonnet-4-5", "claude-sonnet-4-0"}
	}
}

// CandidateModels returns the ordered, de-duplicated model list with an
// optional override first.
func (b BackendConfig) CandidateModels(override string) []string {
	base := b.Models
	if len(base) == 0 {
		base = DefaultModels(b.Provider)
	}

	seen := make(map[string]bool, len(base)+1)
	out := make([]string, 0, len(base)+1)
	add := func(m string) {
		if m == "" || seen[m] {
			return
		}
		seen[m] = true
		out = append(out, m)
	}
	add(override)
	for _, m := range base {
		add(m)
	}
	return out
}

// Validate checks provider and limits.
func (b BackendConfig) Validate() error {
	valid := false
	for _, p := range ValidProviders {
		if b.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid backend provider: %q (valid: %v)", b.Provider, ValidProviders)
	}
	if b.APIKey == "" {
		return fmt.Errorf("backend API key not configured (set ANTHROPIC_API_KEY or GEMINI_API_KEY)")
	}
	if b.MaxToolRounds < 0 || b.MaxTokens < 0 || b.ThinkingBudget < 0 {
		return fmt.Errorf("backend limits must not be negative")
	}
	if b.ThinkingBudget > 0 && b.ThinkingBudget >= b.MaxTokens {
		return fmt.Errorf("thinking_budget (%d) must be lower than max_tokens (%d)", b.ThinkingBudget, b.MaxTokens)
	}
	return nil
}
