package backend

import (
	"context"
	"fmt"

	"repolens/internal/config"
)

// NewFactory builds the session factory for the configured provider.
func NewFactory(ctx context.Context, cfg config.BackendConfig) (SessionFactory, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, ErrAPIKeyMissing
		}
		return NewAnthropicFactory(AnthropicConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			MaxTokens:      cfg.MaxTokens,
			MaxToolRounds:  cfg.MaxToolRounds,
			ThinkingBudget: cfg.ThinkingBudget,
		}), nil
	case config.ProviderGemini:
		return NewGeminiFactory(ctx, GeminiConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			MaxTokens:      cfg.MaxTokens,
			MaxToolRounds:  cfg.MaxToolRounds,
			ThinkingBudget: cfg.ThinkingBudget,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
