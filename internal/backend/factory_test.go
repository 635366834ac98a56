package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/config"
)

func TestNewFactory(t *testing.T) {
	f, err := NewFactory(context.Background(), config.BackendConfig{Provider: config.ProviderAnthropic, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicFactory{}, f)

	_, err = NewFactory(context.Background(), config.BackendConfig{Provider: config.ProviderAnthropic})
	assert.ErrorIs(t, err, ErrAPIKeyMissing)

	_, err = NewFactory(context.Background(), config.BackendConfig{Provider: "openai", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
