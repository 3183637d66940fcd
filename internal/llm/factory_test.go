package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/inquest/internal/config"
	"github.com/agenthands/inquest/internal/logger"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()
	log := logger.Discard()

	c, err := NewClient(ctx, config.LLMConfig{}, log)
	require.NoError(t, err)
	assert.Nil(t, c, "no provider means no client")

	c, err = NewClient(ctx, config.LLMConfig{Provider: "OpenAI", APIKey: "k", Model: "gpt-4o-mini"}, log)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = NewClient(ctx, config.LLMConfig{Provider: "claude", APIKey: "k"}, log)
	require.NoError(t, err)
	assert.IsType(t, &ClaudeClient{}, c)

	c, err = NewClient(ctx, config.LLMConfig{Provider: "ollama", Model: "llama3"}, log)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	_, err = NewClient(ctx, config.LLMConfig{Provider: "watson"}, log)
	assert.ErrorContains(t, err, "unsupported llm provider")
}
