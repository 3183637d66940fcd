package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults("m")
	assert.Equal(t, "m", o.Model)
	assert.Equal(t, DefaultSystem, o.System)
	assert.InDelta(t, 0.2, o.Temperature, 1e-6)
	assert.Equal(t, 2048, o.MaxTokens)

	o = Options{Model: "custom", MaxTokens: 10}.withDefaults("m")
	assert.Equal(t, "custom", o.Model)
	assert.Equal(t, 10, o.MaxTokens)
}

func TestOpenAIClient_Generate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": [{"index": 0, "message": {"role": "assistant", "content": "  1. Who paid?  "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("key", srv.URL, Options{Model: "llama3"})
	out, err := c.Generate(context.Background(), "analyse this")
	require.NoError(t, err)
	assert.Equal(t, "1. Who paid?", out)

	assert.Equal(t, "llama3", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "analyse this", got.Messages[1].Content)
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("key", srv.URL, Options{}).Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "no content")
}
