package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestParseJSON_WithSurroundingText(t *testing.T) {
	resp := "Sure! Here it is:\n```json\n{\"name\": \"Mike\", \"items\": [\"a\", \"b\"]}\n```\nAnything else?"

	got, err := ParseJSON[sample](resp)
	require.NoError(t, err)
	assert.Equal(t, "Mike", got.Name)
	assert.Equal(t, []string{"a", "b"}, got.Items)
}

func TestParseJSON_NoObject(t *testing.T) {
	_, err := ParseJSON[sample]("1. Where were you?")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestParseJSON_Malformed(t *testing.T) {
	_, err := ParseJSON[sample]("{\"name\": }")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoJSON)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
}
