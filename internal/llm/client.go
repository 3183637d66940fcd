package llm

import (
	"context"
)

// LLMClient is a single-turn text completion model.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DefaultSystem frames every request; the prompts themselves carry the task.
const DefaultSystem = "You assist a police investigator reviewing an interrogation. " +
	"Stay factual, never invent statements the suspect did not make, and follow the requested output format exactly."

// Options are shared by every provider. Zero values select the defaults.
type Options struct {
	Model       string
	System      string
	Temperature float32
	MaxTokens   int
}

func (o Options) withDefaults(model string) Options {
	if o.Model == "" {
		o.Model = model
	}
	if o.System == "" {
		o.System = DefaultSystem
	}
	if o.Temperature == 0 {
		o.Temperature = 0.2
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = 2048
	}
	return o
}
