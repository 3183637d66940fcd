package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/inquest/internal/core/common"
	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/llm"
)

// Capability turns the text of one episode into candidate entities and
// relationships. previous holds the earlier exchanges of the session, oldest
// first; they resolve references such as "him" or "the meeting" and are not
// extracted themselves.
type Capability interface {
	Extract(ctx context.Context, episode model.Episode, previous []model.Episode) (model.Extraction, error)
}

// DefaultPrompt receives the episode content through its single %s verb.
const DefaultPrompt = `You are building a knowledge graph from an interrogation transcript.
Extract the people, places, times and events mentioned in the exchange below,
and the relationships between them.

Rules:
- Entity "type" is one of: Person, Place, Time, Event.
- Use names exactly as spoken. Do not replace pronouns ("he", "she", "they")
  or vague references ("a friend", "someone") with a name; list them as spoken.
- Every relationship "fact" is one sentence restating what the answer claims,
  including any day or time it mentions.
- "relation_type" is a short verb phrase such as WAS_AT, MET_WITH, PAID_FOR.

Exchange:
%s

Return only a JSON object:
{
  "entities": [{"name": "...", "type": "Person", "summary": "..."}],
  "relationships": [{"source": "...", "target": "...", "relation_type": "...", "fact": "..."}]
}`

type Extractor struct {
	LLM    llm.LLMClient
	Prompt string
}

func NewExtractor(llmClient llm.LLMClient, prompt string) *Extractor {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	return &Extractor{
		LLM:    llmClient,
		Prompt: prompt,
	}
}

// Extract asks the model for the mentions of an episode. Every error wraps
// model.ErrExtractionFailure.
func (e *Extractor) Extract(ctx context.Context, episode model.Episode, previous []model.Episode) (model.Extraction, error) {
	prompt := fmt.Sprintf(e.Prompt, withPrevious(episode, previous))

	response, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return model.Extraction{}, fmt.Errorf("%w: failed to generate entities: %w", model.ErrExtractionFailure, err)
	}

	result, err := common.ParseJSON[model.Extraction](response)
	if err != nil {
		return model.Extraction{}, fmt.Errorf("%w: failed to parse entities: %w", model.ErrExtractionFailure, err)
	}

	return clean(result), nil
}

// withPrevious prefixes the exchange with the earlier ones so the single %s of
// a custom prompt still receives everything.
func withPrevious(episode model.Episode, previous []model.Episode) string {
	if len(previous) == 0 {
		return episode.Content
	}
	var b strings.Builder
	b.WriteString("Earlier exchanges, for context only (do not extract them):\n")
	for _, p := range previous {
		b.WriteString(p.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("Current exchange (the person answering is the suspect):\n")
	b.WriteString(episode.Content)
	return b.String()
}

func clean(ext model.Extraction) model.Extraction {
	var out model.Extraction
	for _, ent := range ext.Entities {
		if strings.TrimSpace(ent.Name) == "" {
			continue
		}
		out.Entities = append(out.Entities, ent)
	}
	for _, rel := range ext.Relationships {
		if strings.TrimSpace(rel.Source) == "" || strings.TrimSpace(rel.Target) == "" {
			continue
		}
		out.Relationships = append(out.Relationships, rel)
	}
	return out
}
