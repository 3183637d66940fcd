package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/llm"
)

// Request is everything a capability may use to analyse the latest answer.
type Request struct {
	SessionID string
	Latest    model.TranscriptEntry
	History   []model.TranscriptEntry // entries before Latest, oldest first
	Findings  []model.Finding
	View      *model.GraphView
}

// Capability produces a free-form analysis followed by suggested questions.
// The output is parsed leniently, so any list format works.
type Capability interface {
	Analyze(ctx context.Context, req Request) (string, error)
}

// DefaultPrompt placeholders: {{question}}, {{answer}}, {{history}},
// {{facts}} and {{findings}}.
const DefaultPrompt = `You are analyzing a new Q&A pair from an interrogation. Your task is to:

1. Search for **contradictions** with previous statements in the knowledge graph and transcript
2. Identify **missing information** (unnamed people, unspecified times/places, unclear relationships)
3. Detect **ambiguous references** (partial names, vague pronouns, unclear locations)
4. Generate 3-5 **specific follow-up questions** to resolve these issues

**Previous statements:**
{{history}}

**Known facts from the knowledge graph:**
{{facts}}

**Issues already detected automatically:**
{{findings}}

**Current Q&A:**
Question: {{question}}
Answer: {{answer}}

Provide your analysis in the following structure:

**Analysis:**
[Brief analysis of what's missing, ambiguous, or contradictory in this answer]

**Suggested Questions:**
1. [First specific follow-up question]
2. [Second specific follow-up question]
3. [Third specific follow-up question]
4. [Fourth specific follow-up question - optional]
5. [Fifth specific follow-up question - optional]

Questions must be specific and actionable (who/what/where/when/how), reference
concrete evidence from the answer and prioritize the most critical gaps.`

const (
	maxHistory = 20
	maxFacts   = 40
)

type LLMCapability struct {
	LLM    llm.LLMClient
	Prompt string
}

func NewLLMCapability(client llm.LLMClient, prompt string) *LLMCapability {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	return &LLMCapability{LLM: client, Prompt: prompt}
}

func (c *LLMCapability) Analyze(ctx context.Context, req Request) (string, error) {
	prompt := strings.NewReplacer(
		"{{question}}", req.Latest.Question,
		"{{answer}}", req.Latest.Answer,
		"{{history}}", formatHistory(req.History),
		"{{facts}}", formatFacts(req.View),
		"{{findings}}", formatFindings(req.Findings),
	).Replace(c.Prompt)

	out, err := c.LLM.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate analysis: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("empty analysis response")
	}
	return out, nil
}

func formatHistory(entries []model.TranscriptEntry) string {
	if len(entries) > maxHistory {
		entries = entries[len(entries)-maxHistory:]
	}
	if len(entries) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", e.Seq, e.Question, e.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFacts(view *model.GraphView) string {
	if view == nil || len(view.Relationships) == 0 {
		return "(none)"
	}
	var b strings.Builder
	n := 0
	for _, r := range view.SortedRelationships() {
		for _, f := range r.Facts {
			if n == maxFacts {
				return strings.TrimRight(b.String(), "\n")
			}
			fmt.Fprintf(&b, "- [statement %d] %s\n", f.Seq, f.Text)
			n++
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFindings(findings []model.Finding) string {
	if len(findings) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&b, "- %s: %s\n", f.Kind, f.Detail)
	}
	return strings.TrimRight(b.String(), "\n")
}

// HeuristicCapability writes the analysis from the deterministic findings
// alone. It is used when no language model is configured.
type HeuristicCapability struct{}

func (HeuristicCapability) Analyze(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("**Analysis:**\n")
	b.WriteString(Summary(req.Findings))
	if len(req.Findings) > 0 {
		b.WriteString("\n\n**Suggested Questions:**")
		for i, f := range req.Findings {
			fmt.Fprintf(&b, "\n%d. %s", i+1, f.Question)
		}
	}
	return b.String(), nil
}
