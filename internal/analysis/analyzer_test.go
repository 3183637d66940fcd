package analysis

import (
	"context"
	"errors"
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/logger"
	"github.com/agenthands/inquest/internal/questions"
)

type stubTranscript []model.TranscriptEntry

func (s stubTranscript) ReadAll(string) iter.Seq[model.TranscriptEntry] {
	return slices.Values(s)
}

type stubGraph struct {
	view *model.GraphView
	err  error
}

func (g stubGraph) LoadView(context.Context, string) (*model.GraphView, error) {
	return g.view, g.err
}

type MockCapability struct {
	Response string
	Err      error
	Delay    time.Duration
	LastReq  Request
}

func (m *MockCapability) Analyze(ctx context.Context, req Request) (string, error) {
	m.LastReq = req
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.Response, m.Err
}

type MockLLM struct {
	Response   string
	Err        error
	LastPrompt string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.LastPrompt = prompt
	return m.Response, m.Err
}

func newAnalyzer(c Capability, es []model.TranscriptEntry, view *model.GraphView) *Analyzer {
	return New(stubTranscript(es), stubGraph{view: view}, c, Options{Timeout: time.Second, MinQuestions: 3, MaxQuestions: 5}, logger.Discard())
}

func TestAnalyze_ConflictQuestionFirst(t *testing.T) {
	capability := &MockCapability{Response: "**Analysis:**\nThe day changed.\n\n**Suggested Questions:**\n1. Who else was at the restaurant?\n2. How did you pay?"}
	a := newAnalyzer(capability, entries("a", "b", "c"), restaurantView())

	res := a.Analyze(context.Background(), "s1")

	assert.False(t, res.Degraded)
	assert.Equal(t, "The day changed.", res.Narrative)
	assert.True(t, res.HasConflict())
	require.Len(t, res.SuggestedQuestions, 3)
	assert.Contains(t, res.SuggestedQuestions[0], "Friday")
	assert.Equal(t, "Who else was at the restaurant?", res.SuggestedQuestions[1])

	assert.Equal(t, int64(3), capability.LastReq.Latest.Seq)
	assert.Len(t, capability.LastReq.History, 2)
}

func TestAnalyze_TopsUpAndCaps(t *testing.T) {
	one := &MockCapability{Response: "Suggested Questions:\n- Where is the car now?"}
	res := newAnalyzer(one, entries("a"), nil).Analyze(context.Background(), "s1")
	assert.Len(t, res.SuggestedQuestions, 3)
	assert.Equal(t, "Where is the car now?", res.SuggestedQuestions[0])

	many := &MockCapability{Response: "1. A one?\n2. A two?\n3. A three?\n4. A four?\n5. A five?"}
	res = newAnalyzer(many, entries("a", "b", "c"), restaurantView()).Analyze(context.Background(), "s1")
	assert.Len(t, res.SuggestedQuestions, 5)
	assert.Contains(t, res.SuggestedQuestions[0], "Friday")
	assert.Equal(t, "A four?", res.SuggestedQuestions[4])
}

func TestAnalyze_CapabilityFailure(t *testing.T) {
	failing := &MockCapability{Err: errors.New("model overloaded")}
	res := newAnalyzer(failing, entries("a", "b", "c"), restaurantView()).Analyze(context.Background(), "s1")

	assert.True(t, res.Degraded)
	assert.Equal(t, questions.Defaults(), res.SuggestedQuestions)
	assert.Contains(t, res.Narrative, "Detected")
	assert.True(t, res.HasConflict(), "heuristic findings survive a capability failure")
}

func TestAnalyze_CapabilityTimeout(t *testing.T) {
	slow := &MockCapability{Response: "1. Too late?", Delay: time.Minute}
	a := New(stubTranscript(entries("a")), stubGraph{view: nil}, slow, Options{Timeout: 10 * time.Millisecond}, logger.Discard())

	res := a.Analyze(context.Background(), "s1")
	assert.True(t, res.Degraded)
	assert.Equal(t, questions.Defaults(), res.SuggestedQuestions)
}

func TestAnalyze_GraphUnavailable(t *testing.T) {
	capability := &MockCapability{Response: "1. Anything else?"}
	a := New(stubTranscript(entries("I went somewhere.")), stubGraph{err: errors.New("bolt: connection refused")}, capability, Options{}, logger.Discard())

	res := a.Analyze(context.Background(), "s1")
	assert.False(t, res.Degraded)
	require.NotEmpty(t, res.Findings)
	assert.Equal(t, model.FindingPlace, res.Findings[0].Kind)
	assert.NotNil(t, capability.LastReq.View)
}

func TestAnalyze_EmptySession(t *testing.T) {
	capability := &MockCapability{}
	res := newAnalyzer(capability, nil, nil).Analyze(context.Background(), "s1")
	assert.Equal(t, questions.Defaults(), res.SuggestedQuestions)
	assert.Empty(t, capability.LastReq.SessionID, "capability is not consulted")
}

func TestHeuristicCapability(t *testing.T) {
	a := newAnalyzer(HeuristicCapability{}, entries("a", "b", "c"), restaurantView())
	res := a.Analyze(context.Background(), "s1")

	assert.False(t, res.Degraded)
	assert.Contains(t, res.Narrative, "[conflict]")
	assert.Contains(t, res.SuggestedQuestions[0], "Friday")
	assert.Contains(t, res.SuggestedQuestions[1], "Mike's full name")
	assert.GreaterOrEqual(t, len(res.SuggestedQuestions), 3)
}

func TestLLMCapability_Prompt(t *testing.T) {
	mockLLM := &MockLLM{Response: "**Analysis:** fine"}
	c := NewLLMCapability(mockLLM, "")
	es := entries("At home.", "With Mike.")

	out, err := c.Analyze(context.Background(), Request{
		Latest:   es[1],
		History:  es[:1],
		Findings: []model.Finding{model.NewFinding(model.FindingIdentity, "Mike is only known by a single name.", "?")},
		View:     restaurantView(),
	})
	require.NoError(t, err)
	assert.Equal(t, "**Analysis:** fine", out)
	assert.Contains(t, mockLLM.LastPrompt, "Answer: With Mike.")
	assert.Contains(t, mockLLM.LastPrompt, "1. Q: Q?\n   A: At home.")
	assert.Contains(t, mockLLM.LastPrompt, "[statement 3] I stayed at the restaurant")
	assert.Contains(t, mockLLM.LastPrompt, "- identity: Mike is only known")
	assert.NotContains(t, mockLLM.LastPrompt, "{{")

	_, err = NewLLMCapability(&MockLLM{Response: "  "}, "").Analyze(context.Background(), Request{})
	assert.Error(t, err)
	_, err = NewLLMCapability(&MockLLM{Err: errors.New("401")}, "").Analyze(context.Background(), Request{})
	assert.ErrorContains(t, err, "401")
}
