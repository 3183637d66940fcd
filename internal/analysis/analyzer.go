// Package analysis detects gaps and contradictions in a session and proposes
// follow-up questions.
package analysis

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/questions"
)

type TranscriptReader interface {
	ReadAll(sessionID string) iter.Seq[model.TranscriptEntry]
}

type GraphReader interface {
	LoadView(ctx context.Context, sessionID string) (*model.GraphView, error)
}

type Options struct {
	Timeout      time.Duration
	MinQuestions int
	MaxQuestions int
}

type Analyzer struct {
	transcript TranscriptReader
	graph      GraphReader
	capability Capability
	opts       Options
	log        logrus.FieldLogger
}

func New(transcript TranscriptReader, graph GraphReader, capability Capability, opts Options, log logrus.FieldLogger) *Analyzer {
	if opts.MaxQuestions <= 0 || opts.MaxQuestions > questions.DefaultMax {
		opts.MaxQuestions = questions.DefaultMax
	}
	if opts.MinQuestions <= 0 || opts.MinQuestions > opts.MaxQuestions {
		opts.MinQuestions = min(3, opts.MaxQuestions)
	}
	if capability == nil {
		capability = HeuristicCapability{}
	}
	return &Analyzer{
		transcript: transcript,
		graph:      graph,
		capability: capability,
		opts:       opts,
		log:        log,
	}
}

// Analyze never fails. When the capability errors or times out the result is
// marked degraded, the narrative falls back to the heuristic summary and the
// questions are the default set.
func (a *Analyzer) Analyze(ctx context.Context, sessionID string) model.AnalysisResult {
	log := a.log.WithField("session_id", sessionID)
	entries := slices.Collect(a.transcript.ReadAll(sessionID))
	if len(entries) == 0 {
		return model.AnalysisResult{
			Narrative:          "No statements have been recorded for this session yet.",
			SuggestedQuestions: a.defaults(),
		}
	}

	view, err := a.graph.LoadView(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("graph view unavailable, analysing transcript only")
		view = model.NewGraphView(sessionID)
	}

	findings := Findings(entries, view)
	req := Request{
		SessionID: sessionID,
		Latest:    entries[len(entries)-1],
		History:   entries[:len(entries)-1],
		Findings:  findings,
		View:      view,
	}

	capCtx := ctx
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		capCtx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}
	raw, err := a.capability.Analyze(capCtx, req)
	if err != nil {
		err = fmt.Errorf("%w: %w", model.ErrAnalysisFailure, err)
		log.WithError(err).Warn("analysis capability failed, using defaults")
		return model.AnalysisResult{
			Narrative:          Summary(findings),
			SuggestedQuestions: a.defaults(),
			Findings:           findings,
			Degraded:           true,
		}
	}

	narrative := questions.SplitAnalysis(raw)
	if narrative == "" {
		narrative = Summary(findings)
	}
	result := model.AnalysisResult{
		Narrative:          narrative,
		SuggestedQuestions: a.compose(findings, questions.Extract(raw, a.opts.MaxQuestions)),
		Findings:           findings,
	}
	log.WithFields(logrus.Fields{
		"findings":  len(findings),
		"questions": len(result.SuggestedQuestions),
		"conflict":  result.HasConflict(),
	}).Debug("analysis complete")
	return result
}

// compose puts conflict questions first, then the capability's questions,
// tops the list up from the defaults and caps it.
func (a *Analyzer) compose(findings []model.Finding, extracted []string) []string {
	var candidates []string
	for _, f := range findings {
		if f.Kind == model.FindingConflict {
			candidates = append(candidates, f.Question)
		}
	}
	candidates = append(candidates, extracted...)

	out := unique(candidates)
	for _, d := range questions.Defaults() {
		if len(out) >= a.opts.MinQuestions {
			break
		}
		out = unique(append(out, d))
	}
	if len(out) > a.opts.MaxQuestions {
		out = out[:a.opts.MaxQuestions]
	}
	return out
}

func (a *Analyzer) defaults() []string {
	d := questions.Defaults()
	if len(d) > a.opts.MaxQuestions {
		d = d[:a.opts.MaxQuestions]
	}
	return d
}

func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, q := range in {
		k := strings.ToLower(strings.TrimSpace(q))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, strings.TrimSpace(q))
	}
	return out
}
