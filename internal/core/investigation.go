// Package core runs the submission pipeline of an interrogation: every
// answered question is appended to the transcript, mirrored to the graph and
// relational stores, analysed, and answered with follow-up questions.
package core

import (
	"context"
	"iter"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/events"
)

// Stage is a step of a submission's lifecycle. Stages are logged, not stored.
type Stage string

const (
	StageReceived       Stage = "RECEIVED"
	StageAppended       Stage = "APPENDED"
	StageGraphSynced    Stage = "GRAPH_SYNCED"
	StageGraphDegraded  Stage = "GRAPH_DEGRADED"
	StageMirrorOK       Stage = "MIRROR_OK"
	StageMirrorDegraded Stage = "MIRROR_DEGRADED"
	StageAnalyzed       Stage = "ANALYZED"
	StageResponded      Stage = "RESPONDED"
)

type Transcript interface {
	Append(ctx context.Context, sessionID, question, answer string) (model.TranscriptEntry, error)
	ReadAll(sessionID string) iter.Seq[model.TranscriptEntry]
}

type Analyzer interface {
	Analyze(ctx context.Context, sessionID string) model.AnalysisResult
}

type GraphExporter interface {
	Export(ctx context.Context, sessionID string, limit int) (string, model.Snapshot)
}

type SubmitRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

type SubmitResponse struct {
	SessionID          string           `json:"sessionId"`
	Seq                int64            `json:"seq"`
	SuggestedQuestions []string         `json:"suggestedQuestions"`
	GraphReference     string           `json:"graphReference"`
	Analysis           string           `json:"analysis"`
	Findings           []model.Finding  `json:"findings,omitempty"`
	Status             model.SyncStatus `json:"status"`
	Degraded           bool             `json:"degraded"`
}

type Investigation struct {
	transcript  Transcript
	coordinator *Coordinator
	sync        *Synchronizer
	analyzer    Analyzer
	exporter    GraphExporter
	publisher   events.Publisher
	locks       *sessionLocks
	log         logrus.FieldLogger
}

func NewInvestigation(transcript Transcript, coordinator *Coordinator, sync *Synchronizer, analyzer Analyzer, exporter GraphExporter, publisher events.Publisher, log logrus.FieldLogger) *Investigation {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Investigation{
		transcript:  transcript,
		coordinator: coordinator,
		sync:        sync,
		analyzer:    analyzer,
		exporter:    exporter,
		publisher:   publisher,
		locks:       newSessionLocks(),
		log:         log,
	}
}

// Submit processes one question/answer pair. Only a validation error (or a
// context cancelled while waiting for the session) rejects it; every later
// failure degrades the response instead.
//
// Once the entry is appended everything after it (graph and mirror writes,
// analysis, export and publishing) is detached from the caller's
// cancellation, so an abandoned request still reaches both stores and yields
// a full response. Cancelling after the append never removes the entry.
func (inv *Investigation) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	log := inv.log.WithField("session_id", req.SessionID)
	stage(log, StageReceived)

	unlock, err := inv.locks.Lock(ctx, req.SessionID)
	if err != nil {
		return SubmitResponse{}, err
	}
	defer unlock()

	entry, err := inv.transcript.Append(ctx, req.SessionID, req.Question, req.Answer)
	if err != nil {
		log.WithError(err).Warn("submission rejected")
		return SubmitResponse{}, err
	}
	log = log.WithField("seq", entry.Seq)
	stage(log, StageAppended)

	ctx = context.WithoutCancel(ctx)
	status := inv.coordinator.SyncEntry(ctx, entry)
	if status.GraphOK && !status.GraphDegraded {
		stage(log, StageGraphSynced)
	} else {
		stage(log, StageGraphDegraded)
	}
	if status.RelationalOK {
		stage(log, StageMirrorOK)
	} else {
		stage(log, StageMirrorDegraded)
	}

	result := inv.analyzer.Analyze(ctx, req.SessionID)
	result.Status = status
	stage(log, StageAnalyzed)

	ref, _ := inv.exporter.Export(ctx, req.SessionID, 0)

	if err := inv.publisher.Publish(ctx, events.NewSubmissionAnalyzed(entry, result, ref)); err != nil {
		log.WithError(err).Warn("failed to publish submission event")
	}

	resp := SubmitResponse{
		SessionID:          req.SessionID,
		Seq:                entry.Seq,
		SuggestedQuestions: result.SuggestedQuestions,
		GraphReference:     ref,
		Analysis:           result.Narrative,
		Findings:           result.Findings,
		Status:             status,
		Degraded:           result.Degraded || !status.GraphOK || status.GraphDegraded || !status.RelationalOK,
	}
	stage(log, StageResponded)
	return resp, nil
}

// Rebuild replays the session transcript into the graph while holding the
// session lock.
func (inv *Investigation) Rebuild(ctx context.Context, sessionID string) (RebuildResult, error) {
	unlock, err := inv.locks.Lock(ctx, sessionID)
	if err != nil {
		return RebuildResult{}, err
	}
	defer unlock()
	return inv.sync.Rebuild(ctx, sessionID, inv.transcript.ReadAll(sessionID))
}

func stage(log logrus.FieldLogger, s Stage) {
	entry := log.WithField("stage", string(s))
	switch s {
	case StageGraphDegraded, StageMirrorDegraded:
		entry.Warn("submission stage")
	case StageReceived, StageResponded:
		entry.Info("submission stage")
	default:
		entry.Debug("submission stage")
	}
}
