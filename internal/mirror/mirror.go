// Package mirror keeps a relational copy of every transcript entry as two
// ordered messages, question first.
package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agenthands/inquest/internal/core/model"
)

type Store interface {
	// WriteExchange ensures the session row and inserts both messages in one
	// transaction. Rewriting the same messages is a no-op.
	WriteExchange(ctx context.Context, session model.Session, question, answer model.Message) error
	Messages(ctx context.Context, sessionID string) ([]model.Message, error)
	Ping(ctx context.Context) error
}

type Mirror struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func New(store Store, log logrus.FieldLogger) *Mirror {
	return &Mirror{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WritePair mirrors one entry. Errors wrap model.ErrRelationalWriteFailure.
func (m *Mirror) WritePair(ctx context.Context, entry model.TranscriptEntry) (string, string, error) {
	createdAt := entry.Timestamp
	if createdAt.IsZero() {
		createdAt = m.now()
	}

	qPos, aPos := 2*entry.Seq-1, 2*entry.Seq
	question := model.Message{
		ID:        model.MessageID(entry.SessionID, qPos),
		SessionID: entry.SessionID,
		Role:      model.RoleQuestion,
		Content:   entry.Question,
		Metadata:  map[string]any{"type": "investigation_question", "seq": entry.Seq},
		Position:  qPos,
		CreatedAt: createdAt,
	}
	answer := model.Message{
		ID:        model.MessageID(entry.SessionID, aPos),
		SessionID: entry.SessionID,
		Role:      model.RoleAnswer,
		Content:   entry.Answer,
		Metadata:  map[string]any{"type": "suspect_answer", "seq": entry.Seq, "question_id": question.ID},
		Position:  aPos,
		CreatedAt: createdAt,
	}
	session := model.Session{
		ID:        entry.SessionID,
		CreatedAt: createdAt,
		Metadata:  map[string]any{"source": model.EpisodeSource},
	}

	if err := m.store.WriteExchange(ctx, session, question, answer); err != nil {
		return "", "", fmt.Errorf("%w: session %s seq %d: %w", model.ErrRelationalWriteFailure, entry.SessionID, entry.Seq, err)
	}

	m.log.WithFields(logrus.Fields{
		"session_id":  entry.SessionID,
		"seq":         entry.Seq,
		"question_id": question.ID,
		"answer_id":   answer.ID,
	}).Debug("exchange mirrored")
	return question.ID, answer.ID, nil
}

func (m *Mirror) Messages(ctx context.Context, sessionID string) ([]model.Message, error) {
	return m.store.Messages(ctx, sessionID)
}

func (m *Mirror) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}
