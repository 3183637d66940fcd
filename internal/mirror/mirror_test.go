package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/logger"
)

type failingStore struct {
	err error
}

func (f *failingStore) WriteExchange(context.Context, model.Session, model.Message, model.Message) error {
	return f.err
}

func (f *failingStore) Messages(context.Context, string) ([]model.Message, error) {
	return nil, f.err
}

func (f *failingStore) Ping(context.Context) error {
	return f.err
}

func entry(seq int64) model.TranscriptEntry {
	return model.TranscriptEntry{
		Seq:       seq,
		SessionID: "s1",
		Question:  "Where were you?",
		Answer:    "At home.",
		Timestamp: time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
	}
}

func TestWritePair_OrderedMessages(t *testing.T) {
	store := NewMemoryStore()
	m := New(store, logger.Discard())
	ctx := context.Background()

	q1, a1, err := m.WritePair(ctx, entry(1))
	require.NoError(t, err)
	_, _, err = m.WritePair(ctx, entry(2))
	require.NoError(t, err)

	msgs, err := m.Messages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, q1, msgs[0].ID)
	assert.Equal(t, a1, msgs[1].ID)
	assert.Equal(t, model.RoleQuestion, msgs[0].Role)
	assert.Equal(t, model.RoleAnswer, msgs[1].Role)
	assert.Equal(t, "Where were you?", msgs[0].Content)
	for i, msg := range msgs {
		assert.Equal(t, int64(i+1), msg.Position)
	}
	assert.Equal(t, q1, msgs[1].Metadata["question_id"])
}

func TestWritePair_Idempotent(t *testing.T) {
	store := NewMemoryStore()
	m := New(store, logger.Discard())
	ctx := context.Background()

	q1, a1, err := m.WritePair(ctx, entry(1))
	require.NoError(t, err)
	q2, a2, err := m.WritePair(ctx, entry(1))
	require.NoError(t, err)

	assert.Equal(t, q1, q2)
	assert.Equal(t, a1, a2)
	msgs, _ := m.Messages(ctx, "s1")
	assert.Len(t, msgs, 2)
}

func TestWritePair_Failure(t *testing.T) {
	m := New(&failingStore{err: errors.New("too many connections")}, logger.Discard())

	_, _, err := m.WritePair(context.Background(), entry(1))
	assert.ErrorIs(t, err, model.ErrRelationalWriteFailure)
	assert.ErrorContains(t, err, "too many connections")
}

func TestWritePair_DifferentExchangeSameSeq(t *testing.T) {
	store := NewMemoryStore()
	m := New(store, logger.Discard())
	ctx := context.Background()

	_, _, err := m.WritePair(ctx, entry(1))
	require.NoError(t, err)

	reset := entry(1)
	reset.Answer = "At the office."
	_, _, err = m.WritePair(ctx, reset)
	assert.ErrorIs(t, err, model.ErrRelationalWriteFailure)
	assert.ErrorIs(t, err, model.ErrSequenceConflict)

	msgs, _ := m.Messages(ctx, "s1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "At home.", msgs[1].Content)
}
