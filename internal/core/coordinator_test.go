package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/logger"
)

type stubCommitter struct {
	result EpisodeCommitResult
	calls  atomic.Int32
}

func (s *stubCommitter) CommitEpisode(context.Context, model.TranscriptEntry) EpisodeCommitResult {
	s.calls.Add(1)
	return s.result
}

type stubWriter struct {
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubWriter) WritePair(ctx context.Context, _ model.TranscriptEntry) (string, string, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	return "q", "a", s.err
}

var entry1 = model.TranscriptEntry{Seq: 1, SessionID: "s1", Question: "Q?", Answer: "A."}

func TestSyncEntry_BothSidesAttempted(t *testing.T) {
	graph := &stubCommitter{result: EpisodeCommitResult{Err: model.ErrGraphWriteFailure}}
	rel := &stubWriter{}
	c := NewCoordinator(graph, rel, time.Second, logger.Discard())

	status := c.SyncEntry(context.Background(), entry1)
	assert.False(t, status.GraphOK)
	assert.Equal(t, "graph write failure", status.GraphError)
	assert.True(t, status.RelationalOK)
	assert.EqualValues(t, 1, graph.calls.Load())
	assert.EqualValues(t, 1, rel.calls.Load())

	graph = &stubCommitter{result: EpisodeCommitResult{Degraded: true}}
	rel = &stubWriter{err: errors.New("relational write failure: pool closed")}
	status = NewCoordinator(graph, rel, time.Second, logger.Discard()).SyncEntry(context.Background(), entry1)
	assert.True(t, status.GraphOK)
	assert.True(t, status.GraphDegraded)
	assert.False(t, status.RelationalOK)
	assert.Contains(t, status.RelationalError, "pool closed")
}

func TestSyncEntry_RelationalTimeout(t *testing.T) {
	rel := &stubWriter{delay: time.Minute}
	c := NewCoordinator(&stubCommitter{}, rel, 10*time.Millisecond, logger.Discard())

	start := time.Now()
	status := c.SyncEntry(context.Background(), entry1)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, status.GraphOK)
	assert.False(t, status.RelationalOK)
	assert.Contains(t, status.RelationalError, "deadline exceeded")
}
