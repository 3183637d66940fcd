package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/inquest/internal/core/model"
)

type EpisodeCommitter interface {
	CommitEpisode(ctx context.Context, entry model.TranscriptEntry) EpisodeCommitResult
}

type PairWriter interface {
	WritePair(ctx context.Context, entry model.TranscriptEntry) (string, string, error)
}

// Coordinator performs the best-effort dual write of an appended entry: the
// graph commit and the relational mirror run concurrently and independently.
// A failure on one side never rolls back or skips the other.
type Coordinator struct {
	graph             EpisodeCommitter
	mirror            PairWriter
	relationalTimeout time.Duration
	log               logrus.FieldLogger
}

func NewCoordinator(graph EpisodeCommitter, mirror PairWriter, relationalTimeout time.Duration, log logrus.FieldLogger) *Coordinator {
	return &Coordinator{
		graph:             graph,
		mirror:            mirror,
		relationalTimeout: relationalTimeout,
		log:               log,
	}
}

func (c *Coordinator) SyncEntry(ctx context.Context, entry model.TranscriptEntry) model.SyncStatus {
	log := c.log.WithFields(logrus.Fields{"session_id": entry.SessionID, "seq": entry.Seq})
	var status model.SyncStatus

	// both sides write disjoint fields of status and always return nil
	var g errgroup.Group
	g.Go(func() error {
		res := c.graph.CommitEpisode(ctx, entry)
		status.GraphOK = res.OK()
		status.GraphDegraded = res.Degraded
		if res.Err != nil {
			status.GraphError = res.Err.Error()
			log.WithField("side", "graph").WithError(res.Err).Warn("dual write side failed")
		}
		return nil
	})
	g.Go(func() error {
		mctx := ctx
		if c.relationalTimeout > 0 {
			var cancel context.CancelFunc
			mctx, cancel = context.WithTimeout(ctx, c.relationalTimeout)
			defer cancel()
		}
		if _, _, err := c.mirror.WritePair(mctx, entry); err != nil {
			status.RelationalError = err.Error()
			log.WithField("side", "relational").WithError(err).Warn("dual write side failed")
			return nil
		}
		status.RelationalOK = true
		return nil
	})
	_ = g.Wait()
	return status
}
