package core

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agenthands/inquest/internal/core/extraction"
	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/core/resolution"
	"github.com/agenthands/inquest/internal/graphstore"
)

// EpisodeCommitResult describes what reached the graph for one entry.
type EpisodeCommitResult struct {
	Episode model.Episode
	Plan    model.MergePlan
	// Degraded is set when extraction failed and the episode was written
	// without mentions.
	Degraded bool
	// Err wraps model.ErrGraphWriteFailure when nothing was written.
	Err error
}

func (r EpisodeCommitResult) OK() bool {
	return r.Err == nil
}

type SyncTimeouts struct {
	Extraction time.Duration
	GraphWrite time.Duration
}

// contextEpisodes is how many earlier exchanges accompany an episode into
// extraction.
const contextEpisodes = 3

// History yields a session's transcript in append order.
type History interface {
	ReadAll(sessionID string) iter.Seq[model.TranscriptEntry]
}

// Synchronizer commits transcript entries to the session knowledge graph.
type Synchronizer struct {
	extractor extraction.Capability
	resolver  *resolution.Resolver
	store     graphstore.Store
	history   History
	timeouts  SyncTimeouts
	log       logrus.FieldLogger
}

// NewSynchronizer builds a synchronizer. history may be nil, in which case
// episodes are extracted without earlier exchanges.
func NewSynchronizer(extractor extraction.Capability, resolver *resolution.Resolver, store graphstore.Store, history History, timeouts SyncTimeouts, log logrus.FieldLogger) *Synchronizer {
	return &Synchronizer{
		extractor: extractor,
		resolver:  resolver,
		store:     store,
		history:   history,
		timeouts:  timeouts,
		log:       log,
	}
}

func episodeFor(entry model.TranscriptEntry) model.Episode {
	return model.Episode{
		ID:        model.EpisodeID(entry.SessionID, entry.Seq),
		SessionID: entry.SessionID,
		Seq:       entry.Seq,
		Content:   entry.Content(),
		Source:    model.EpisodeSource,
		Timestamp: entry.Timestamp,
	}
}

// CommitEpisode extracts, resolves and writes one entry. It never returns an
// error: an extraction failure degrades the result, a graph failure is
// reported in Err.
func (s *Synchronizer) CommitEpisode(ctx context.Context, entry model.TranscriptEntry) EpisodeCommitResult {
	episode := episodeFor(entry)
	log := s.log.WithFields(logrus.Fields{
		"session_id": entry.SessionID,
		"seq":        entry.Seq,
		"episode_id": episode.ID,
	})
	result := EpisodeCommitResult{Episode: episode}

	ext, err := s.extract(ctx, episode, s.previous(entry))
	if err != nil {
		if !errors.Is(err, model.ErrExtractionFailure) {
			err = fmt.Errorf("%w: %w", model.ErrExtractionFailure, err)
		}
		log.WithError(err).Warn("extraction failed, committing episode without mentions")
		ext = model.Extraction{}
		result.Degraded = true
	}

	writeCtx := ctx
	if s.timeouts.GraphWrite > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, s.timeouts.GraphWrite)
		defer cancel()
	}

	view, err := s.store.LoadView(writeCtx, entry.SessionID)
	if err != nil {
		result.Err = fmt.Errorf("%w: load session graph: %w", model.ErrGraphWriteFailure, err)
		log.WithError(result.Err).Error("graph sync failed")
		return result
	}

	plan := s.resolver.Resolve(ext, view, episode)
	for _, e := range plan.Entities() {
		episode.EntityIDs = append(episode.EntityIDs, e.ID)
	}
	for _, r := range plan.Relationships() {
		episode.RelationshipIDs = append(episode.RelationshipIDs, r.ID)
	}
	episode.Degraded = result.Degraded
	result.Episode = episode
	result.Plan = plan

	if err := s.store.ApplyEpisode(writeCtx, episode, plan); err != nil {
		result.Err = fmt.Errorf("%w: apply episode: %w", model.ErrGraphWriteFailure, err)
		log.WithError(result.Err).Error("graph sync failed")
		return result
	}

	for _, m := range plan.Unresolved {
		log.WithField("mention", m.Text).Debug("unresolved reference")
	}
	log.WithFields(logrus.Fields{
		"entity_inserts":       len(plan.EntityInserts),
		"entity_updates":       len(plan.EntityUpdates),
		"relationship_inserts": len(plan.RelationshipInserts),
		"relationship_updates": len(plan.RelationshipUpdates),
		"unresolved":           len(plan.Unresolved),
	}).Debug("episode committed")
	return result
}

// previous returns up to contextEpisodes entries preceding entry, oldest
// first.
func (s *Synchronizer) previous(entry model.TranscriptEntry) []model.Episode {
	if s.history == nil {
		return nil
	}
	var out []model.Episode
	for e := range s.history.ReadAll(entry.SessionID) {
		if e.Seq >= entry.Seq {
			break
		}
		out = append(out, episodeFor(e))
		if len(out) > contextEpisodes {
			out = out[1:]
		}
	}
	return out
}

func (s *Synchronizer) extract(ctx context.Context, episode model.Episode, previous []model.Episode) (model.Extraction, error) {
	if s.timeouts.Extraction > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.Extraction)
		defer cancel()
	}
	return s.extractor.Extract(ctx, episode, previous)
}

type RebuildResult struct {
	Episodes int `json:"episodes"`
	Degraded int `json:"degraded"`
}

// Rebuild replays entries in order. Deterministic ids and identity-key
// merging make a replay over an existing graph idempotent. It stops at the
// first graph failure.
func (s *Synchronizer) Rebuild(ctx context.Context, sessionID string, entries iter.Seq[model.TranscriptEntry]) (RebuildResult, error) {
	var out RebuildResult
	for entry := range entries {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if entry.SessionID != sessionID {
			continue
		}
		res := s.CommitEpisode(ctx, entry)
		if !res.OK() {
			return out, fmt.Errorf("replay seq %d: %w", entry.Seq, res.Err)
		}
		out.Episodes++
		if res.Degraded {
			out.Degraded++
		}
	}
	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"episodes":   out.Episodes,
		"degraded":   out.Degraded,
	}).Info("session graph rebuilt")
	return out, nil
}
