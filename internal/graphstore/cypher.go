package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/driver"
)

// CypherStore keeps session graphs in a bolt-speaking graph database.
type CypherStore struct {
	driver driver.GraphDriver
	log    logrus.FieldLogger
}

func NewCypherStore(d driver.GraphDriver, log logrus.FieldLogger) *CypherStore {
	return &CypherStore{driver: d, log: log}
}

func (s *CypherStore) LoadView(ctx context.Context, sessionID string) (*model.GraphView, error) {
	params := map[string]any{"group_id": sessionID}
	view := model.NewGraphView(sessionID)

	res, err := s.driver.ExecuteQuery(ctx, driver.GetSessionEntitiesQuery, params)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	for _, rec := range res.Records {
		e := entityFromRecord(rec, sessionID)
		view.Entities[e.Key] = e
	}

	res, err = s.driver.ExecuteQuery(ctx, driver.GetSessionRelationshipsQuery, params)
	if err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	for _, rec := range res.Records {
		r := relationshipFromRecord(rec, sessionID)
		view.Relationships[r.Key] = r
	}
	return view, nil
}

func (s *CypherStore) ApplyEpisode(ctx context.Context, episode model.Episode, plan model.MergePlan) error {
	res, err := s.driver.ExecuteQuery(ctx, driver.GetEpisodeContentQuery, map[string]any{"uuid": episode.ID})
	if err != nil {
		return fmt.Errorf("check episode %d: %w", episode.Seq, err)
	}
	if len(res.Records) > 0 && getString(res.Records[0], "content") != episode.Content {
		return fmt.Errorf("%w: episode %s", model.ErrSequenceConflict, episode.ID)
	}

	statements := EpisodeStatements(episode, plan)
	if err := s.driver.ExecuteWrite(ctx, statements); err != nil {
		return fmt.Errorf("apply episode %d: %w", episode.Seq, err)
	}
	s.log.WithFields(logrus.Fields{
		"session_id":    episode.SessionID,
		"seq":           episode.Seq,
		"statements":    len(statements),
		"entities":      len(plan.EntityInserts) + len(plan.EntityUpdates),
		"relationships": len(plan.RelationshipInserts) + len(plan.RelationshipUpdates),
	}).Debug("episode applied")
	return nil
}

// EpisodeStatements builds the write transaction for one episode. Every
// statement is a MERGE on a stable id, so re-running it is harmless.
func EpisodeStatements(episode model.Episode, plan model.MergePlan) []driver.Statement {
	group := episode.SessionID
	out := []driver.Statement{
		{Query: driver.MergeSessionQuery, Params: map[string]any{
			"group_id":   group,
			"created_at": formatTime(episode.Timestamp),
		}},
		{Query: driver.MergeEpisodeQuery, Params: map[string]any{
			"uuid":       episode.ID,
			"name":       fmt.Sprintf("%s #%d", group, episode.Seq),
			"group_id":   group,
			"seq":        episode.Seq,
			"content":    episode.Content,
			"source":     episode.Source,
			"created_at": formatTime(episode.Timestamp),
			"degraded":   episode.Degraded,
		}},
		{Query: driver.MergeHasEpisodeEdgeQuery, Params: map[string]any{
			"group_id":     group,
			"episode_uuid": episode.ID,
		}},
	}
	if episode.Seq > 1 {
		out = append(out, driver.Statement{Query: driver.MergeNextEpisodeEdgeQuery, Params: map[string]any{
			"group_id":    group,
			"source_uuid": model.EpisodeID(group, episode.Seq-1),
			"target_uuid": episode.ID,
		}})
	}

	for _, e := range plan.Entities() {
		episodes := e.Episodes
		if episodes == nil {
			episodes = []string{}
		}
		out = append(out,
			driver.Statement{Query: driver.MergeEntityNodeQuery, Params: map[string]any{
				"uuid":        e.ID,
				"key":         e.Key,
				"name":        e.Name,
				"entity_type": e.Type,
				"group_id":    group,
				"summary":     e.Summary,
				"first_seen":  formatTime(e.FirstSeen),
				"last_seen":   formatTime(e.LastSeen),
				"episodes":    episodes,
			}},
			driver.Statement{Query: driver.MergeMentionsEdgeQuery, Params: map[string]any{
				"group_id":     group,
				"episode_uuid": episode.ID,
				"entity_uuid":  e.ID,
			}},
		)
	}

	for _, r := range plan.Relationships() {
		texts := make([]string, len(r.Facts))
		episodes := make([]string, len(r.Facts))
		seqs := make([]int64, len(r.Facts))
		times := make([]string, len(r.Facts))
		for i, f := range r.Facts {
			texts[i] = f.Text
			episodes[i] = f.EpisodeID
			seqs[i] = f.Seq
			times[i] = formatTime(f.Timestamp)
		}
		out = append(out, driver.Statement{Query: driver.MergeRelationshipQuery, Params: map[string]any{
			"uuid":          r.ID,
			"source_uuid":   r.FromID,
			"target_uuid":   r.ToID,
			"key":           r.Key,
			"name":          r.Label,
			"group_id":      group,
			"fact":          r.LatestFact().Text,
			"fact_texts":    texts,
			"fact_episodes": episodes,
			"fact_seqs":     seqs,
			"fact_times":    times,
			"first_seen":    formatTime(r.FirstSeen),
			"last_seen":     formatTime(r.LastSeen),
		}})
	}
	return out
}

func (s *CypherStore) Subgraph(ctx context.Context, sessionID string, limit int) (Subgraph, error) {
	return s.selectEntities(ctx, sessionID, driver.CountSessionGraphQuery, driver.GetRecentEntitiesQuery, map[string]any{
		"group_id": sessionID,
		"limit":    int64(limit),
	})
}

func (s *CypherStore) Changes(ctx context.Context, sessionID string, since time.Time, limit int) (Subgraph, error) {
	return s.selectEntities(ctx, sessionID, driver.CountChangedQuery, driver.GetChangedEntitiesQuery, map[string]any{
		"group_id": sessionID,
		"since":    formatTime(since),
		"limit":    int64(limit),
	})
}

// Neighborhood walks the loaded session view; session graphs are small
// enough that a variable-length Cypher match buys nothing.
func (s *CypherStore) Neighborhood(ctx context.Context, sessionID, name string, depth, limit int) (Subgraph, error) {
	view, err := s.LoadView(ctx, sessionID)
	if err != nil {
		return Subgraph{}, err
	}
	return neighborhood(view, name, depth, limit)
}

// selectEntities runs a count query, an entity query and the edges among the
// selected entities.
func (s *CypherStore) selectEntities(ctx context.Context, sessionID, countQuery, entityQuery string, params map[string]any) (Subgraph, error) {
	var sg Subgraph

	res, err := s.driver.ExecuteQuery(ctx, countQuery, params)
	if err != nil {
		return sg, fmt.Errorf("count graph: %w", err)
	}
	if len(res.Records) > 0 {
		sg.TotalNodes = int(getInt(res.Records[0], "nodes"))
		sg.TotalEdges = int(getInt(res.Records[0], "edges"))
	}

	res, err = s.driver.ExecuteQuery(ctx, entityQuery, params)
	if err != nil {
		return sg, fmt.Errorf("load entities: %w", err)
	}
	uuids := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		e := entityFromRecord(rec, sessionID)
		sg.Entities = append(sg.Entities, e)
		uuids = append(uuids, e.ID)
	}
	if len(uuids) == 0 {
		return sg, nil
	}

	res, err = s.driver.ExecuteQuery(ctx, driver.GetEdgesAmongQuery, map[string]any{"uuids": uuids})
	if err != nil {
		return sg, fmt.Errorf("load edges: %w", err)
	}
	for _, rec := range res.Records {
		sg.Relationships = append(sg.Relationships, relationshipFromRecord(rec, sessionID))
	}
	return sg, nil
}

func (s *CypherStore) Ping(ctx context.Context) error {
	_, err := s.driver.ExecuteQuery(ctx, driver.PingQuery, nil)
	return err
}
