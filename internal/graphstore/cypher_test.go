package graphstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/driver"
	"github.com/agenthands/inquest/internal/logger"
)

var ts = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

func samplePlan(ep model.Episode) model.MergePlan {
	mike := model.Entity{
		ID:        model.EntityID("s1", "mike|person"),
		Key:       "mike|person",
		SessionID: "s1",
		Name:      "Mike",
		Type:      "Person",
		FirstSeen: ts,
		LastSeen:  ts,
		Episodes:  []string{ep.ID},
	}
	place := model.Entity{
		ID:        model.EntityID("s1", "restaurant|place"),
		Key:       "restaurant|place",
		SessionID: "s1",
		Name:      "restaurant",
		Type:      "Place",
		FirstSeen: ts,
		LastSeen:  ts,
		Episodes:  []string{ep.ID},
	}
	key := "mike|person -> restaurant|place #WAS_AT"
	rel := model.Relationship{
		ID:        model.RelationshipID("s1", key),
		Key:       key,
		SessionID: "s1",
		FromID:    mike.ID,
		ToID:      place.ID,
		FromKey:   mike.Key,
		ToKey:     place.Key,
		Label:     "WAS_AT",
		Facts:     []model.Fact{{Text: "Mike was at the restaurant.", EpisodeID: ep.ID, Seq: ep.Seq, Timestamp: ts}},
		FirstSeen: ts,
		LastSeen:  ts,
	}
	return model.MergePlan{
		EntityInserts:       []model.Entity{mike, place},
		RelationshipInserts: []model.Relationship{rel},
	}
}

func TestEpisodeStatements(t *testing.T) {
	ep := model.Episode{ID: model.EpisodeID("s1", 2), SessionID: "s1", Seq: 2, Content: "Q: x\nA: y", Source: model.EpisodeSource, Timestamp: ts}
	stmts := EpisodeStatements(ep, samplePlan(ep))

	// session, episode, HAS_EPISODE, NEXT_EPISODE, 2x(entity, MENTIONS), relationship
	require.Len(t, stmts, 9)
	assert.Equal(t, driver.MergeSessionQuery, stmts[0].Query)
	assert.Equal(t, driver.MergeEpisodeQuery, stmts[1].Query)
	assert.Equal(t, int64(2), stmts[1].Params["seq"])
	assert.Equal(t, driver.MergeNextEpisodeEdgeQuery, stmts[3].Query)
	assert.Equal(t, model.EpisodeID("s1", 1), stmts[3].Params["source_uuid"])
	assert.Equal(t, driver.MergeEntityNodeQuery, stmts[4].Query)
	assert.Equal(t, "2024-03-01T18:00:00.000000000Z", stmts[4].Params["first_seen"])
	assert.Equal(t, driver.MergeMentionsEdgeQuery, stmts[5].Query)

	rel := stmts[8]
	assert.Equal(t, driver.MergeRelationshipQuery, rel.Query)
	assert.Equal(t, []string{"Mike was at the restaurant."}, rel.Params["fact_texts"])
	assert.Equal(t, []int64{2}, rel.Params["fact_seqs"])
	assert.Equal(t, "Mike was at the restaurant.", rel.Params["fact"])

	first := EpisodeStatements(model.Episode{ID: model.EpisodeID("s1", 1), SessionID: "s1", Seq: 1}, model.MergePlan{})
	assert.Len(t, first, 3, "first episode has no predecessor")
}

func TestCypherStore_ApplyEpisode(t *testing.T) {
	mock := &MockDriver{}
	s := NewCypherStore(mock, logger.Discard())
	ep := model.Episode{ID: model.EpisodeID("s1", 1), SessionID: "s1", Seq: 1, Timestamp: ts}

	require.NoError(t, s.ApplyEpisode(context.Background(), ep, samplePlan(ep)))
	require.Len(t, mock.Written, 1, "one transaction per episode")

	mock.Err = errors.New("connection reset")
	err := s.ApplyEpisode(context.Background(), ep, samplePlan(ep))
	assert.ErrorContains(t, err, "connection reset")
}

func TestCypherStore_LoadView(t *testing.T) {
	ep := model.EpisodeID("s1", 1)
	stamp := "2024-03-01T18:00:00.000000000Z"
	relKeys := []string{
		"uuid", "key", "name", "source_uuid", "target_uuid", "source_key", "target_key",
		"fact_texts", "fact_episodes", "fact_seqs", "fact_times", "first_seen", "last_seen",
	}
	relValues := []any{
		"r1", "mike|person -> x|place #WAS_AT", "WAS_AT", "e1", "e2", "mike|person", "x|place",
		[]any{"one", "two"}, []any{ep, "ep2"}, []any{int64(1), int64(2)}, []any{stamp, "bad"},
		stamp, stamp,
	}
	mock := &MockDriver{Results: map[string]neo4j.EagerResult{
		driver.GetSessionEntitiesQuery: {Records: []*neo4j.Record{{
			Keys:   []string{"uuid", "key", "name", "entity_type", "summary", "first_seen", "last_seen", "episodes"},
			Values: []any{"e1", "mike|person", "Mike", "Person", "friend", stamp, stamp, []any{ep}},
		}}},
		driver.GetSessionRelationshipsQuery: {Records: []*neo4j.Record{{Keys: relKeys, Values: relValues}}},
	}}
	s := NewCypherStore(mock, logger.Discard())

	view, err := s.LoadView(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", mock.QueryParams[0]["group_id"])

	mike := view.Entities["mike|person"]
	assert.Equal(t, "e1", mike.ID)
	assert.Equal(t, ts, mike.FirstSeen)
	assert.Equal(t, []string{ep}, mike.Episodes)

	rel := view.Relationships["mike|person -> x|place #WAS_AT"]
	require.Len(t, rel.Facts, 2)
	assert.Equal(t, int64(2), rel.Facts[1].Seq)
	assert.True(t, rel.Facts[1].Timestamp.IsZero())
	assert.Equal(t, "two", rel.LatestFact().Text)
}

func TestCypherStore_Subgraph(t *testing.T) {
	mock := &MockDriver{Results: map[string]neo4j.EagerResult{
		driver.CountSessionGraphQuery: {Records: []*neo4j.Record{{Keys: []string{"nodes", "edges"}, Values: []any{int64(120), int64(80)}}}},
		driver.GetRecentEntitiesQuery: {Records: []*neo4j.Record{
			{Keys: []string{"uuid", "key", "name"}, Values: []any{"e1", "a|person", "A"}},
			{Keys: []string{"uuid", "key", "name"}, Values: []any{"e2", "b|person", "B"}},
		}},
	}}
	s := NewCypherStore(mock, logger.Discard())

	sg, err := s.Subgraph(context.Background(), "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, 120, sg.TotalNodes)
	assert.Equal(t, 80, sg.TotalEdges)
	assert.Len(t, sg.Entities, 2)
	assert.Empty(t, sg.Relationships)
	assert.Equal(t, int64(2), mock.QueryParams[1]["limit"])
	assert.Equal(t, []string{"e1", "e2"}, mock.QueryParams[2]["uuids"])
}

func TestCypherStore_SubgraphEmpty(t *testing.T) {
	mock := &MockDriver{}
	s := NewCypherStore(mock, logger.Discard())

	sg, err := s.Subgraph(context.Background(), "s1", 50)
	require.NoError(t, err)
	assert.Zero(t, sg.TotalNodes)
	assert.Empty(t, sg.Entities)
	assert.Len(t, mock.Queries, 2, "edge query skipped when there are no nodes")
}

func TestCypherStore_ApplyEpisodeConflict(t *testing.T) {
	ep := model.Episode{ID: model.EpisodeID("s1", 1), SessionID: "s1", Seq: 1, Content: "Q: a\nA: b", Timestamp: ts}
	mock := &MockDriver{Results: map[string]neo4j.EagerResult{
		driver.GetEpisodeContentQuery: {Records: []*neo4j.Record{{Keys: []string{"content"}, Values: []any{"Q: a\nA: b"}}}},
	}}
	s := NewCypherStore(mock, logger.Discard())

	require.NoError(t, s.ApplyEpisode(context.Background(), ep, samplePlan(ep)), "replay of the same exchange")

	other := ep
	other.Content = "Q: a\nA: something else"
	err := s.ApplyEpisode(context.Background(), other, samplePlan(other))
	assert.ErrorIs(t, err, model.ErrSequenceConflict)
	assert.Len(t, mock.Written, 1, "conflicting episode is not written")
}

func TestCypherStore_UnscopedAndChanges(t *testing.T) {
	mock := &MockDriver{Results: map[string]neo4j.EagerResult{
		driver.GetRecentEntitiesQuery: {Records: []*neo4j.Record{
			{Keys: []string{"uuid", "key", "name", "group_id"}, Values: []any{"e1", "a|person", "A", "s7"}},
		}},
		driver.GetChangedEntitiesQuery: {Records: []*neo4j.Record{
			{Keys: []string{"uuid", "key", "name"}, Values: []any{"e2", "b|person", "B"}},
		}},
	}}
	s := NewCypherStore(mock, logger.Discard())

	sg, err := s.Subgraph(context.Background(), "", 5)
	require.NoError(t, err)
	require.Len(t, sg.Entities, 1)
	assert.Equal(t, "s7", sg.Entities[0].SessionID, "session comes from the record")
	assert.Equal(t, "", mock.QueryParams[0]["group_id"])

	sg, err = s.Changes(context.Background(), "s1", ts, 5)
	require.NoError(t, err)
	require.Len(t, sg.Entities, 1)
	assert.Equal(t, "s1", sg.Entities[0].SessionID)
	assert.Equal(t, driver.CountChangedQuery, mock.Queries[3])
	assert.Equal(t, "2024-03-01T18:00:00.000000000Z", mock.QueryParams[3]["since"])
}
