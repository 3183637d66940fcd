package graphstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/core/resolution"
)

// MemoryStore keeps every session graph in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	views    map[string]*model.GraphView
	episodes map[string]map[int64]model.Episode
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		views:    make(map[string]*model.GraphView),
		episodes: make(map[string]map[int64]model.Episode),
	}
}

func (s *MemoryStore) LoadView(ctx context.Context, sessionID string) (*model.GraphView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := model.NewGraphView(sessionID)
	if view, ok := s.views[sessionID]; ok {
		resolution.Apply(out, model.MergePlan{
			EntityUpdates:       view.SortedEntities(),
			RelationshipUpdates: view.SortedRelationships(),
		})
	}
	return out, nil
}

func (s *MemoryStore) ApplyEpisode(ctx context.Context, episode model.Episode, plan model.MergePlan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.episodes[episode.SessionID][episode.Seq]; ok && prev.Content != episode.Content {
		return fmt.Errorf("%w: episode %s", model.ErrSequenceConflict, episode.ID)
	}

	view, ok := s.views[episode.SessionID]
	if !ok {
		view = model.NewGraphView(episode.SessionID)
		s.views[episode.SessionID] = view
	}
	resolution.Apply(view, plan)

	if s.episodes[episode.SessionID] == nil {
		s.episodes[episode.SessionID] = make(map[int64]model.Episode)
	}
	ep := episode
	ep.EntityIDs = nil
	ep.RelationshipIDs = nil
	for _, e := range plan.Entities() {
		ep.EntityIDs = append(ep.EntityIDs, e.ID)
	}
	for _, r := range plan.Relationships() {
		ep.RelationshipIDs = append(ep.RelationshipIDs, r.ID)
	}
	s.episodes[episode.SessionID][episode.Seq] = ep
	return nil
}

// Episodes returns the committed episodes of a session in sequence order.
func (s *MemoryStore) Episodes(sessionID string) []model.Episode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Episode, 0, len(s.episodes[sessionID]))
	for _, ep := range s.episodes[sessionID] {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// scope copies the entities and relationships of one session, or of all
// sessions when sessionID is empty.
func (s *MemoryStore) scope(ctx context.Context, sessionID string) ([]model.Entity, []model.Relationship, error) {
	if sessionID != "" {
		view, err := s.LoadView(ctx, sessionID)
		if err != nil {
			return nil, nil, err
		}
		return view.SortedEntities(), view.SortedRelationships(), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.views))
	for id := range s.views {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		entities []model.Entity
		rels     []model.Relationship
	)
	for _, id := range ids {
		for _, e := range s.views[id].SortedEntities() {
			entities = append(entities, e.Clone())
		}
		for _, r := range s.views[id].SortedRelationships() {
			rels = append(rels, r.Clone())
		}
	}
	return entities, rels, nil
}

func (s *MemoryStore) Subgraph(ctx context.Context, sessionID string, limit int) (Subgraph, error) {
	entities, rels, err := s.scope(ctx, sessionID)
	if err != nil {
		return Subgraph{}, err
	}
	sg := Subgraph{TotalNodes: len(entities), TotalEdges: len(rels)}

	recent(entities)
	sg.Entities = truncate(entities, limit)
	sg.Relationships = among(sg.Entities, rels)
	return sg, nil
}

func (s *MemoryStore) Neighborhood(ctx context.Context, sessionID, name string, depth, limit int) (Subgraph, error) {
	view, err := s.LoadView(ctx, sessionID)
	if err != nil {
		return Subgraph{}, err
	}
	return neighborhood(view, name, depth, limit)
}

func (s *MemoryStore) Changes(ctx context.Context, sessionID string, since time.Time, limit int) (Subgraph, error) {
	entities, rels, err := s.scope(ctx, sessionID)
	if err != nil {
		return Subgraph{}, err
	}
	return changedSince(entities, rels, since, limit), nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
