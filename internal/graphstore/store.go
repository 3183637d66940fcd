// Package graphstore persists session knowledge graphs. The Cypher store
// talks to Memgraph (or Neo4j) through the bolt driver; the memory store backs
// tests and deployments without a graph database.
package graphstore

import (
	"context"
	"errors"
	"time"

	"github.com/agenthands/inquest/internal/core/model"
)

var ErrEntityNotFound = errors.New("entity not found")

type Store interface {
	// LoadView returns the current entities and relationships of a session.
	LoadView(ctx context.Context, sessionID string) (*model.GraphView, error)
	// ApplyEpisode writes the episode node and every element of the plan
	// atomically. Re-applying an episode is harmless; applying a different
	// exchange under an existing episode id fails with
	// model.ErrSequenceConflict.
	ApplyEpisode(ctx context.Context, episode model.Episode, plan model.MergePlan) error
	// Subgraph returns up to limit most recently introduced entities and the
	// relationships among them. An empty sessionID spans every session.
	Subgraph(ctx context.Context, sessionID string, limit int) (Subgraph, error)
	// Neighborhood returns the entities named name and everything within
	// depth hops of them, nearest first. It fails with ErrEntityNotFound
	// when the session has no entity of that name.
	Neighborhood(ctx context.Context, sessionID, name string, depth, limit int) (Subgraph, error)
	// Changes returns entities added or updated after since, most recent
	// first. An empty sessionID spans every session.
	Changes(ctx context.Context, sessionID string, since time.Time, limit int) (Subgraph, error)
	Ping(ctx context.Context) error
}

type Subgraph struct {
	Entities      []model.Entity
	Relationships []model.Relationship
	TotalNodes    int
	TotalEdges    int
}
