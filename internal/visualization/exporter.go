// Package visualization turns a bounded slice of a session graph into the
// node/edge DTO consumed by graph viewers and image renderers.
package visualization

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/graphstore"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// PlaceholderReference is returned by Export when rendering fails.
const PlaceholderReference = "graph-unavailable"

type Exporter struct {
	store    graphstore.Store
	renderer Renderer
	timeout  time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewExporter(store graphstore.Store, renderer Renderer, timeout time.Duration, log logrus.FieldLogger) *Exporter {
	return &Exporter{
		store:    store,
		renderer: renderer,
		timeout:  timeout,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ClampLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Snapshot returns the most recently introduced entities of a session. An
// empty sessionID spans every session.
func (e *Exporter) Snapshot(ctx context.Context, sessionID string, limit int) (model.Snapshot, error) {
	limit = ClampLimit(limit)
	sub, err := e.store.Subgraph(ctx, sessionID, limit)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load subgraph: %w", err)
	}
	return e.build(sub, sessionID, limit), nil
}

// Neighborhood returns the entities around the one called name. depth is
// clamped to 1..graphstore.MaxDepth. The error wraps
// graphstore.ErrEntityNotFound when no entity has that name.
func (e *Exporter) Neighborhood(ctx context.Context, sessionID, name string, depth, limit int) (model.Snapshot, error) {
	limit = ClampLimit(limit)
	depth = min(max(depth, 1), graphstore.MaxDepth)
	sub, err := e.store.Neighborhood(ctx, sessionID, name, depth, limit)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load neighborhood of %q: %w", name, err)
	}
	return e.build(sub, sessionID, limit), nil
}

// Changes returns the entities added or updated after since.
func (e *Exporter) Changes(ctx context.Context, sessionID string, since time.Time, limit int) (model.Snapshot, error) {
	limit = ClampLimit(limit)
	sub, err := e.store.Changes(ctx, sessionID, since, limit)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load changes: %w", err)
	}
	return e.build(sub, sessionID, limit), nil
}

func (e *Exporter) build(sub graphstore.Subgraph, sessionID string, limit int) model.Snapshot {
	snap := model.Snapshot{
		Nodes: make([]model.GraphNode, 0, len(sub.Entities)),
		Edges: make([]model.GraphEdge, 0, len(sub.Relationships)),
		Metadata: model.SnapshotMetadata{
			TotalNodes: sub.TotalNodes,
			TotalEdges: sub.TotalEdges,
			Limit:      limit,
			SessionID:  sessionID,
			Timestamp:  e.now(),
		},
	}
	for _, ent := range sub.Entities {
		snap.Nodes = append(snap.Nodes, model.GraphNode{
			ID:    ent.ID,
			Label: ent.Name,
			Type:  ent.Type,
			Metadata: map[string]any{
				"summary":    ent.Summary,
				"first_seen": ent.FirstSeen,
				"last_seen":  ent.LastSeen,
				"mentions":   len(ent.Episodes),
				"session_id": ent.SessionID,
			},
		})
	}
	for _, rel := range sub.Relationships {
		facts := make([]string, 0, len(rel.Facts))
		for _, f := range rel.Facts {
			facts = append(facts, f.Text)
		}
		snap.Edges = append(snap.Edges, model.GraphEdge{
			From:  rel.FromID,
			To:    rel.ToID,
			Label: rel.Label,
			Metadata: map[string]any{
				"facts":     facts,
				"last_seen": rel.LastSeen,
			},
		})
	}
	communities := Communities(snap.Nodes, snap.Edges)
	for i := range snap.Nodes {
		snap.Nodes[i].Metadata["community"] = communities[snap.Nodes[i].ID]
	}
	return snap
}

// Export builds the snapshot and hands it to the renderer. Failures are
// logged and yield PlaceholderReference; the snapshot is returned whenever
// it could be built.
func (e *Exporter) Export(ctx context.Context, sessionID string, limit int) (string, model.Snapshot) {
	log := e.log.WithField("session_id", sessionID)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	snap, err := e.Snapshot(ctx, sessionID, limit)
	if err != nil {
		log.WithError(fmt.Errorf("%w: %w", model.ErrRenderFailure, err)).Warn("graph snapshot failed")
		return PlaceholderReference, model.Snapshot{
			Nodes: []model.GraphNode{},
			Edges: []model.GraphEdge{},
		}
	}

	ref, err := e.renderer.Render(ctx, snap)
	if err != nil {
		log.WithError(fmt.Errorf("%w: %w", model.ErrRenderFailure, err)).Warn("graph render failed")
		return PlaceholderReference, snap
	}
	return ref, snap
}
