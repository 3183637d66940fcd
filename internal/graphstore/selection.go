package graphstore

import (
	"sort"
	"strings"
	"time"

	"github.com/agenthands/inquest/internal/core/model"
)

// MaxDepth bounds neighborhood traversals.
const MaxDepth = 4

// among keeps the relationships whose both endpoints are in entities.
func among(entities []model.Entity, rels []model.Relationship) []model.Relationship {
	kept := make(map[string]bool, len(entities))
	for _, e := range entities {
		kept[e.ID] = true
	}
	var out []model.Relationship
	for _, r := range rels {
		if kept[r.FromID] && kept[r.ToID] {
			out = append(out, r)
		}
	}
	return out
}

func truncate(entities []model.Entity, limit int) []model.Entity {
	if limit >= 0 && len(entities) > limit {
		return entities[:limit]
	}
	return entities
}

// recent orders entities by introduction, newest first.
func recent(entities []model.Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if !entities[i].FirstSeen.Equal(entities[j].FirstSeen) {
			return entities[i].FirstSeen.After(entities[j].FirstSeen)
		}
		if entities[i].Key != entities[j].Key {
			return entities[i].Key < entities[j].Key
		}
		return entities[i].SessionID < entities[j].SessionID
	})
}

// neighborhood walks relationships in both directions from every entity
// named name, up to depth hops.
func neighborhood(view *model.GraphView, name string, depth, limit int) (Subgraph, error) {
	depth = min(max(depth, 0), MaxDepth)
	want := strings.ToLower(strings.Join(strings.Fields(name), " "))

	dist := map[string]int{}
	var frontier []string
	for _, e := range view.SortedEntities() {
		if strings.ToLower(e.Name) == want {
			dist[e.Key] = 0
			frontier = append(frontier, e.Key)
		}
	}
	if len(frontier) == 0 {
		return Subgraph{}, ErrEntityNotFound
	}

	adjacent := map[string][]string{}
	for _, r := range view.SortedRelationships() {
		adjacent[r.FromKey] = append(adjacent[r.FromKey], r.ToKey)
		adjacent[r.ToKey] = append(adjacent[r.ToKey], r.FromKey)
	}
	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []string
		for _, k := range frontier {
			for _, n := range adjacent[k] {
				if _, seen := dist[n]; seen {
					continue
				}
				if _, ok := view.Entities[n]; !ok {
					continue
				}
				dist[n] = d
				next = append(next, n)
			}
		}
		frontier = next
	}

	entities := make([]model.Entity, 0, len(dist))
	for k := range dist {
		entities = append(entities, view.Entities[k])
	}
	sort.Slice(entities, func(i, j int) bool {
		if dist[entities[i].Key] != dist[entities[j].Key] {
			return dist[entities[i].Key] < dist[entities[j].Key]
		}
		return entities[i].Key < entities[j].Key
	})

	all := among(entities, view.SortedRelationships())
	entities = truncate(entities, limit)
	return Subgraph{
		Entities:      entities,
		Relationships: among(entities, all),
		TotalNodes:    len(dist),
		TotalEdges:    len(all),
	}, nil
}

// changedSince keeps the entities touched after since, most recently touched
// first, and the relationships among them.
func changedSince(entities []model.Entity, rels []model.Relationship, since time.Time, limit int) Subgraph {
	var changed []model.Entity
	for _, e := range entities {
		if e.LastSeen.After(since) {
			changed = append(changed, e)
		}
	}
	sort.SliceStable(changed, func(i, j int) bool {
		if !changed[i].LastSeen.Equal(changed[j].LastSeen) {
			return changed[i].LastSeen.After(changed[j].LastSeen)
		}
		return changed[i].Key < changed[j].Key
	})

	sg := Subgraph{TotalNodes: len(changed)}
	for _, r := range rels {
		if r.LastSeen.After(since) {
			sg.TotalEdges++
		}
	}
	sg.Entities = truncate(changed, limit)
	sg.Relationships = among(sg.Entities, rels)
	return sg
}
