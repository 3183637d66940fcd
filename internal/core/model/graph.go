package model

import "sort"

// GraphView is the current entity/relationship state of one session graph,
// keyed by identity key.
type GraphView struct {
	SessionID     string
	Entities      map[string]Entity
	Relationships map[string]Relationship
}

func NewGraphView(sessionID string) *GraphView {
	return &GraphView{
		SessionID:     sessionID,
		Entities:      make(map[string]Entity),
		Relationships: make(map[string]Relationship),
	}
}

// EntityByID looks an entity up by its stable ID.
func (v *GraphView) EntityByID(id string) (Entity, bool) {
	for _, e := range v.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}

// SortedEntities returns entities ordered by first-seen time, then key.
func (v *GraphView) SortedEntities() []Entity {
	out := make([]Entity, 0, len(v.Entities))
	for _, e := range v.Entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// SortedRelationships returns relationships ordered by key.
func (v *GraphView) SortedRelationships() []Relationship {
	out := make([]Relationship, 0, len(v.Relationships))
	for _, r := range v.Relationships {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Mention is a reference the resolver refused to bind to an entity, usually a
// pronoun or a vague description.
type Mention struct {
	Text      string `json:"text"`
	EpisodeID string `json:"episode_id"`
	Reason    string `json:"reason"`
}

// MergePlan is the typed outcome of entity resolution for one episode. Every
// entity and relationship carries its full post-merge state.
type MergePlan struct {
	EntityInserts       []Entity
	EntityUpdates       []Entity
	RelationshipInserts []Relationship
	RelationshipUpdates []Relationship
	Unresolved          []Mention
}

// Entities returns inserts followed by updates.
func (p MergePlan) Entities() []Entity {
	out := make([]Entity, 0, len(p.EntityInserts)+len(p.EntityUpdates))
	out = append(out, p.EntityInserts...)
	return append(out, p.EntityUpdates...)
}

// Relationships returns inserts followed by updates.
func (p MergePlan) Relationships() []Relationship {
	out := make([]Relationship, 0, len(p.RelationshipInserts)+len(p.RelationshipUpdates))
	out = append(out, p.RelationshipInserts...)
	return append(out, p.RelationshipUpdates...)
}
