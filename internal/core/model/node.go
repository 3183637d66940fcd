package model

import "time"

// Entity is a deduplicated node of a session graph. Key is the identity key
// (normalized name + type); ID is derived from it and stays stable across
// rebuilds.
type Entity struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Summary   string    `json:"summary,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Episodes  []string  `json:"episodes"` // episode IDs that mention the entity
}

// Episode is the graph-commit unit derived from a single transcript entry.
type Episode struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Seq             int64     `json:"seq"`
	Content         string    `json:"content"`
	Source          string    `json:"source"`
	Timestamp       time.Time `json:"timestamp"`
	EntityIDs       []string  `json:"entity_ids"`
	RelationshipIDs []string  `json:"relationship_ids"`
	Degraded        bool      `json:"degraded"`
}

const (
	EntityTypePerson = "Person"
	EntityTypePlace  = "Place"
	EntityTypeTime   = "Time"
	EntityTypeEvent  = "Event"
	EntityTypeOther  = "Entity"
)

// SpeakerName is the entity that stands for the person being interviewed.
// First-person statements ("I was at ...") are attributed to it.
const SpeakerName = "Suspect"

// EpisodeSource tags every episode written by the submission pipeline.
const EpisodeSource = "investigation_room"

// Clone returns a deep copy.
func (e Entity) Clone() Entity {
	e.Episodes = append([]string(nil), e.Episodes...)
	return e
}

// HasEpisode reports whether the entity was already mentioned by episodeID.
func (e Entity) HasEpisode(episodeID string) bool {
	for _, id := range e.Episodes {
		if id == episodeID {
			return true
		}
	}
	return false
}
