package model

import "time"

// Fact is one assertion supporting a relationship. Every fact is kept so that
// later statements can be checked against earlier ones.
type Fact struct {
	Text      string    `json:"text"`
	EpisodeID string    `json:"episode_id"`
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// Relationship is a deduplicated, provenance-tracked edge. Its identity key is
// (FromKey, ToKey, Label).
type Relationship struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	SessionID string    `json:"session_id"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	FromKey   string    `json:"from_key"`
	ToKey     string    `json:"to_key"`
	Label     string    `json:"label"`
	Facts     []Fact    `json:"facts"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Clone returns a deep copy.
func (r Relationship) Clone() Relationship {
	r.Facts = append([]Fact(nil), r.Facts...)
	return r
}

// LatestFact returns the most recently appended fact, or the zero Fact.
func (r Relationship) LatestFact() Fact {
	if len(r.Facts) == 0 {
		return Fact{}
	}
	return r.Facts[len(r.Facts)-1]
}

// HasFact reports whether the same episode already contributed text.
func (r Relationship) HasFact(episodeID, text string) bool {
	for _, f := range r.Facts {
		if f.EpisodeID == episodeID && f.Text == text {
			return true
		}
	}
	return false
}
