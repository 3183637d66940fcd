package model

import "time"

type Session struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TranscriptEntry is one immutable question/answer pair. Seq starts at 1 and
// is strictly increasing within a session.
type TranscriptEntry struct {
	Seq       int64     `json:"seq"`
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Content renders the entry the way it is committed as an episode.
func (e TranscriptEntry) Content() string {
	return "Q: " + e.Question + "\nA: " + e.Answer
}

const (
	RoleQuestion = "investigator"
	RoleAnswer   = "suspect"
)

// Message is the relational mirror's unit. Two are written per transcript
// entry, question first.
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Position  int64          `json:"position"`
	CreatedAt time.Time      `json:"created_at"`
}
