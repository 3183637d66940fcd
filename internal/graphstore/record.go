package graphstore

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/inquest/internal/core/model"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return time.Time{}
		}
	}
	return t.UTC()
}

func getString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func getStrings(rec *neo4j.Record, key string) []string {
	v, _ := rec.Get(key)
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, _ := item.(string)
			out = append(out, s)
		}
		return out
	}
	return nil
}

func getInt(rec *neo4j.Record, key string) int64 {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func getInts(rec *neo4j.Record, key string) []int64 {
	v, _ := rec.Get(key)
	switch list := v.(type) {
	case []int64:
		return list
	case []any:
		out := make([]int64, 0, len(list))
		for _, item := range list {
			n, _ := item.(int64)
			out = append(out, n)
		}
		return out
	}
	return nil
}

// sessionOf prefers the record's own group_id, which unscoped queries return.
func sessionOf(rec *neo4j.Record, sessionID string) string {
	if g := getString(rec, "group_id"); g != "" {
		return g
	}
	return sessionID
}

func entityFromRecord(rec *neo4j.Record, sessionID string) model.Entity {
	return model.Entity{
		ID:        getString(rec, "uuid"),
		Key:       getString(rec, "key"),
		SessionID: sessionOf(rec, sessionID),
		Name:      getString(rec, "name"),
		Type:      getString(rec, "entity_type"),
		Summary:   getString(rec, "summary"),
		FirstSeen: parseTime(getString(rec, "first_seen")),
		LastSeen:  parseTime(getString(rec, "last_seen")),
		Episodes:  getStrings(rec, "episodes"),
	}
}

func relationshipFromRecord(rec *neo4j.Record, sessionID string) model.Relationship {
	texts := getStrings(rec, "fact_texts")
	episodes := getStrings(rec, "fact_episodes")
	seqs := getInts(rec, "fact_seqs")
	times := getStrings(rec, "fact_times")

	facts := make([]model.Fact, len(texts))
	for i, text := range texts {
		facts[i].Text = text
		if i < len(episodes) {
			facts[i].EpisodeID = episodes[i]
		}
		if i < len(seqs) {
			facts[i].Seq = seqs[i]
		}
		if i < len(times) {
			facts[i].Timestamp = parseTime(times[i])
		}
	}

	return model.Relationship{
		ID:        getString(rec, "uuid"),
		Key:       getString(rec, "key"),
		SessionID: sessionOf(rec, sessionID),
		FromID:    getString(rec, "source_uuid"),
		ToID:      getString(rec, "target_uuid"),
		FromKey:   getString(rec, "source_key"),
		ToKey:     getString(rec, "target_key"),
		Label:     getString(rec, "name"),
		Facts:     facts,
		FirstSeen: parseTime(getString(rec, "first_seen")),
		LastSeen:  parseTime(getString(rec, "last_seen")),
	}
}
