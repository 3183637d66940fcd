package model

import (
	"strconv"

	"github.com/google/uuid"
)

// namespace for name-based (v5) identifiers of graph elements.
var namespace = uuid.MustParse("6f1c54d4-2b0e-4f5e-9a57-3f0f6c2a9d11")

// EpisodeID is stable for a (session, seq) pair so replaying a transcript
// re-applies the same episode instead of creating a new one.
func EpisodeID(sessionID string, seq int64) string {
	return uuid.NewSHA1(namespace, []byte("episode\x00"+sessionID+"\x00"+strconv.FormatInt(seq, 10))).String()
}

func EntityID(sessionID, key string) string {
	return uuid.NewSHA1(namespace, []byte("entity\x00"+sessionID+"\x00"+key)).String()
}

func RelationshipID(sessionID, key string) string {
	return uuid.NewSHA1(namespace, []byte("relationship\x00"+sessionID+"\x00"+key)).String()
}

// MessageID identifies the relational message at a position of a session,
// so a retried mirror write targets the same rows.
func MessageID(sessionID string, position int64) string {
	return uuid.NewSHA1(namespace, []byte("message\x00"+sessionID+"\x00"+strconv.FormatInt(position, 10))).String()
}
