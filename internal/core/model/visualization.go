package model

import "time"

type GraphNode struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
}

type GraphEdge struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Label    string         `json:"label"`
	Metadata map[string]any `json:"metadata"`
}

type SnapshotMetadata struct {
	TotalNodes int       `json:"totalNodes"`
	TotalEdges int       `json:"totalEdges"`
	Limit      int       `json:"limit"`
	SessionID  string    `json:"sessionId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Snapshot is the renderer-facing DTO of a bounded slice of the graph.
type Snapshot struct {
	Nodes    []GraphNode      `json:"nodes"`
	Edges    []GraphEdge      `json:"edges"`
	Metadata SnapshotMetadata `json:"metadata"`
}
