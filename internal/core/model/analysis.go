package model

// FindingKind orders findings by investigative value, most valuable first.
type FindingKind int

const (
	FindingConflict FindingKind = iota
	FindingIdentity
	FindingTime
	FindingPlace
	FindingEvent
)

func (k FindingKind) String() string {
	switch k {
	case FindingConflict:
		return "conflict"
	case FindingIdentity:
		return "identity"
	case FindingTime:
		return "time"
	case FindingPlace:
		return "place"
	case FindingEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Finding is a gap or contradiction detected in the transcript or graph.
type Finding struct {
	Kind     FindingKind `json:"-"`
	KindName string      `json:"kind"`
	Detail   string      `json:"detail"`
	Question string      `json:"question"`
	Seqs     []int64     `json:"seqs,omitempty"` // transcript entries involved
}

// SyncStatus reports the outcome of the best-effort dual write.
type SyncStatus struct {
	GraphOK         bool   `json:"graphOk"`
	GraphDegraded   bool   `json:"graphDegraded"`
	RelationalOK    bool   `json:"relationalOk"`
	GraphError      string `json:"graphError,omitempty"`
	RelationalError string `json:"relationalError,omitempty"`
}

// AnalysisResult is computed per submission and never persisted.
type AnalysisResult struct {
	Narrative          string     `json:"analysis"`
	SuggestedQuestions []string   `json:"suggestedQuestions"`
	Findings           []Finding  `json:"findings,omitempty"`
	Status             SyncStatus `json:"status"`
	Degraded           bool       `json:"degraded"`
}

// HasConflict reports whether any finding is a contradiction.
func (r AnalysisResult) HasConflict() bool {
	for _, f := range r.Findings {
		if f.Kind == FindingConflict {
			return true
		}
	}
	return false
}

func NewFinding(kind FindingKind, detail, question string, seqs ...int64) Finding {
	return Finding{
		Kind:     kind,
		KindName: kind.String(),
		Detail:   detail,
		Question: question,
		Seqs:     seqs,
	}
}
