package model

// CandidateEntity is an entity mention returned by the extraction capability.
type CandidateEntity struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Summary string `json:"summary,omitempty"`
}

// CandidateRelationship links two mentions by name.
type CandidateRelationship struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"relation_type"`
	Fact   string `json:"fact"`
}

// Extraction is the structured output expected from the extraction prompt.
type Extraction struct {
	Entities      []CandidateEntity       `json:"entities"`
	Relationships []CandidateRelationship `json:"relationships"`
}

// Empty reports whether nothing was extracted.
func (e Extraction) Empty() bool {
	return len(e.Entities) == 0 && len(e.Relationships) == 0
}
