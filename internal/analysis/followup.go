package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agenthands/inquest/internal/core/model"
)

var wordPattern = regexp.MustCompile(`[A-Za-z]+`)

// words that say nothing about what a question is about
var topicStops = map[string]bool{
	"what": true, "when": true, "where": true, "which": true, "who": true, "whom": true,
	"time": true, "day": true, "date": true, "hour": true, "exactly": true, "again": true,
	"were": true, "was": true, "you": true, "your": true, "did": true, "does": true,
	"that": true, "this": true, "there": true, "then": true, "with": true, "have": true,
	"had": true, "can": true, "could": true, "would": true, "will": true, "about": true,
	"confirm": true, "tell": true, "please": true, "say": true, "said": true, "really": true,
	"night": true, "morning": true, "evening": true, "afternoon": true, "the": true, "and": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true,
	"saturday": true, "sunday": true, "from": true, "into": true, "been": true, "some": true,
}

// topics returns the stemmed content words of a question.
func topics(question string) map[string]bool {
	out := map[string]bool{}
	for _, w := range wordPattern.FindAllString(question, -1) {
		w = strings.ToLower(w)
		if len(w) < 3 || topicStops[w] {
			continue
		}
		w = stem(w)
		if len(w) >= 3 && !topicStops[w] {
			out[w] = true
		}
	}
	return out
}

func stem(w string) string {
	for _, suffix := range []string{"ing", "ed", "s"} {
		if strings.HasSuffix(w, suffix) && len(w)-len(suffix) >= 3 {
			return strings.TrimSuffix(w, suffix)
		}
	}
	return w
}

func overlap(a, b map[string]bool) []string {
	var out []string
	for w := range a {
		if b[w] {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

// answerConflicts compares the answers to questions about the same matter
// ("What time did you meet Mike?", "Can you confirm the meeting time?") and
// reports those that disagree on the day or time. It catches follow-ups whose
// answers name nobody and so never reach the graph as a fact. Pairs already
// reported in known are skipped.
func answerConflicts(entries []model.TranscriptEntry, known []model.Finding) []model.Finding {
	covered := map[[2]int64]bool{}
	for _, f := range known {
		if len(f.Seqs) == 2 {
			covered[[2]int64{f.Seqs[0], f.Seqs[1]}] = true
		}
	}

	sigs := make([]signature, len(entries))
	subjects := make([]map[string]bool, len(entries))
	for i, e := range entries {
		sigs[i] = temporalSignature(e.Answer)
		subjects[i] = topics(e.Question)
	}

	var out []model.Finding
	for j := len(entries) - 1; j > 0; j-- {
		if sigs[j].empty() || len(subjects[j]) == 0 {
			continue
		}
	earlier:
		for i := j - 1; i >= 0; i-- {
			shared := overlap(subjects[i], subjects[j])
			if sigs[i].empty() || len(shared) == 0 {
				continue
			}
			for _, c := range []struct {
				what     string
				conflict func(a, b signature) bool
			}{{"day", dayConflict}, {"time", timeConflict}} {
				if !c.conflict(sigs[i], sigs[j]) {
					continue
				}
				a, b := entries[i].Seq, entries[j].Seq
				if !covered[[2]int64{a, b}] {
					covered[[2]int64{a, b}] = true
					was, now := describe(sigs[i], c.what), describe(sigs[j], c.what)
					matter := strings.Join(shared, ", ")
					out = append(out, model.NewFinding(model.FindingConflict,
						fmt.Sprintf("Answers %d and %d disagree on the %s of the same matter (%s): %s vs %s.", a, b, c.what, matter, was, now),
						fmt.Sprintf("Earlier you said %s, but now you say %s. Which %s is correct?", was, now, c.what),
						a, b))
				}
				break earlier
			}
		}
	}
	return out
}
