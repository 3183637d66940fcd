package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agenthands/inquest/internal/core/model"
)

var (
	vagueIdentity = regexp.MustCompile(`(?i)\b(a friend|my friend|a buddy|someone|somebody|some guy|a guy|this guy|that guy|a man|a woman|some people|a couple of people|a person)\b`)
	vagueTime     = regexp.MustCompile(`(?i)\b(later on|later|earlier|at some point|sometime|some time|a while|around then|after that|before that|for a bit)\b`)
	vaguePlace    = regexp.MustCompile(`(?i)\b(somewhere|some place|someplace|a place|over there|around town|nearby|his place|her place|their place|a friend's place)\b`)
)

// Findings runs every deterministic check over the transcript and the
// session graph and returns the findings ranked most valuable first:
// conflicts, identity, time, place, then events without a time. Within a
// kind, findings about later statements come first.
func Findings(entries []model.TranscriptEntry, view *model.GraphView) []model.Finding {
	if view == nil {
		view = model.NewGraphView("")
	}
	seqOf := make(map[string]int64, len(entries))
	for _, e := range entries {
		seqOf[model.EpisodeID(e.SessionID, e.Seq)] = e.Seq
	}

	var out []model.Finding
	out = append(out, conflicts(view)...)
	out = append(out, answerConflicts(entries, out)...)
	out = append(out, singleNamePersons(view, seqOf)...)
	out = append(out, vaguePhrases(entries, vagueIdentity, model.FindingIdentity,
		"The identity of %q is not established.", "You mentioned %q. Who exactly is that, and what is their full name?")...)
	out = append(out, vaguePhrases(entries, vagueTime, model.FindingTime,
		"The time referred to as %q is not specified.", "You said %q. At what exact time was that?")...)
	out = append(out, vaguePhrases(entries, vaguePlace, model.FindingPlace,
		"The place referred to as %q is not specified.", "You said %q. Where exactly was that?")...)
	out = append(out, untimedEvents(view, seqOf)...)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return latest(out[i].Seqs) > latest(out[j].Seqs)
	})
	return out
}

type pairFacts struct {
	a, b  string // entity keys, a < b
	facts []model.Fact
}

func conflicts(view *model.GraphView) []model.Finding {
	pairs := map[string]*pairFacts{}
	for _, r := range view.SortedRelationships() {
		a, b := r.FromKey, r.ToKey
		if b < a {
			a, b = b, a
		}
		k := a + "\x00" + b
		if pairs[k] == nil {
			pairs[k] = &pairFacts{a: a, b: b}
		}
		pairs[k].facts = append(pairs[k].facts, r.Facts...)
	}
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []model.Finding
	for _, k := range keys {
		p := pairs[k]
		sort.SliceStable(p.facts, func(i, j int) bool { return p.facts[i].Seq < p.facts[j].Seq })
		nameA, nameB := displayName(view, p.a), displayName(view, p.b)
		if f, ok := pairConflict(p.facts, nameA, nameB, dayConflict, "day"); ok {
			out = append(out, f)
		}
		if f, ok := pairConflict(p.facts, nameA, nameB, timeConflict, "time"); ok {
			out = append(out, f)
		}
	}
	return out
}

// pairConflict compares the most recent statement with the earlier ones,
// nearest first, and reports the first disagreement.
func pairConflict(facts []model.Fact, nameA, nameB string, conflict func(a, b signature) bool, what string) (model.Finding, bool) {
	for j := len(facts) - 1; j > 0; j-- {
		later := temporalSignature(facts[j].Text)
		for i := j - 1; i >= 0; i-- {
			if facts[i].EpisodeID == facts[j].EpisodeID {
				continue
			}
			earlier := temporalSignature(facts[i].Text)
			if !conflict(earlier, later) {
				continue
			}
			was, now := describe(earlier, what), describe(later, what)
			detail := fmt.Sprintf("Statements %d and %d disagree on the %s involving %s and %s: %s vs %s.",
				facts[i].Seq, facts[j].Seq, what, nameA, nameB, was, now)
			question := fmt.Sprintf("Earlier you said %s, but now you say %s. Which %s is correct for %s and %s?",
				was, now, what, nameA, nameB)
			return model.NewFinding(model.FindingConflict, detail, question, facts[i].Seq, facts[j].Seq), true
		}
	}
	return model.Finding{}, false
}

func describe(sig signature, what string) string {
	if what == "day" {
		return titleDays(sig.days)
	}
	parts := make([]string, len(sig.times))
	for i, t := range sig.times {
		parts[i] = formatClock(t)
	}
	return strings.Join(parts, "/")
}

func singleNamePersons(view *model.GraphView, seqOf map[string]int64) []model.Finding {
	var out []model.Finding
	for _, e := range view.SortedEntities() {
		if e.Type != model.EntityTypePerson || len(strings.Fields(e.Name)) != 1 || e.Name == model.SpeakerName {
			continue
		}
		out = append(out, model.NewFinding(model.FindingIdentity,
			fmt.Sprintf("%s is only known by a single name.", e.Name),
			fmt.Sprintf("What is %s's full name, and how do you know this person?", e.Name),
			episodeSeqs(e.Episodes, seqOf)...))
	}
	return out
}

func vaguePhrases(entries []model.TranscriptEntry, pattern *regexp.Regexp, kind model.FindingKind, detail, question string) []model.Finding {
	var (
		out   []model.Finding
		index = map[string]int{}
	)
	for _, e := range entries {
		for _, m := range pattern.FindAllString(e.Answer, -1) {
			k := strings.ToLower(m)
			if i, ok := index[k]; ok {
				out[i].Seqs = append(out[i].Seqs, e.Seq)
				continue
			}
			index[k] = len(out)
			out = append(out, model.NewFinding(kind, fmt.Sprintf(detail, m), fmt.Sprintf(question, m), e.Seq))
		}
	}
	return out
}

func untimedEvents(view *model.GraphView, seqOf map[string]int64) []model.Finding {
	var out []model.Finding
	for _, e := range view.SortedEntities() {
		if e.Type != model.EntityTypeEvent || !temporalSignature(e.Name+" "+e.Summary).empty() {
			continue
		}
		timed := false
		for _, r := range view.Relationships {
			if r.FromKey != e.Key && r.ToKey != e.Key {
				continue
			}
			other := r.ToKey
			if other == e.Key {
				other = r.FromKey
			}
			if o, ok := view.Entities[other]; ok && o.Type == model.EntityTypeTime {
				timed = true
			}
			for _, f := range r.Facts {
				if !temporalSignature(f.Text).empty() {
					timed = true
				}
			}
		}
		if timed {
			continue
		}
		out = append(out, model.NewFinding(model.FindingEvent,
			fmt.Sprintf("No time is known for %s.", e.Name),
			fmt.Sprintf("When exactly did %s happen?", e.Name),
			episodeSeqs(e.Episodes, seqOf)...))
	}
	return out
}

// Summary renders findings as a short narrative; it is also the fallback when
// the analysis capability is unavailable.
func Summary(findings []model.Finding) string {
	if len(findings) == 0 {
		return "No contradictions or gaps were detected in the statements so far."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Detected %d issue(s) in the statements so far:", len(findings))
	for _, f := range findings {
		fmt.Fprintf(&b, "\n- [%s] %s", f.Kind, f.Detail)
	}
	return b.String()
}

func displayName(view *model.GraphView, key string) string {
	if e, ok := view.Entities[key]; ok && e.Name != "" {
		return e.Name
	}
	name, _, _ := strings.Cut(key, "|")
	return name
}

func episodeSeqs(episodeIDs []string, seqOf map[string]int64) []int64 {
	var out []int64
	for _, id := range episodeIDs {
		if s, ok := seqOf[id]; ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func latest(seqs []int64) int64 {
	var m int64
	for _, s := range seqs {
		if s > m {
			m = s
		}
	}
	return m
}
