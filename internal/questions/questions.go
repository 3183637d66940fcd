// Package questions turns free-form model output into a short list of
// follow-up questions. Parsing never fails: when nothing usable is found the
// default set is returned.
package questions

import (
	"regexp"
	"strings"

	"github.com/agenthands/inquest/internal/core/common"
)

const DefaultMax = 5

var defaults = []string{
	"What additional details can you provide about this situation?",
	"Can you clarify the timeline of events?",
	"Who else was involved or present?",
}

// Defaults returns a fresh copy of the fallback question set.
func Defaults() []string {
	return append([]string(nil), defaults...)
}

var (
	numberedPattern   = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
	bulletedPattern   = regexp.MustCompile(`^[-•*]\s+(.+)$`)
	standalonePattern = regexp.MustCompile(`^[A-Z].*\?$`)
	sectionPattern    = regexp.MustCompile(`(?i)^[#*_\s]*suggested\s+(follow[- ]up\s+)?questions\s*:?[*_\s]*:?$`)
	headerPattern     = regexp.MustCompile(`(?i)^[#*_\s]*[a-z][a-z ]{2,40}:[*_\s]*$`)
	emphasisReplacer  = strings.NewReplacer("**", "", "__", "", "`", "")
)

// minStandaloneLen keeps short fragments such as "Why?" from counting as
// questions outside a questions section.
const minStandaloneLen = 20

type jsonQuestions struct {
	SuggestedQuestions []string `json:"suggested_questions"`
	Questions          []string `json:"questions"`
}

// Extract returns at most maxCount unique questions found in raw, or the
// defaults (also capped) when none are found. maxCount <= 0 means DefaultMax.
func Extract(raw string, maxCount int) []string {
	if maxCount <= 0 {
		maxCount = DefaultMax
	}

	found := fromJSON(raw)
	if len(found) == 0 {
		found = fromLines(raw)
	}

	out := dedupe(found)
	if len(out) == 0 {
		out = Defaults()
	}
	if len(out) > maxCount {
		out = out[:maxCount]
	}
	return out
}

func fromJSON(raw string) []string {
	if !strings.Contains(raw, "{") {
		return nil
	}
	parsed, err := common.ParseJSON[jsonQuestions](raw)
	if err != nil {
		return nil
	}
	if len(parsed.SuggestedQuestions) > 0 {
		return parsed.SuggestedQuestions
	}
	return parsed.Questions
}

func fromLines(raw string) []string {
	var (
		found     []string
		inSection bool
	)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if sectionPattern.MatchString(line) {
			inSection = true
			continue
		}
		if headerPattern.MatchString(line) {
			inSection = false
			continue
		}
		line = strings.TrimSpace(emphasisReplacer.Replace(line))

		if m := numberedPattern.FindStringSubmatch(line); m != nil {
			if q := clean(m[1]); q != "" && (inSection || strings.HasSuffix(q, "?")) {
				found = append(found, q)
			}
			continue
		}
		if m := bulletedPattern.FindStringSubmatch(line); m != nil {
			if q := clean(m[1]); q != "" && (inSection || strings.HasSuffix(q, "?")) {
				found = append(found, q)
			}
			continue
		}
		if strings.HasSuffix(line, "?") && (inSection || len(line) > minStandaloneLen) && standalonePattern.MatchString(line) {
			found = append(found, line)
		}
	}
	return found
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_\"")
	return strings.TrimSpace(s)
}

// dedupe drops blanks and case-insensitive repeats, keeping first occurrence.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, q := range in {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

var (
	questionsHeading = regexp.MustCompile(`(?i)(\*\*)?suggested\s+(follow[- ]up\s+)?questions\s*:?\s*(\*\*)?\s*:?`)
	analysisHeading  = regexp.MustCompile(`(?i)^\s*(\*\*)?analysis\s*:\s*(\*\*)?`)
)

// SplitAnalysis returns the narrative part of a response, i.e. everything
// before the questions section with any leading "Analysis:" label removed.
func SplitAnalysis(raw string) string {
	narrative := raw
	if loc := questionsHeading.FindStringIndex(raw); loc != nil {
		narrative = raw[:loc[0]]
	}
	narrative = analysisHeading.ReplaceAllString(narrative, "")
	return strings.TrimSpace(narrative)
}
