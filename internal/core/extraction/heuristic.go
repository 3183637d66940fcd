package extraction

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/agenthands/inquest/internal/core/model"
)

// Heuristic is a rule-based extractor used when no language model is
// configured. It finds capitalised person names and prepositional places in
// the answer and links each person to each place of the same sentence.
// First-person sentences also link the speaker to the people and places they
// name. A bare time ("Around 6 PM on Friday.") is about the people the
// question names, or failing that the people of the latest earlier exchange
// that named any.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?;]+\s*`)
	namePattern   = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\b`)
	firstPerson   = regexp.MustCompile(`\b(?:I|[Mm]e|[Mm]y|[Ww]e|[Uu]s|[Oo]ur)\b`)
	meetPattern   = regexp.MustCompile(`(?i)\b(?:meet|meets|meeting|met)\b`)
)

const (
	labelWasAt   = "WAS_AT"
	labelWasWith = "WAS_WITH"
	labelMet     = "MET"
)

// TemporalPattern matches weekday phrases and clock times.
var TemporalPattern = regexp.MustCompile(`(?i)\b(?:(?:mon|tues|wednes|thurs|fri|satur|sun)day(?:\s+(?:night|morning|evening|afternoon))?|\d{1,2}(?::\d{2})?\s*(?:[ap]\.?m\b\.?)|\d{1,2}:\d{2}|noon|midnight)`)

var placePrepositions = map[string]bool{
	"at": true, "in": true, "to": true, "near": true, "inside": true, "outside": true,
}

var determiners = map[string]bool{
	"the": true, "a": true, "an": true, "my": true, "his": true, "her": true,
	"their": true, "our": true, "this": true, "that": true, "some": true,
}

var placeStops = map[string]bool{
	"with": true, "on": true, "at": true, "around": true, "and": true, "for": true,
	"until": true, "after": true, "before": true, "about": true, "by": true, "when": true,
	"because": true, "but": true, "then": true, "while": true, "from": true, "in": true,
}

var notPlaces = map[string]bool{
	"night": true, "morning": true, "evening": true, "afternoon": true, "noon": true,
	"midnight": true, "around": true, "about": true, "least": true, "first": true,
	"last": true, "once": true, "all": true, "time": true, "me": true, "him": true,
	"them": true, "us": true, "fact": true,
}

// words that start with a capital letter but never name a person
var notNames = map[string]bool{
	"I": true, "It": true, "We": true, "He": true, "She": true, "They": true, "The": true,
	"A": true, "An": true, "And": true, "But": true, "Then": true, "After": true, "Before": true,
	"Around": true, "About": true, "Maybe": true, "Actually": true, "Yes": true, "No": true,
	"Well": true, "So": true, "That": true, "This": true, "There": true, "My": true, "His": true,
	"Her": true, "Our": true, "Their": true, "On": true, "At": true, "In": true, "When": true,
	"What": true, "Where": true, "Who": true, "Why": true, "How": true, "Not": true, "Sure": true,
	"Probably": true, "Later": true, "Earlier": true, "Sometime": true, "Everyone": true,
	"Someone": true, "Somebody": true, "Nobody": true, "Q": true, "PM": true, "AM": true,
	"Can": true, "Could": true, "Did": true, "Do": true, "Does": true, "Is": true, "Was": true,
	"Were": true, "Will": true, "Would": true, "Have": true, "Had": true, "Tell": true,
	"Please": true, "Describe": true, "Explain": true, "Okay": true, "You": true, "Your": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true, "Friday": true,
	"Saturday": true, "Sunday": true, "January": true, "February": true, "March": true,
	"April": true, "May": true, "June": true, "July": true, "August": true, "September": true,
	"October": true, "November": true, "December": true,
}

func (h *Heuristic) Extract(ctx context.Context, episode model.Episode, previous []model.Episode) (model.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return model.Extraction{}, err
	}
	question, answer := splitContent(episode.Content)

	// temporal context for sentences that do not carry their own
	temporal := TemporalPattern.FindAllString(answer, -1)
	if len(temporal) == 0 {
		temporal = TemporalPattern.FindAllString(question, -1)
	}

	var topic []string
	if len(names(answer)) == 0 && len(temporal) > 0 {
		topic = subjects(question, previous)
	}
	label := labelWasWith
	if meetPattern.MatchString(question + " " + answer) {
		label = labelMet
	}

	var (
		out      model.Extraction
		seenEnt  = map[string]bool{}
		seenRels = map[string]bool{}
	)
	addEntity := func(name, typ string) {
		k := strings.ToLower(name) + "|" + typ
		if !seenEnt[k] {
			seenEnt[k] = true
			out.Entities = append(out.Entities, model.CandidateEntity{Name: name, Type: typ})
		}
	}
	addRel := func(from, to, label, fact string) {
		k := strings.ToLower(from + "\x00" + to + "\x00" + label)
		if seenRels[k] {
			return
		}
		seenRels[k] = true
		out.Relationships = append(out.Relationships, model.CandidateRelationship{
			Source: from,
			Target: to,
			Label:  label,
			Fact:   fact,
		})
	}

	for _, sentence := range sentenceSplit.Split(answer, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		people := names(sentence)
		spots := places(sentence)
		speaker := firstPerson.MatchString(sentence)
		if len(people) == 0 && len(topic) > 0 && TemporalPattern.MatchString(sentence) {
			people = topic
			speaker = true
		}
		for _, p := range people {
			addEntity(p, model.EntityTypePerson)
		}
		for _, p := range spots {
			addEntity(p, model.EntityTypePlace)
		}

		fact := withContext(sentence, temporal)
		if speaker && len(people)+len(spots) > 0 {
			addEntity(model.SpeakerName, model.EntityTypePerson)
			for _, p := range people {
				addRel(model.SpeakerName, p, label, fact)
			}
			for _, pl := range spots {
				addRel(model.SpeakerName, pl, labelWasAt, fact)
			}
		}
		for _, p := range people {
			for _, pl := range spots {
				addRel(p, pl, labelWasAt, fact)
			}
		}
	}
	return out, nil
}

// subjects returns the people named in the question, else those of the most
// recent earlier exchange that named anyone.
func subjects(question string, previous []model.Episode) []string {
	if found := names(question); len(found) > 0 {
		return found
	}
	for i := len(previous) - 1; i >= 0; i-- {
		q, a := splitContent(previous[i].Content)
		if found := names(a); len(found) > 0 {
			return found
		}
		if found := names(q); len(found) > 0 {
			return found
		}
	}
	return nil
}

func splitContent(content string) (string, string) {
	q, a, ok := strings.Cut(content, "\nA: ")
	if !ok {
		return "", content
	}
	return strings.TrimPrefix(q, "Q: "), a
}

func names(sentence string) []string {
	var out []string
	for _, m := range namePattern.FindAllString(sentence, -1) {
		words := strings.Fields(m)
		for len(words) > 0 && notNames[words[0]] {
			words = words[1:]
		}
		for len(words) > 0 && notNames[words[len(words)-1]] {
			words = words[:len(words)-1]
		}
		if len(words) > 0 {
			out = append(out, strings.Join(words, " "))
		}
	}
	return out
}

// places returns the noun phrase after each place preposition, without its
// determiner: "at a restaurant with Mike" yields "restaurant".
func places(sentence string) []string {
	words := strings.FieldsFunc(sentence, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	var out []string
	for i := 0; i < len(words); i++ {
		if !placePrepositions[strings.ToLower(words[i])] {
			continue
		}
		j := i + 1
		for j < len(words) && determiners[strings.ToLower(words[j])] {
			j++
		}
		// "to" without a determiner is usually an infinitive
		if strings.ToLower(words[i]) == "to" && j == i+1 {
			continue
		}
		var phrase []string
		for ; j < len(words) && len(phrase) < 3; j++ {
			w := strings.ToLower(words[j])
			if placeStops[w] || TemporalPattern.MatchString(w) || (len(w) > 0 && unicode.IsDigit(rune(w[0]))) {
				break
			}
			phrase = append(phrase, words[j])
		}
		if len(phrase) == 0 || notPlaces[strings.ToLower(phrase[0])] {
			continue
		}
		out = append(out, strings.Join(phrase, " "))
		i = j - 1
	}
	return out
}

func withContext(sentence string, temporal []string) string {
	lower := strings.ToLower(sentence)
	var missing []string
	for _, c := range temporal {
		if !strings.Contains(lower, strings.ToLower(c)) {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return sentence
	}
	return sentence + " (" + strings.Join(missing, ", ") + ")"
}
