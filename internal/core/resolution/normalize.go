package resolution

import (
	"strings"
	"unicode"
)

// Normalizer case-folds and trims names and maps aliases to their canonical
// spelling. It is pure: the same input always yields the same key.
type Normalizer struct {
	aliases map[string]string
}

// NewNormalizer builds a normalizer from an alias table. Keys and values are
// normalized themselves, so "Mikey " = "MIKE" works.
func NewNormalizer(aliases map[string]string) Normalizer {
	n := Normalizer{aliases: make(map[string]string, len(aliases))}
	for alias, canonical := range aliases {
		a, c := fold(alias), fold(canonical)
		if a != "" && c != "" && a != c {
			n.aliases[a] = c
		}
	}
	return n
}

// Normalize returns the comparison form of a name.
func (n Normalizer) Normalize(name string) string {
	folded := fold(name)
	if canonical, ok := n.aliases[folded]; ok {
		return canonical
	}
	return folded
}

// IdentityKey is normalized(name) + "|" + canonical type, so "person",
// "individual" and "people" share a key.
func (n Normalizer) IdentityKey(name, entityType string) string {
	return n.Normalize(name) + "|" + strings.ToLower(DisplayType(entityType))
}

func RelationshipKey(fromKey, toKey, label string) string {
	return fromKey + " -> " + toKey + " #" + label
}

// NormalizeType maps free-form type names onto a lower-case tag; empty types
// become "entity".
func NormalizeType(t string) string {
	t = fold(t)
	if t == "" {
		return "entity"
	}
	return t
}

// DisplayType returns the canonical capitalised type used on nodes.
func DisplayType(t string) string {
	switch NormalizeType(t) {
	case "person", "people", "individual":
		return "Person"
	case "place", "location":
		return "Place"
	case "time", "date", "datetime":
		return "Time"
	case "event":
		return "Event"
	default:
		return "Entity"
	}
}

// NormalizeLabel turns "met with" or "metWith" into MET_WITH.
func NormalizeLabel(label string) string {
	var b strings.Builder
	prevUnderscore := true
	prevLower := false
	for _, r := range strings.TrimSpace(label) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && prevLower && !prevUnderscore {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToUpper(r))
			prevUnderscore = false
			prevLower = unicode.IsLower(r)
		default:
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
			prevLower = false
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "RELATES_TO"
	}
	return out
}

func fold(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.ToLower(s)
}

var vagueReferences = map[string]struct{}{
	"he": {}, "him": {}, "his": {}, "she": {}, "her": {}, "they": {}, "them": {},
	"it": {}, "someone": {}, "somebody": {}, "anyone": {}, "a friend": {},
	"a guy": {}, "a man": {}, "a woman": {}, "some guy": {}, "this guy": {},
	"that guy": {}, "the guy": {}, "my friend": {}, "a person": {}, "people": {},
	"somewhere": {}, "there": {}, "that place": {}, "this place": {},
}

// IsVague reports whether a normalized name is a pronoun or vague reference
// that must not be bound to an earlier entity.
func IsVague(normalized string) bool {
	_, ok := vagueReferences[normalized]
	return ok
}
