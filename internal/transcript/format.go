package transcript

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/agenthands/inquest/internal/core/model"
)

// Format renders entries as labelled line pairs separated by blank lines:
//
//	Investigator: Where were you Friday night?
//	Suspect: I was at a restaurant with Mike.
//
// Backslashes and line breaks inside the text are escaped so every pair stays
// on exactly two lines and Parse reproduces the entries.
type Format struct {
	QuestionLabel string
	AnswerLabel   string
}

func DefaultFormat() Format {
	return Format{QuestionLabel: "Investigator", AnswerLabel: "Suspect"}
}

func (f Format) Encode(e model.TranscriptEntry) string {
	var b strings.Builder
	b.WriteString(f.QuestionLabel)
	b.WriteString(": ")
	b.WriteString(escape(e.Question))
	b.WriteByte('\n')
	b.WriteString(f.AnswerLabel)
	b.WriteString(": ")
	b.WriteString(escape(e.Answer))
	b.WriteString("\n\n")
	return b.String()
}

func (f Format) Write(w io.Writer, entries iter.Seq[model.TranscriptEntry]) error {
	for e := range entries {
		if _, err := io.WriteString(w, f.Encode(e)); err != nil {
			return err
		}
	}
	return nil
}

// Parse reads pairs back in order. Sequence numbers follow file order starting
// at 1; timestamps are not part of the text and are left zero.
func (f Format) Parse(r io.Reader, sessionID string) ([]model.TranscriptEntry, error) {
	qPrefix := f.QuestionLabel + ": "
	aPrefix := f.AnswerLabel + ": "

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var (
		entries []model.TranscriptEntry
		pending *model.TranscriptEntry
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if pending != nil {
				return nil, fmt.Errorf("line %d: question without answer", lineNo)
			}
			continue
		}

		switch {
		case pending == nil && strings.HasPrefix(line, qPrefix):
			pending = &model.TranscriptEntry{
				Seq:       int64(len(entries) + 1),
				SessionID: sessionID,
				Question:  unescape(strings.TrimPrefix(line, qPrefix)),
			}
		case pending != nil && strings.HasPrefix(line, aPrefix):
			pending.Answer = unescape(strings.TrimPrefix(line, aPrefix))
			entries = append(entries, *pending)
			pending = nil
		default:
			return nil, fmt.Errorf("line %d: unexpected line %q", lineNo, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, fmt.Errorf("line %d: question without answer", lineNo)
	}
	return entries, nil
}

var escaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)

func escape(s string) string {
	return escaper.Replace(s)
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
