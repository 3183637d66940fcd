package transcript

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/agenthands/inquest/internal/core/model"
)

func TestEncode(t *testing.T) {
	got := DefaultFormat().Encode(model.TranscriptEntry{
		Question: "Where were you Friday night?",
		Answer:   "I was at a restaurant with Mike.",
	})
	assert.Equal(t, "Investigator: Where were you Friday night?\nSuspect: I was at a restaurant with Mike.\n\n", got)
}

func TestParse_EscapedText(t *testing.T) {
	f := DefaultFormat()
	in := []model.TranscriptEntry{
		{Seq: 1, SessionID: "s1", Question: "Line one\nline two?", Answer: `C:\temp\n is a path`},
		{Seq: 2, SessionID: "s1", Question: "Suspect: quoting the label?", Answer: "Investigator: yes"},
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf, slices.Values(in)))

	out, err := f.Parse(&buf, "s1")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParse_Malformed(t *testing.T) {
	f := DefaultFormat()

	_, err := f.Parse(strings.NewReader("Investigator: hi?\n\nSuspect: late\n"), "s1")
	assert.Error(t, err)

	_, err = f.Parse(strings.NewReader("Suspect: no question\n"), "s1")
	assert.Error(t, err)

	_, err = f.Parse(strings.NewReader("Investigator: dangling?\n"), "s1")
	assert.Error(t, err)
}

func TestParse_CustomLabels(t *testing.T) {
	f := Format{QuestionLabel: "Q", AnswerLabel: "A"}
	out, err := f.Parse(strings.NewReader("Q: one?\nA: yes\n\nQ: two?\nA: no\n\n"), "s9")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[1].Seq)
	assert.Equal(t, "no", out[1].Answer)
	assert.Equal(t, "s9", out[1].SessionID)
}

// TestProperty_FormatRoundTrip checks that any sequence of entries survives
// Format then Parse with order and text intact.
func TestProperty_FormatRoundTrip(t *testing.T) {
	f := DefaultFormat()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "n")
		in := make([]model.TranscriptEntry, n)
		for i := range in {
			in[i] = model.TranscriptEntry{
				Seq:       int64(i + 1),
				SessionID: "prop",
				Question:  rapid.StringMatching(`[A-Za-z0-9 ?:\\\n\r.,'-]{1,40}`).Draw(t, "q"),
				Answer:    rapid.StringMatching(`[A-Za-z0-9 ?:\\\n\r.,'-]{1,40}`).Draw(t, "a"),
			}
		}

		var buf bytes.Buffer
		if err := f.Write(&buf, slices.Values(in)); err != nil {
			t.Fatal(err)
		}
		out, err := f.Parse(&buf, "prop")
		if err != nil {
			t.Fatalf("parse: %v\n%s", err, buf.String())
		}
		if len(in) == 0 {
			if len(out) != 0 {
				t.Fatalf("expected no entries, got %d", len(out))
			}
			return
		}
		if !slices.Equal(in, out) {
			t.Fatalf("round trip mismatch:\n in=%q\nout=%q", in, out)
		}
	})
}
