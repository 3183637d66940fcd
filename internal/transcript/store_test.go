package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/inquest/internal/core/model"
)

func TestAppend_AssignsSequence(t *testing.T) {
	s := NewMemory(DefaultFormat())
	ctx := context.Background()

	e1, err := s.Append(ctx, "s1", "Where were you?", "  At home.  ")
	require.NoError(t, err)
	e2, err := s.Append(ctx, "s1", "With whom?", "Alone.")
	require.NoError(t, err)
	other, err := s.Append(ctx, "s2", "Name?", "Dan.")
	require.NoError(t, err)

	assert.Equal(t, int64(1), e1.Seq)
	assert.Equal(t, "At home.", e1.Answer)
	assert.Equal(t, int64(2), e2.Seq)
	assert.Equal(t, int64(1), other.Seq)
	assert.False(t, e1.Timestamp.IsZero())
}

func TestAppend_Validation(t *testing.T) {
	s := NewMemory(DefaultFormat())
	ctx := context.Background()

	_, err := s.Append(ctx, "s1", "   ", "answer")
	assert.True(t, model.IsValidation(err))

	_, err = s.Append(ctx, "s1", "question?", "\n\t")
	assert.True(t, model.IsValidation(err))

	_, err = s.Append(ctx, "../etc/passwd", "question?", "answer")
	assert.True(t, model.IsValidation(err))

	assert.Equal(t, 0, s.Len("s1"))
	_, ok := s.Session("s1")
	assert.False(t, ok, "a rejected submission must not create the session")
}

func TestReadAll_RestartableAndBounded(t *testing.T) {
	s := NewMemory(DefaultFormat())
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := s.Append(ctx, "s1", fmt.Sprintf("q%d?", i), fmt.Sprintf("a%d", i))
		require.NoError(t, err)
	}

	seq := s.ReadAll("s1")
	var first []int64
	for e := range seq {
		first = append(first, e.Seq)
		if e.Seq == 1 {
			// entries appended mid-iteration are not part of this pass
			_, err := s.Append(ctx, "s1", "q4?", "a4")
			require.NoError(t, err)
		}
	}
	assert.Equal(t, []int64{1, 2, 3}, first)

	var second []int64
	for e := range seq {
		second = append(second, e.Seq)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, second)

	for range s.ReadAll("unknown") {
		t.Fatal("unknown session must yield nothing")
	}
}

func TestAppend_ConcurrentSameSession(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, DefaultFormat())
	require.NoError(t, err)

	const m = 40
	var wg sync.WaitGroup
	for i := 0; i < m; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Append(context.Background(), "busy", fmt.Sprintf("question %d?", i), strings.Repeat("x", i+1))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries := s.Entries("busy")
	require.Len(t, entries, m)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq)
	}

	// the persisted file parses back to the same ordered entries
	f, err := os.Open(filepath.Join(dir, "busy.md"))
	require.NoError(t, err)
	defer f.Close()
	parsed, err := DefaultFormat().Parse(f, "busy")
	require.NoError(t, err)
	require.Len(t, parsed, m)
	for i := range parsed {
		assert.Equal(t, entries[i].Seq, parsed[i].Seq)
		assert.Equal(t, entries[i].Question, parsed[i].Question)
		assert.Equal(t, entries[i].Answer, parsed[i].Answer)
	}
}

func TestOpen_ReloadsSessions(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, DefaultFormat())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = s.Append(ctx, "case-7", "Where were you Friday night?", "I was at a restaurant with Mike.")
	require.NoError(t, err)
	_, err = s.Append(ctx, "case-7", "What time?", "Around 6 PM.\nMaybe later.")
	require.NoError(t, err)

	reopened, err := Open(dir, DefaultFormat())
	require.NoError(t, err)

	entries := reopened.Entries("case-7")
	require.Len(t, entries, 2)
	assert.Equal(t, "Around 6 PM.\nMaybe later.", entries[1].Answer)

	next, err := reopened.Append(ctx, "case-7", "Who paid?", "Mike did.")
	require.NoError(t, err)
	assert.Equal(t, int64(3), next.Seq)

	var buf strings.Builder
	require.NoError(t, reopened.Export("case-7", &buf))
	assert.Contains(t, buf.String(), "Suspect: Around 6 PM.\\nMaybe later.\n")
}

func TestAppend_CancelledContext(t *testing.T) {
	s := NewMemory(DefaultFormat())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Append(ctx, "s1", "q?", "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Len("s1"))
}
