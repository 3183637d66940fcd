package transcript

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agenthands/inquest/internal/core/model"
)

const fileExt = ".md"

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// Store is the authoritative append-only log of transcript entries. When a
// directory is configured every session is mirrored to <dir>/<session>.md and
// each append is synced to disk before it becomes visible.
type Store struct {
	dir    string
	format Format
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionLog
}

type sessionLog struct {
	mu      sync.RWMutex
	session model.Session
	entries []model.TranscriptEntry
}

// NewMemory returns a store that keeps entries in process memory only.
func NewMemory(format Format) *Store {
	return &Store{
		format:   format,
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[string]*sessionLog),
	}
}

// Open returns a file-backed store rooted at dir, loading any session files
// already present.
func Open(dir string, format Format) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	s := NewMemory(format)
	s.dir = dir

	files, err := filepath.Glob(filepath.Join(dir, "*"+fileExt))
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		id := strings.TrimSuffix(filepath.Base(path), fileExt)
		if !sessionIDPattern.MatchString(id) {
			continue
		}
		if err := s.load(id, path); err != nil {
			return nil, fmt.Errorf("load session %s: %w", id, err)
		}
	}
	return s, nil
}

func (s *Store) load(id, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	entries, err := s.format.Parse(f, id)
	if err != nil {
		return err
	}
	// the text format carries no timestamps
	for i := range entries {
		if entries[i].Timestamp.IsZero() {
			entries[i].Timestamp = info.ModTime().UTC()
		}
	}
	s.sessions[id] = &sessionLog{
		session: model.Session{ID: id, CreatedAt: info.ModTime().UTC()},
		entries: entries,
	}
	return nil
}

// ValidateSessionID rejects identifiers that cannot double as file names.
func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return &model.ValidationError{Field: "session_id", Reason: "must match " + sessionIDPattern.String()}
	}
	return nil
}

// EnsureSession returns the session, creating it when absent. created reports
// whether this call created it.
func (s *Store) EnsureSession(id string, metadata map[string]any) (model.Session, bool, error) {
	if err := ValidateSessionID(id); err != nil {
		return model.Session{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if log, ok := s.sessions[id]; ok {
		return log.session, false, nil
	}
	log := &sessionLog{session: model.Session{ID: id, CreatedAt: s.now(), Metadata: metadata}}
	s.sessions[id] = log
	return log.session, true, nil
}

func (s *Store) Session(id string) (model.Session, bool) {
	log := s.lookup(id)
	if log == nil {
		return model.Session{}, false
	}
	return log.session, true
}

// Sessions lists known sessions ordered by creation time.
func (s *Store) Sessions() []model.Session {
	s.mu.Lock()
	out := make([]model.Session, 0, len(s.sessions))
	for _, log := range s.sessions {
		out = append(out, log.session)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Append assigns the next sequence number of the session and durably records
// the entry. The session is created if it does not exist yet.
func (s *Store) Append(ctx context.Context, sessionID, question, answer string) (model.TranscriptEntry, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" {
		return model.TranscriptEntry{}, &model.ValidationError{Field: "question", Reason: "must not be empty"}
	}
	if answer == "" {
		return model.TranscriptEntry{}, &model.ValidationError{Field: "answer", Reason: "must not be empty"}
	}
	if err := ctx.Err(); err != nil {
		return model.TranscriptEntry{}, err
	}
	if _, _, err := s.EnsureSession(sessionID, nil); err != nil {
		return model.TranscriptEntry{}, err
	}

	log := s.lookup(sessionID)
	log.mu.Lock()
	defer log.mu.Unlock()

	entry := model.TranscriptEntry{
		Seq:       int64(len(log.entries) + 1),
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Timestamp: s.now(),
	}
	if err := s.persist(entry); err != nil {
		return model.TranscriptEntry{}, fmt.Errorf("persist transcript entry: %w", err)
	}
	log.entries = append(log.entries, entry)
	return entry, nil
}

func (s *Store) persist(entry model.TranscriptEntry) error {
	if s.dir == "" {
		return nil
	}
	f, err := os.OpenFile(s.path(entry.SessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, s.format.Encode(entry)); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadAll yields the session's entries in append order. The sequence is lazy
// and can be ranged over any number of times; each pass covers the entries
// that existed when it started.
func (s *Store) ReadAll(sessionID string) iter.Seq[model.TranscriptEntry] {
	return func(yield func(model.TranscriptEntry) bool) {
		log := s.lookup(sessionID)
		if log == nil {
			return
		}
		log.mu.RLock()
		n := len(log.entries)
		log.mu.RUnlock()

		for i := 0; i < n; i++ {
			log.mu.RLock()
			e := log.entries[i]
			log.mu.RUnlock()
			if !yield(e) {
				return
			}
		}
	}
}

// Entries collects ReadAll into a slice.
func (s *Store) Entries(sessionID string) []model.TranscriptEntry {
	return slices.Collect(s.ReadAll(sessionID))
}

func (s *Store) Len(sessionID string) int {
	log := s.lookup(sessionID)
	if log == nil {
		return 0
	}
	log.mu.RLock()
	defer log.mu.RUnlock()
	return len(log.entries)
}

// Export writes the text representation of a session.
func (s *Store) Export(sessionID string, w io.Writer) error {
	return s.format.Write(w, s.ReadAll(sessionID))
}

func (s *Store) Format() Format {
	return s.format
}

func (s *Store) lookup(id string) *sessionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+fileExt)
}
