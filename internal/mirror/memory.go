package mirror

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/agenthands/inquest/internal/core/model"
)

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	messages map[string]map[string]model.Message // session -> id -> message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]model.Session),
		messages: make(map[string]map[string]model.Message),
	}
}

func (s *MemoryStore) WriteExchange(ctx context.Context, session model.Session, question, answer model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range []model.Message{question, answer} {
		if prev, ok := s.messages[session.ID][msg.ID]; ok && prev.Content != msg.Content {
			return fmt.Errorf("%w: message %s at position %d", model.ErrSequenceConflict, msg.ID, msg.Position)
		}
	}
	if _, ok := s.sessions[session.ID]; !ok {
		s.sessions[session.ID] = session
		s.messages[session.ID] = make(map[string]model.Message)
	}
	for _, msg := range []model.Message{question, answer} {
		if _, ok := s.messages[session.ID][msg.ID]; !ok {
			s.messages[session.ID][msg.ID] = msg
		}
	}
	return nil
}

func (s *MemoryStore) Messages(ctx context.Context, sessionID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Message, 0, len(s.messages[sessionID]))
	for _, msg := range s.messages[sessionID] {
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
