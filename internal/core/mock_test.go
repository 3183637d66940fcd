package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agenthands/inquest/internal/analysis"
	"github.com/agenthands/inquest/internal/core/extraction"
	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/core/resolution"
	"github.com/agenthands/inquest/internal/events"
	"github.com/agenthands/inquest/internal/graphstore"
	"github.com/agenthands/inquest/internal/logger"
	"github.com/agenthands/inquest/internal/mirror"
	"github.com/agenthands/inquest/internal/transcript"
	"github.com/agenthands/inquest/internal/visualization"
)

// MockExtractor returns canned extractions per sequence number and fails on
// the sequences listed in FailSeq.
type MockExtractor struct {
	mu      sync.Mutex
	BySeq   map[int64]model.Extraction
	FailSeq map[int64]bool
	Calls   int
	// Previous records the earlier exchanges passed with each sequence.
	Previous map[int64][]model.Episode
}

func (m *MockExtractor) Extract(ctx context.Context, episode model.Episode, previous []model.Episode) (model.Extraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Previous == nil {
		m.Previous = map[int64][]model.Episode{}
	}
	m.Previous[episode.Seq] = previous
	if m.FailSeq[episode.Seq] {
		return model.Extraction{}, errors.New("model returned garbage")
	}
	return m.BySeq[episode.Seq], nil
}

// FlakyGraphStore fails ApplyEpisode for the sequences in FailSeq.
type FlakyGraphStore struct {
	*graphstore.MemoryStore
	mu      sync.Mutex
	FailSeq map[int64]bool
}

func (s *FlakyGraphStore) ApplyEpisode(ctx context.Context, episode model.Episode, plan model.MergePlan) error {
	s.mu.Lock()
	fail := s.FailSeq[episode.Seq]
	s.mu.Unlock()
	if fail {
		return errors.New("bolt: connection reset by peer")
	}
	return s.MemoryStore.ApplyEpisode(ctx, episode, plan)
}

func (s *FlakyGraphStore) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailSeq = nil
}

// FlakyMirrorStore fails WriteExchange for the sequences in FailSeq.
type FlakyMirrorStore struct {
	*mirror.MemoryStore
	mu      sync.Mutex
	FailSeq map[int64]bool
}

func (s *FlakyMirrorStore) WriteExchange(ctx context.Context, session model.Session, question, answer model.Message) error {
	s.mu.Lock()
	fail := s.FailSeq[answer.Position/2]
	s.mu.Unlock()
	if fail {
		return errors.New("pq: too many connections")
	}
	return s.MemoryStore.WriteExchange(ctx, session, question, answer)
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []events.SubmissionAnalyzed
	Err    error
}

func (p *MockPublisher) Publish(ctx context.Context, ev events.SubmissionAnalyzed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, ev)
	return p.Err
}

func (p *MockPublisher) Close() {}

type FailingCapability struct{}

func (FailingCapability) Analyze(context.Context, analysis.Request) (string, error) {
	return "", errors.New("503 service unavailable")
}

type harness struct {
	transcript *transcript.Store
	graph      *FlakyGraphStore
	mirror     *FlakyMirrorStore
	publisher  *MockPublisher
	sync       *Synchronizer
	inv        *Investigation
}

func newHarness(t *testing.T, store *transcript.Store, extractor extraction.Capability, capability analysis.Capability) *harness {
	t.Helper()
	log := logger.Discard()
	if store == nil {
		store = transcript.NewMemory(transcript.DefaultFormat())
	}
	h := &harness{
		transcript: store,
		graph:      &FlakyGraphStore{MemoryStore: graphstore.NewMemoryStore()},
		mirror:     &FlakyMirrorStore{MemoryStore: mirror.NewMemoryStore()},
		publisher:  &MockPublisher{},
	}
	h.sync = NewSynchronizer(extractor, resolution.NewResolver(nil), h.graph, store, SyncTimeouts{Extraction: time.Second, GraphWrite: time.Second}, log)
	coordinator := NewCoordinator(h.sync, mirror.New(h.mirror, log), time.Second, log)
	analyzer := analysis.New(store, h.graph, capability, analysis.Options{Timeout: time.Second}, log)
	exporter := visualization.NewExporter(h.graph, visualization.LinkRenderer{BaseURL: "http://inquest.test"}, time.Second, log)
	h.inv = NewInvestigation(store, coordinator, h.sync, analyzer, exporter, h.publisher, log)
	return h
}
