// Package app assembles the service from configuration: stores, drivers,
// language model clients and the submission pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/agenthands/inquest/internal/analysis"
	"github.com/agenthands/inquest/internal/config"
	"github.com/agenthands/inquest/internal/core"
	"github.com/agenthands/inquest/internal/core/extraction"
	"github.com/agenthands/inquest/internal/core/resolution"
	"github.com/agenthands/inquest/internal/driver"
	"github.com/agenthands/inquest/internal/events"
	"github.com/agenthands/inquest/internal/graphstore"
	"github.com/agenthands/inquest/internal/llm"
	"github.com/agenthands/inquest/internal/mirror"
	"github.com/agenthands/inquest/internal/transcript"
	"github.com/agenthands/inquest/internal/visualization"
)

type App struct {
	Config *config.Config
	Log    logrus.FieldLogger

	Transcript    *transcript.Store
	Graph         graphstore.Store
	Mirror        *mirror.Mirror
	LLM           llm.LLMClient
	Publisher     events.Publisher
	Synchronizer  *core.Synchronizer
	Analyzer      *analysis.Analyzer
	Exporter      *visualization.Exporter
	Investigation *core.Investigation

	closers []func(context.Context) error
}

// New connects every configured backend. Backends left unconfigured fall
// back to in-process implementations, so Default() yields a working
// in-memory service.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.init(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, log := a.Config, a.Log

	format := transcript.Format{QuestionLabel: cfg.Transcript.QuestionLabel, AnswerLabel: cfg.Transcript.AnswerLabel}
	if cfg.Transcript.Dir != "" {
		store, err := transcript.Open(cfg.Transcript.Dir, format)
		if err != nil {
			return err
		}
		a.Transcript = store
		log.WithField("dir", cfg.Transcript.Dir).Info("transcripts persisted to disk")
	} else {
		a.Transcript = transcript.NewMemory(format)
		log.Warn("no transcript dir configured, transcripts are kept in memory")
	}

	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
		if err != nil {
			return fmt.Errorf("failed to connect to memgraph: %w", err)
		}
		a.closers = append(a.closers, d.Close)
		if err := d.BuildIndices(ctx); err != nil {
			return err
		}
		a.Graph = graphstore.NewCypherStore(d, log)
	} else {
		a.Graph = graphstore.NewMemoryStore()
		log.Warn("no memgraph uri configured, using in-memory graph store")
	}

	var relational mirror.Store
	if cfg.Postgres.URL != "" {
		pg, err := mirror.NewPostgresStore(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error {
			pg.Close()
			return nil
		})
		relational = pg
	} else {
		relational = mirror.NewMemoryStore()
		log.Warn("no database url configured, using in-memory relational mirror")
	}
	a.Mirror = mirror.New(relational, log)

	client, err := llm.NewClient(ctx, cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("failed to initialize llm client: %w", err)
	}
	a.LLM = client
	if c, ok := client.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func(context.Context) error { return c.Close() })
	}

	var (
		extractor  extraction.Capability
		capability analysis.Capability
	)
	if client != nil {
		extractor = extraction.NewExtractor(client, cfg.Prompts.Extraction)
		capability = analysis.NewLLMCapability(client, cfg.Prompts.Analysis)
		log.WithFields(logrus.Fields{"provider": cfg.LLM.Provider, "model": cfg.LLM.Model}).Info("llm configured")
	} else {
		extractor = extraction.NewHeuristic()
		capability = analysis.HeuristicCapability{}
		log.Info("no llm provider configured, using heuristic extraction and analysis")
	}

	if cfg.Nats.URL != "" {
		pub, err := events.NewNatsPublisher(cfg.Nats.URL, cfg.Nats.Token, cfg.Nats.Subject, log)
		if err != nil {
			return err
		}
		a.Publisher = pub
	} else {
		a.Publisher = events.NopPublisher{}
	}
	a.closers = append(a.closers, func(context.Context) error {
		a.Publisher.Close()
		return nil
	})

	var renderer visualization.Renderer = visualization.LinkRenderer{BaseURL: cfg.Server.BaseURL}
	if cfg.Render.URL != "" {
		r := visualization.NewHTTPRenderer(cfg.Render.URL)
		r.Client = &http.Client{Timeout: cfg.Timeouts.Render.Duration}
		renderer = r
	}

	a.Synchronizer = core.NewSynchronizer(
		extractor,
		resolution.NewResolver(cfg.Resolution.Aliases),
		a.Graph,
		a.Transcript,
		core.SyncTimeouts{
			Extraction: cfg.Timeouts.Extraction.Duration,
			GraphWrite: cfg.Timeouts.GraphWrite.Duration,
		},
		log,
	)
	coordinator := core.NewCoordinator(a.Synchronizer, a.Mirror, cfg.Timeouts.Relational.Duration, log)
	a.Analyzer = analysis.New(a.Transcript, a.Graph, capability, analysis.Options{
		Timeout:      cfg.Timeouts.Analysis.Duration,
		MinQuestions: cfg.Analysis.MinQuestions,
		MaxQuestions: cfg.Analysis.MaxQuestions,
	}, log)
	a.Exporter = visualization.NewExporter(a.Graph, renderer, cfg.Timeouts.Render.Duration, log)
	a.Investigation = core.NewInvestigation(a.Transcript, coordinator, a.Synchronizer, a.Analyzer, a.Exporter, a.Publisher, log)
	return nil
}

type Health struct {
	Status        string `json:"status"`
	GraphDatabase string `json:"graph_database"`
	Database      string `json:"database"`
	LLMConnection string `json:"llm_connection"`
}

// Health pings the graph and relational stores. The service stays usable
// while either is down, so the status is "degraded" rather than failing.
func (a *App) Health(ctx context.Context) Health {
	h := Health{Status: "healthy", GraphDatabase: "connected", Database: "connected", LLMConnection: "configured"}
	if err := a.Graph.Ping(ctx); err != nil {
		a.Log.WithError(err).Warn("graph health check failed")
		h.GraphDatabase = "unreachable"
		h.Status = "degraded"
	}
	if err := a.Mirror.Ping(ctx); err != nil {
		a.Log.WithError(err).Warn("database health check failed")
		h.Database = "unreachable"
		h.Status = "degraded"
	}
	if a.LLM == nil {
		h.LLMConnection = "heuristic"
	}
	return h
}

// Close releases every backend in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
