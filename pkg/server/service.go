package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"autoresearcher/pkg/archive"
	"autoresearcher/pkg/research"
	"autoresearcher/pkg/search"
)

// Service runs research requests. Store and Indexer are nil when no
// database is configured; runs then execute without archiving.
type Service struct {
	LLM      research.Generator
	Provider search.Provider
	Store    *archive.Store
	Indexer  *archive.Indexer
	Logger   *slog.Logger
}

func NewService(llm research.Generator, provider search.Provider) *Service {
	return &Service{
		LLM:      llm,
		Provider: provider,
		Logger:   slog.Default(),
	}
}

// Run executes one research run for topic. The engine is rebuilt per request
// so concurrent runs only share the generation client and its throttle;
// onUpdate (may be nil) receives a state snapshot per stage.
func (s *Service) Run(ctx context.Context, topic string, onUpdate func(research.State)) (*research.State, error) {
	engine := research.NewEngine(s.LLM, s.Provider)
	engine.SetLogger(s.Logger)
	engine.OnStateUpdate = onUpdate

	if s.Store == nil {
		return engine.Run(ctx, topic)
	}

	run, err := s.Store.CreateRun(ctx, topic)
	if err != nil {
		// An unavailable archive must not block research.
		s.Logger.Error("Failed to create archive run", "error", err)
		return engine.Run(ctx, topic)
	}

	dbLogger := slog.New(NewDBLogHandler(s.Store, run.ID))
	engine.SetLogger(dbLogger)

	state, err := engine.Run(ctx, topic)
	if err != nil {
		dbLogger.Error("Research failed", "error", err)
		if ferr := s.Store.FailRun(context.Background(), run.ID); ferr != nil {
			s.Logger.Error("Failed to mark run failed", "run_id", run.ID, "error", ferr)
		}
		return state, err
	}

	if cerr := s.Store.CompleteRun(ctx, run.ID, state.Report, state.Sources); cerr != nil {
		dbLogger.Error("Failed to archive run", "error", cerr)
	}

	if s.Indexer != nil {
		// Index in the background; the chat agent picks the chunks up once
		// they land.
		go func(runID uuid.UUID, topic string, sources []research.Source) {
			ictx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := s.Indexer.IndexRun(ictx, runID, topic, sources); err != nil {
				s.Logger.Error("Failed to index run sources", "run_id", runID, "error", err)
			}
		}(run.ID, topic, state.Sources)
	}

	return state, nil
}
