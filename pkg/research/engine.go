package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"autoresearcher/pkg/search"
)

// Generator is the text generation capability the agents build on.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrStepLimitReached reports that the pipeline exceeded its transition
// ceiling without reaching synthesis. With a capped plan this points at a
// sequencing bug, not a difficult topic.
var ErrStepLimitReached = errors.New("step limit reached before synthesis")

// defaultMaxTransitions bounds the number of stage executions in one run.
const defaultMaxTransitions = 30

// Engine drives a research run through plan, search, evaluate and
// synthesize until a report exists. The loop alternates search and evaluate
// once per plan step.
type Engine struct {
	Planner     *Planner
	Searcher    *Searcher
	Evaluator   *Evaluator
	Synthesizer *Synthesizer
	Logger      *slog.Logger

	// OnStateUpdate, when set, receives a snapshot after every stage.
	OnStateUpdate func(state State)

	// MaxTransitions guards the loop against runaway plans; zero means the
	// default.
	MaxTransitions int
}

func NewEngine(llm Generator, provider search.Provider) *Engine {
	logger := slog.Default()
	return &Engine{
		Planner:        &Planner{LLM: llm, Logger: logger},
		Searcher:       &Searcher{Provider: provider, SourceType: "tavily", Logger: logger},
		Evaluator:      &Evaluator{LLM: llm, Logger: logger},
		Synthesizer:    &Synthesizer{LLM: llm, Logger: logger},
		Logger:         logger,
		MaxTransitions: defaultMaxTransitions,
	}
}

// SetLogger points the engine and all of its agents at logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	e.Logger = logger
	e.Planner.Logger = logger
	e.Searcher.Logger = logger
	e.Evaluator.Logger = logger
	e.Synthesizer.Logger = logger
}

// Run executes the full pipeline for topic and returns the final state.
// The returned state is also valid when err is non-nil; it holds whatever
// was accumulated before the failure.
func (e *Engine) Run(ctx context.Context, topic string) (*State, error) {
	state := NewState(topic)
	e.Logger.Info("Starting research", "topic", topic)

	transitions := 0
	step := func() error {
		transitions++
		if transitions > e.maxTransitions() {
			return fmt.Errorf("%w (limit %d)", ErrStepLimitReached, e.maxTransitions())
		}
		return nil
	}

	if err := step(); err != nil {
		return state, err
	}
	e.Planner.Run(ctx, state)
	e.emit(state)

	for state.CurrentStep < len(state.Plan) {
		if err := step(); err != nil {
			return state, err
		}
		if err := e.Searcher.Run(ctx, state); err != nil {
			return state, err
		}
		e.emit(state)

		if err := step(); err != nil {
			return state, err
		}
		if err := e.Evaluator.Run(ctx, state); err != nil {
			return state, err
		}
		e.emit(state)
	}

	if err := step(); err != nil {
		return state, err
	}
	if err := e.Synthesizer.Run(ctx, state); err != nil {
		return state, err
	}
	e.emit(state)

	e.Logger.Info("Research complete", "sources", len(state.Sources), "report_length", len(state.Report))
	return state, nil
}

func (e *Engine) emit(state *State) {
	if e.OnStateUpdate != nil {
		e.OnStateUpdate(state.Clone())
	}
}

func (e *Engine) maxTransitions() int {
	if e.MaxTransitions > 0 {
		return e.MaxTransitions
	}
	return defaultMaxTransitions
}
