package research

import (
	"context"
	"fmt"
	"log/slog"

	"autoresearcher/pkg/search"
)

// maxSearchResults is how many hits we request from the provider per query.
const maxSearchResults = 5

// Searcher executes the current plan step against the search provider and
// folds new sources into the state, deduplicated by URL.
type Searcher struct {
	Provider   search.Provider
	SourceType string
	Logger     *slog.Logger
}

// Run performs one search step. When the plan is already exhausted it is a
// no-op that leaves the step counter untouched.
func (s *Searcher) Run(ctx context.Context, state *State) error {
	if state.CurrentStep >= len(state.Plan) {
		return nil
	}

	query := state.Plan[state.CurrentStep]
	s.Logger.Info("Searching", "step", state.CurrentStep+1, "total", len(state.Plan), "query", query)

	results, err := s.Provider.Search(ctx, query, maxSearchResults)
	if err != nil {
		return fmt.Errorf("search step %d: %w", state.CurrentStep+1, err)
	}

	seen := make(map[string]bool, len(state.Sources))
	for _, src := range state.Sources {
		seen[src.URL] = true
	}

	added := 0
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		state.Sources = append(state.Sources, Source{
			URL:        r.URL,
			Content:    truncate(r.Content, 4000),
			SourceType: s.SourceType,
		})
		added++
	}

	// The counter advances even when nothing new was found, otherwise the
	// loop would retry the same query forever.
	state.CurrentStep++

	s.Logger.Info("Search step done", "added", added, "total_sources", len(state.Sources))
	return nil
}
