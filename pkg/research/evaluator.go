package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
)

const evaluatorPromptTemplate = `
You are scoring source credibility for a research assistant.
For each item, return a JSON array of objects: [{"id": <int>, "score": <float 0..1>}, ...]
Return ONLY valid JSON. No markdown, no explanation.

Scoring guide:
- 0.9–1.0: peer-reviewed journals, gov/edu, major medical orgs, reputable news with citations
- 0.6–0.8: generally credible outlets, clear authorship, references
- 0.3–0.5: blogs, unclear sourcing, promotional content
- 0.0–0.2: spam, unverifiable, sensational, no sources

Items:
%s
`

const (
	// defaultScore is assigned when the model's answer cannot be used, so a
	// single bad response never wipes the whole source list.
	defaultScore = 0.3
	// keepThreshold is the minimum score a source needs to survive filtering.
	keepThreshold = 0.6
	// fallbackKeep is how many top sources survive when nothing clears the
	// threshold.
	fallbackKeep = 3
)

// scoreItem is the minimal per-source payload sent to the model. Snippets
// are truncated to keep the batched prompt small.
type scoreItem struct {
	ID      int    `json:"id"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Evaluator scores source credibility in a single batched model call and
// filters the source list down to what the synthesizer should read.
// Already-scored sources are kept as-is and never re-sent.
type Evaluator struct {
	LLM    Generator
	Logger *slog.Logger
}

func (e *Evaluator) Run(ctx context.Context, state *State) error {
	e.Logger.Info("Evaluating sources", "count", len(state.Sources))

	if len(state.Sources) == 0 {
		return nil
	}

	var kept []Source
	var toScore []scoreItem
	for i, src := range state.Sources {
		if src.Scored() {
			kept = append(kept, src)
		} else {
			toScore = append(toScore, scoreItem{
				ID:      i,
				URL:     src.URL,
				Snippet: truncate(src.Content, 600),
			})
		}
	}

	if len(toScore) == 0 {
		state.Sources = kept
		return nil
	}

	payload, err := json.Marshal(toScore)
	if err != nil {
		return fmt.Errorf("marshal score items: %w", err)
	}

	raw, err := e.LLM.Generate(ctx, fmt.Sprintf(evaluatorPromptTemplate, payload))
	if err != nil {
		return err
	}

	var decoded any
	if err := json.Unmarshal([]byte(stripFences(raw)), &decoded); err != nil {
		// Unusable answer: keep everything at the conservative default and
		// skip filtering so the run can still finish.
		e.Logger.Warn("Score JSON parse failed, assigning default", "error", err)
		for _, item := range toScore {
			src := state.Sources[item.ID]
			score := defaultScore
			src.Score = &score
			src.EvalError = fmt.Sprintf("JSON parse failed: %v", err)
			kept = append(kept, src)
		}
		state.Sources = kept
		return nil
	}

	scoreMap := make(map[int]float64)
	if list, ok := decoded.([]any); ok {
		for _, el := range list {
			obj, ok := el.(map[string]any)
			if !ok {
				continue
			}
			id, ok := coerceID(obj["id"])
			if !ok {
				continue
			}
			f, ok := coerceScore(obj["score"])
			if !ok {
				continue
			}
			scoreMap[id] = clamp01(f)
		}
	}

	for _, item := range toScore {
		src := state.Sources[item.ID]
		score, ok := scoreMap[item.ID]
		if !ok {
			score = defaultScore
		}
		src.Score = &score
		kept = append(kept, src)
	}

	filtered := make([]Source, 0, len(kept))
	for _, src := range kept {
		if scoreOf(src) >= keepThreshold {
			filtered = append(filtered, src)
		}
	}

	// Filter, but never wipe everything: with no clear winners the best few
	// low-scoring sources are still better than an empty report.
	if len(filtered) > 0 {
		state.Sources = filtered
	} else {
		state.Sources = topByScore(kept, fallbackKeep)
	}

	e.Logger.Info("Evaluation done", "kept", len(state.Sources))
	return nil
}

func scoreOf(s Source) float64 {
	if s.Score == nil {
		return 0
	}
	return *s.Score
}

// topByScore returns the n highest scored sources, preserving input order
// among equal scores.
func topByScore(sources []Source, n int) []Source {
	out := append([]Source(nil), sources...)
	sort.SliceStable(out, func(i, j int) bool {
		return scoreOf(out[i]) > scoreOf(out[j])
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
