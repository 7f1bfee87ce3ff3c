package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const synthesizerPromptTemplate = `
Write a structured research report on:

%s

Date: %s
Do NOT include placeholder author names.

Include these headings exactly:
# Research Report: %s
## Date
## Overview
## Key Findings
## Conflicting Viewpoints
## Conclusion
## References

Rules:
- Use concise bullets under Key Findings.
- References must be a bullet list of clickable URLs (prefer the exact source URLs from notes).
- Do not invent citations that aren't in the notes.

Research Notes:
%s
`

// emptySourcesReport is the diagnostic report used when the whole run
// produced no sources to read.
const emptySourcesReport = "No sources were retrieved. Check Tavily key/config or try a different query."

// Synthesizer writes the final markdown report from the surviving sources.
// It is idempotent: a state that already carries a report passes through
// untouched.
type Synthesizer struct {
	LLM    Generator
	Logger *slog.Logger

	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *Synthesizer) Run(ctx context.Context, state *State) error {
	if state.Report != "" {
		return nil
	}

	if len(state.Sources) == 0 {
		state.Report = emptySourcesReport
		return nil
	}

	notes := make([]string, 0, len(state.Sources))
	for _, src := range state.Sources {
		notes = append(notes, fmt.Sprintf("Source (%s): %s", src.URL, truncate(src.Content, 900)))
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	today := now.Format("January 02, 2006")

	s.Logger.Info("Synthesizing report", "sources", len(state.Sources))

	report, err := s.LLM.Generate(ctx, fmt.Sprintf(synthesizerPromptTemplate,
		state.Topic, today, state.Topic, strings.Join(notes, "\n\n")))
	if err != nil {
		return err
	}

	state.Report = report
	return nil
}
