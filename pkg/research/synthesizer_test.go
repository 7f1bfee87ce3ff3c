package research

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newSynthesizer(gen Generator) *Synthesizer {
	return &Synthesizer{
		LLM:    gen,
		Logger: discardLogger(),
		Now: func() time.Time {
			return time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)
		},
	}
}

func TestSynthesizerIdempotent(t *testing.T) {
	gen := &fakeGen{respond: func(string) (string, error) {
		t.Error("generator must not be called when a report exists")
		return "", nil
	}}
	s := newSynthesizer(gen)

	state := NewState("t")
	state.Report = "already written"
	state.Sources = []Source{scored("https://a.example", 0.9)}

	if err := s.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if state.Report != "already written" {
		t.Errorf("Report = %q, want unchanged", state.Report)
	}
}

func TestSynthesizerEmptySourcesDiagnostic(t *testing.T) {
	gen := &fakeGen{respond: func(string) (string, error) {
		t.Error("generator must not be called without sources")
		return "", nil
	}}
	s := newSynthesizer(gen)

	state := NewState("t")
	if err := s.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if state.Report != "No sources were retrieved. Check Tavily key/config or try a different query." {
		t.Errorf("Report = %q", state.Report)
	}
}

func TestSynthesizerPromptShape(t *testing.T) {
	var prompt string
	gen := &fakeGen{respond: func(p string) (string, error) {
		prompt = p
		return "# Research Report: ocean cleanup\n...", nil
	}}
	s := newSynthesizer(gen)

	long := strings.Repeat("z", 1000)
	state := NewState("ocean cleanup")
	state.Sources = []Source{
		scored("https://a.example", 0.9),
		{URL: "https://b.example", Content: long, SourceType: "tavily"},
	}
	state.Sources[0].Content = "short note"

	if err := s.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if state.Report != "# Research Report: ocean cleanup\n..." {
		t.Errorf("Report = %q", state.Report)
	}

	for _, want := range []string{
		"# Research Report: ocean cleanup",
		"## Key Findings",
		"## Conflicting Viewpoints",
		"## References",
		"Date: March 07, 2025",
		"Source (https://a.example): short note",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if !strings.Contains(prompt, "Source (https://b.example): "+strings.Repeat("z", 900)) {
		t.Error("long note should appear truncated")
	}
	if strings.Contains(prompt, strings.Repeat("z", 901)) {
		t.Error("notes must be truncated to 900 characters")
	}
}

func TestSynthesizerGenerationErrorPropagates(t *testing.T) {
	boom := errors.New("model down")
	gen := &fakeGen{respond: func(string) (string, error) {
		return "", boom
	}}
	s := newSynthesizer(gen)

	state := NewState("t")
	state.Sources = []Source{scored("https://a.example", 0.9)}

	if err := s.Run(context.Background(), state); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
	if state.Report != "" {
		t.Errorf("Report = %q, want empty after failure", state.Report)
	}
}
