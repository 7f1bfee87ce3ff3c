package research

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

// fakeGen scripts Generator responses and records the prompts it saw.
type fakeGen struct {
	respond func(prompt string) (string, error)
	prompts []string
}

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.respond(prompt)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPlannerParsesNumberedPlan(t *testing.T) {
	gen := &fakeGen{respond: func(string) (string, error) {
		return "1. quantum computing hardware progress 2025\n2. quantum error correction milestones\n3. quantum computing industry applications", nil
	}}
	p := &Planner{LLM: gen, Logger: discardLogger()}

	state := NewState("Quantum computing")
	p.Run(context.Background(), state)

	want := []string{
		"quantum computing hardware progress 2025",
		"quantum error correction milestones",
		"quantum computing industry applications",
	}
	if !reflect.DeepEqual(state.Plan, want) {
		t.Errorf("Plan = %#v, want %#v", state.Plan, want)
	}
	if state.CurrentStep != 0 {
		t.Errorf("CurrentStep = %d, want 0", state.CurrentStep)
	}
	if state.Status != "Created plan with 3 steps" {
		t.Errorf("Status = %q", state.Status)
	}

	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "Quantum computing") {
		t.Errorf("prompt should embed the topic, got %q", gen.prompts)
	}
}

func TestPlannerCapsPlanAtFour(t *testing.T) {
	gen := &fakeGen{respond: func(string) (string, error) {
		return "1. a\n2. b\n3. c\n4. d\n5. e", nil
	}}
	p := &Planner{LLM: gen, Logger: discardLogger()}

	state := NewState("t")
	p.Run(context.Background(), state)

	if len(state.Plan) != 4 {
		t.Errorf("len(Plan) = %d, want 4", len(state.Plan))
	}
	if state.Status != "Created plan with 4 steps" {
		t.Errorf("Status = %q", state.Status)
	}
}

func TestPlannerDefaultStepsWhenUnparseable(t *testing.T) {
	gen := &fakeGen{respond: func(string) (string, error) {
		return "   \n\n", nil
	}}
	p := &Planner{LLM: gen, Logger: discardLogger()}

	state := NewState("solar batteries")
	p.Run(context.Background(), state)

	want := []string{
		"Find recent articles about solar batteries",
		"Search for expert opinions on solar batteries",
		"Look for case studies related to solar batteries",
	}
	if !reflect.DeepEqual(state.Plan, want) {
		t.Errorf("Plan = %#v, want %#v", state.Plan, want)
	}
	if state.Status != "Created plan with 3 steps" {
		t.Errorf("Status = %q", state.Status)
	}
}

func TestPlannerFallbackOnGenerationError(t *testing.T) {
	gen := &fakeGen{respond: func(string) (string, error) {
		return "", errors.New("boom")
	}}
	p := &Planner{LLM: gen, Logger: discardLogger()}

	state := NewState("solar batteries")
	state.CurrentStep = 2 // stale value from a previous run must be reset
	p.Run(context.Background(), state)

	want := []string{
		"Research overview of solar batteries",
		"Find key developments in solar batteries",
		"Explore challenges in solar batteries",
	}
	if !reflect.DeepEqual(state.Plan, want) {
		t.Errorf("Plan = %#v, want %#v", state.Plan, want)
	}
	if state.CurrentStep != 0 {
		t.Errorf("CurrentStep = %d, want 0", state.CurrentStep)
	}
	if state.Status != "Using fallback plan due to error" {
		t.Errorf("Status = %q", state.Status)
	}
}
