package research

import (
	"context"
	"fmt"
	"log/slog"
)

const plannerPromptTemplate = `Create a research plan for: %s

List 3-4 specific search queries. Keep each query under 20 words.

Format:
1. [query]
2. [query]
3. [query]

Example for "AI in healthcare":
1. AI medical diagnosis accuracy studies
2. AI healthcare implementation challenges
3. Future AI healthcare applications`

// maxPlanSteps caps the plan so a verbose model cannot inflate the number of
// downstream search and evaluation calls.
const maxPlanSteps = 4

// Planner turns a topic into a short list of search queries. It never fails:
// unparseable output falls back to template queries built from the topic,
// and generation errors fall back to a canned plan.
type Planner struct {
	LLM    Generator
	Logger *slog.Logger
}

func (p *Planner) Run(ctx context.Context, state *State) {
	p.Logger.Info("Planning research", "topic", state.Topic)

	output, err := p.LLM.Generate(ctx, fmt.Sprintf(plannerPromptTemplate, state.Topic))
	if err != nil {
		p.Logger.Error("Planner generation failed", "error", err)
		state.Plan = []string{
			fmt.Sprintf("Research overview of %s", state.Topic),
			fmt.Sprintf("Find key developments in %s", state.Topic),
			fmt.Sprintf("Explore challenges in %s", state.Topic),
		}
		state.CurrentStep = 0
		state.Status = "Using fallback plan due to error"
		return
	}

	steps := parsePlanSteps(output, maxPlanSteps)
	if len(steps) == 0 {
		p.Logger.Warn("Failed to parse plan, using default steps")
		steps = []string{
			fmt.Sprintf("Find recent articles about %s", state.Topic),
			fmt.Sprintf("Search for expert opinions on %s", state.Topic),
			fmt.Sprintf("Look for case studies related to %s", state.Topic),
		}
	}

	state.Plan = steps
	state.CurrentStep = 0
	state.Status = fmt.Sprintf("Created plan with %d steps", len(steps))
	p.Logger.Info("Plan created", "steps", len(steps), "plan", steps)
}
