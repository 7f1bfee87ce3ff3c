package research

import (
	"regexp"
	"strconv"
	"strings"
)

// Models wrap JSON in markdown fences often enough that stripping them is
// cheaper than re-prompting. Only fences at the very start and end are
// removed; fences inside the payload belong to the payload.
var fenceRe = regexp.MustCompile("(?i)^```(?:json)?|```$")

func stripFences(raw string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(strings.TrimSpace(raw), ""))
}

// planStripChars covers numbering, bullets and the whitespace around them.
const planStripChars = "0123456789.-•) \t"

// parsePlanSteps turns a model's plan response into clean query strings.
// Numbered or bulleted lines are preferred; when none match, every non-blank
// line is taken as a step. The result is capped at maxSteps.
func parsePlanSteps(output string, maxSteps int) []string {
	var steps []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if (line[0] >= '0' && line[0] <= '9') || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
			if clean := strings.TrimLeft(line, planStripChars); clean != "" {
				steps = append(steps, clean)
			}
		}
	}

	if len(steps) == 0 {
		for _, line := range strings.Split(output, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				steps = append(steps, line)
			}
		}
	}

	if len(steps) > maxSteps {
		steps = steps[:maxSteps]
	}
	return steps
}

// coerceID accepts the id shapes models actually return: JSON numbers
// (truncated) and integer strings.
func coerceID(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// coerceScore accepts JSON numbers and numeric strings.
func coerceScore(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func clamp01(f float64) float64 {
	return max(0.0, min(1.0, f))
}

// truncate returns s cut to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
