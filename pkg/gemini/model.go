package gemini

import (
	"context"

	"github.com/tmc/langchaingo/llms/googleai"
)

// NewModel constructs the langchaingo Gemini model used for generation.
// See https://ai.google.dev/gemini-api/docs/models/gemini for possible models
func NewModel(ctx context.Context, apiKey, model string) (*googleai.GoogleAI, error) {
	return googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
}
