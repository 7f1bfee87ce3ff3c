package gemini

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// RateLimitError reports that every attempt against the model hit a quota
// error and the retries are exhausted.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return "Gemini API rate limit exceeded. Please wait a few minutes and try again. " +
		"Consider upgrading your API key or reducing request frequency."
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// Client wraps an LLM with request pacing and quota-aware retries.
// Every call is spaced at least Throttle.Interval apart; quota errors are
// retried with exponential backoff while other errors propagate unchanged.
type Client struct {
	Model    llms.Model
	Logger   *slog.Logger
	Throttle *Throttle

	// Retry knobs, overridable before first use.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func NewClient(model llms.Model) *Client {
	return &Client{
		Model:       model,
		Logger:      slog.Default(),
		Throttle:    &Throttle{Interval: 2 * time.Second},
		MaxAttempts: 3,
		BaseDelay:   3 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Generate sends a single prompt and returns the model's text response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.Throttle.Wait(ctx); err != nil {
		return "", err
	}

	delay := c.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		c.Throttle.Mark()
		c.Logger.Info("Calling Gemini", "attempt", attempt, "max_attempts", c.MaxAttempts)

		resp, err := c.Model.GenerateContent(ctx, []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, prompt),
		})
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("gemini returned no choices")
			}
			return resp.Choices[0].Content, nil
		}

		lastErr = err
		if !isQuotaError(err) {
			return "", err
		}

		c.Logger.Warn("Rate limit hit", "attempt", attempt, "max_attempts", c.MaxAttempts, "delay", delay)
		if attempt < c.MaxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay = min(delay*2, c.MaxDelay)
		}
	}

	c.Logger.Error("Rate limit retries exhausted")
	return "", &RateLimitError{Err: lastErr}
}

// GenerateWithFallback behaves like Generate but swallows rate limit
// exhaustion, returning fallback (or a canned notice when fallback is empty)
// instead of an error.
func (c *Client) GenerateWithFallback(ctx context.Context, prompt, fallback string) (string, error) {
	text, err := c.Generate(ctx, prompt)
	if err != nil {
		if IsRateLimit(err) {
			c.Logger.Warn("Using fallback response due to rate limit")
			if fallback != "" {
				return fallback, nil
			}
			return "Rate limit reached. Please try again in a few minutes.", nil
		}
		return "", err
	}
	return text, nil
}

// isQuotaError matches the wire shapes Gemini uses for quota exhaustion.
func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "quota")
}
