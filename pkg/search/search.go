// Package search provides the web search providers the research pipeline
// draws its sources from.
package search

import "context"

// Result is a single item returned by a provider.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Provider executes a search query against an external index.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}
