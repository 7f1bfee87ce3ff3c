package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title> Quantum Error Correction Advances </title>
    <summary>
      A survey of recent progress in quantum error correction.
    </summary>
    <published>2024-05-01T00:00:00Z</published>
    <link href="https://arxiv.org/abs/2405.00001" type="text/html"/>
    <link href="https://arxiv.org/pdf/2405.00001" type="application/pdf"/>
  </entry>
  <entry>
    <title>Topological Qubits</title>
    <summary>No PDF link on this one.</summary>
    <published>2024-06-11T00:00:00Z</published>
    <link href="https://arxiv.org/abs/2406.00002" type="text/html"/>
  </entry>
</feed>`

func TestArxivSearchParsesFeed(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		if mr := r.URL.Query().Get("max_results"); mr != "2" {
			t.Errorf("max_results = %q, want 2", mr)
		}
		w.Write([]byte(arxivFixture))
	}))
	defer srv.Close()

	a := NewArxiv()
	a.BaseURL = srv.URL

	results, err := a.Search(context.Background(), "quantum error correction", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotQuery != "quantum error correction" {
		t.Errorf("search_query = %q", gotQuery)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	first := results[0]
	if first.Title != "Quantum Error Correction Advances" {
		t.Errorf("title not trimmed: %q", first.Title)
	}
	if first.URL != "https://arxiv.org/pdf/2405.00001" {
		t.Errorf("URL = %q, want the PDF link", first.URL)
	}
	if first.Content == "" {
		t.Error("content should carry the abstract")
	}

	if results[1].URL != "" {
		t.Errorf("entry without PDF link should have empty URL, got %q", results[1].URL)
	}
}

func TestArxivSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewArxiv()
	a.BaseURL = srv.URL

	if _, err := a.Search(context.Background(), "q", 5); err == nil {
		t.Error("Search() expected error on 503")
	}
}
