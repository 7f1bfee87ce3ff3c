package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestTavily(url string) *Tavily {
	t := NewTavily("tvly-test-key")
	t.BaseURL = url
	t.RetryDelay = time.Millisecond
	return t
}

func TestTavilySearchRequestShape(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "Qubits 101", "url": "https://a.example/qubits", "content": "intro"},
			},
		})
	}))
	defer srv.Close()

	tv := newTestTavily(srv.URL)
	results, err := tv.Search(context.Background(), "quantum computing", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotBody["api_key"] != "tvly-test-key" {
		t.Errorf("api_key = %v", gotBody["api_key"])
	}
	if gotBody["query"] != "quantum computing" {
		t.Errorf("query = %v", gotBody["query"])
	}
	if gotBody["search_depth"] != "basic" {
		t.Errorf("search_depth = %v", gotBody["search_depth"])
	}
	if gotBody["max_results"] != float64(5) {
		t.Errorf("max_results = %v", gotBody["max_results"])
	}
	if gotBody["include_answer"] != false || gotBody["include_raw_content"] != false {
		t.Errorf("answer/raw_content flags = %v / %v", gotBody["include_answer"], gotBody["include_raw_content"])
	}

	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].URL != "https://a.example/qubits" || results[0].Content != "intro" {
		t.Errorf("unexpected result: %+v", results[0])
	}
}

func TestTavilySearchRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{{"title": "ok", "url": "https://b.example", "content": "c"}},
		})
	}))
	defer srv.Close()

	tv := newTestTavily(srv.URL)
	results, err := tv.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("requests made = %d, want 3", got)
	}
	if len(results) != 1 {
		t.Errorf("len(results) = %d, want 1", len(results))
	}
}

func TestTavilySearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	t.Run("http error", func(t *testing.T) {
		tv := newTestTavily(srv.URL)
		if _, err := tv.Search(context.Background(), "q", 5); err == nil {
			t.Error("Search() expected error on 401")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		tv := newTestTavily(srv.URL)
		tv.APIKey = "  "
		if _, err := tv.Search(context.Background(), "q", 5); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("Search() error = %v, want ErrMissingAPIKey", err)
		}
	})
}

func TestTavilySearchCapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var items []map[string]string
		for i := 0; i < 10; i++ {
			items = append(items, map[string]string{
				"title":   "t",
				"url":     "https://example.com/" + string(rune('a'+i)),
				"content": "c",
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"results": items})
	}))
	defer srv.Close()

	tv := newTestTavily(srv.URL)
	results, err := tv.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 5 {
		t.Errorf("len(results) = %d, want 5", len(results))
	}
}
