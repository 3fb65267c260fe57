package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"autofill/internal/config"
)

const resultsPage = `<!DOCTYPE html>
<html><body>
<div class="result results_links results_links_deep web-result">
  <h2 class="result__title">
    <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Frevenue&amp;rut=abc">Acme Corp 2023 Revenue</a>
  </h2>
  <a class="result__snippet" href="https://example.com/revenue">Acme Corp reported revenue of $12M in 2023.</a>
</div>
<div class="result results_links results_links_deep web-result">
  <h2 class="result__title">
    <a class="result__a" href="https://example.org/about">About Acme</a>
  </h2>
  <a class="result__snippet" href="https://example.org/about">Acme Corp is a fictional company.</a>
</div>
</body></html>`

func newTestSearcher(t *testing.T, handler http.HandlerFunc, maxResults int) *DuckDuckGo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDuckDuckGo(config.SearchConfig{
		Endpoint:   srv.URL,
		MaxResults: maxResults,
		TimeoutSec: 5,
	})
}

func TestSearchParsesResults(t *testing.T) {
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "acme revenue" {
			t.Errorf("query = %q, want %q", got, "acme revenue")
		}
		w.Write([]byte(resultsPage))
	}, 5)

	results, err := searcher.Search(context.Background(), "acme revenue")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	first := results[0]
	if first.Title != "Acme Corp 2023 Revenue" {
		t.Errorf("title = %q", first.Title)
	}
	if first.URL != "https://example.com/revenue" {
		t.Errorf("redirect URL not unwrapped: %q", first.URL)
	}
	if first.Snippet == "" {
		t.Error("snippet is empty")
	}
}

func TestSearchCapsResults(t *testing.T) {
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsPage))
	}, 1)

	results, err := searcher.Search(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}

func TestSearchEmptyPage(t *testing.T) {
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body></body></html>"))
	}, 5)

	results, err := searcher.Search(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
}

func TestSearchHTTPError(t *testing.T) {
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, 5)

	if _, err := searcher.Search(context.Background(), "acme"); err == nil {
		t.Fatal("expected error on HTTP 403")
	}
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]Result{
		{Title: "T1", URL: "https://a", Snippet: "S1"},
		{Title: "T2", URL: "https://b"},
	})
	want := "1. T1\n   URL: https://a\n   S1\n\n2. T2\n   URL: https://b"
	if out != want {
		t.Errorf("FormatResults = %q, want %q", out, want)
	}

	if got := FormatResults(nil); got != "No results found." {
		t.Errorf("FormatResults(nil) = %q", got)
	}
}
