package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"autofill/internal/config"
	"autofill/pkg/logger"
)

// defaultEndpoint is the DuckDuckGo HTML interface. It needs no API key.
const defaultEndpoint = "https://html.duckduckgo.com/html/"

// Result is one search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher is the capability contract for a web search backend.
type Searcher interface {
	// Search runs the query and returns up to the configured number of
	// results. An empty slice with a nil error means the query matched
	// nothing.
	Search(ctx context.Context, query string) ([]Result, error)
}

// DuckDuckGo searches the DuckDuckGo HTML endpoint and scrapes the result
// page.
type DuckDuckGo struct {
	endpoint   string
	maxResults int
	httpClient *http.Client
	log        *logger.Logger
}

// NewDuckDuckGo creates a DuckDuckGo searcher. An empty endpoint in the
// config selects the public HTML interface.
func NewDuckDuckGo(cfg config.SearchConfig) *DuckDuckGo {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	return &DuckDuckGo{
		endpoint:   endpoint,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.New("websearch", ""),
	}
}

// Search runs the query against the HTML endpoint and parses the results.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	searchURL := fmt.Sprintf("%s?q=%s", d.endpoint, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	// The HTML endpoint rejects clients without a browser user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned HTTP %d", resp.StatusCode)
	}

	results, err := parseResults(resp)
	if err != nil {
		return nil, err
	}
	if len(results) > d.maxResults {
		results = results[:d.maxResults]
	}

	d.log.WithPayload(map[string]interface{}{
		"query":   query,
		"results": len(results),
	}).Debug("web search completed")

	return results, nil
}

// parseResults scrapes the result blocks from the DuckDuckGo HTML page.
func parseResults(resp *http.Response) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var results []Result
	doc.Find("div.result").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.result__a")
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return
		}

		results = append(results, Result{
			Title:   title,
			URL:     cleanRedirectURL(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
	})

	return results, nil
}

// cleanRedirectURL unwraps DuckDuckGo's redirect links to the target URL.
func cleanRedirectURL(href string) string {
	const redirectPrefix = "//duckduckgo.com/l/?uddg="
	if !strings.HasPrefix(href, redirectPrefix) {
		return href
	}

	decoded, err := url.QueryUnescape(strings.TrimPrefix(href, redirectPrefix))
	if err != nil {
		return href
	}
	if idx := strings.Index(decoded, "&"); idx > 0 {
		decoded = decoded[:idx]
	}
	return decoded
}

// FormatResults renders search hits as the numbered context block handed to
// the model.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&sb, "   URL: %s\n", r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

var _ Searcher = (*DuckDuckGo)(nil)
