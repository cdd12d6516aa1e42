package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	duckDuckGoURL     = "https://api.duckduckgo.com/"
	maxSearchBodySize = 512 * 1024 // 512KB
)

// ddgTopic is one entry of the instant-answer response. Category
// entries carry no result themselves but nest further topics.
type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

// ddgResponse models the relevant portion of the DuckDuckGo
// instant-answer JSON response.
type ddgResponse struct {
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// DuckDuckGoBackend searches via the DuckDuckGo instant-answer API.
// The API is unauthenticated, so requests go through a client-side
// rate limiter to stay polite.
type DuckDuckGoBackend struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewDuckDuckGoBackend creates a DuckDuckGo search backend throttled to
// maxQPS requests per second with the given burst.
func NewDuckDuckGoBackend(maxQPS float64, burst int, logger *slog.Logger) *DuckDuckGoBackend {
	if maxQPS <= 0 {
		maxQPS = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &DuckDuckGoBackend{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: duckDuckGoURL,
		limiter: rate.NewLimiter(rate.Limit(maxQPS), burst),
		logger:  logger,
	}
}

func (b *DuckDuckGoBackend) Name() string { return "duckduckgo" }

func (b *DuckDuckGoBackend) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var ddg ddgResponse
	if err := json.Unmarshal(body, &ddg); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := collectResults(ddg, count)
	b.logger.Debug("duckduckgo search completed", "query", query, "results", len(results))
	return results, nil
}

// collectResults flattens the instant answer plus related topics into
// search results, capped at count.
func collectResults(ddg ddgResponse, count int) []SearchResult {
	var results []SearchResult

	if ddg.AbstractText != "" && ddg.AbstractURL != "" {
		results = append(results, SearchResult{
			Title:   ddg.Heading,
			URL:     ddg.AbstractURL,
			Snippet: ddg.AbstractText,
		})
	}

	var walk func(topics []ddgTopic)
	walk = func(topics []ddgTopic) {
		for _, t := range topics {
			if len(results) >= count {
				return
			}
			if len(t.Topics) > 0 {
				walk(t.Topics)
				continue
			}
			if t.FirstURL == "" || t.Text == "" {
				continue
			}
			title, snippet := splitTopicText(t.Text)
			results = append(results, SearchResult{Title: title, URL: t.FirstURL, Snippet: snippet})
		}
	}
	walk(ddg.RelatedTopics)

	if len(results) > count {
		results = results[:count]
	}
	return results
}

// splitTopicText splits a "Title - snippet" topic text. Topics without
// the separator use the whole text as both title and snippet.
func splitTopicText(text string) (title, snippet string) {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i], strings.TrimSpace(text[i+3:])
	}
	return text, text
}
