// Package websearch gathers supplementary research material for a section.
// Results are cached per section: revision passes reuse the material
// fetched for the first draft verbatim.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/courseforge/courseforge/internal/config"
	"github.com/courseforge/courseforge/internal/course"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Provider runs one search query.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// TavilyClient is a Provider backed by the Tavily search API.
type TavilyClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewTavilyClient builds a client with the default endpoint.
func NewTavilyClient(apiKey string) *TavilyClient {
	return &TavilyClient{
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []Result `json:"results"`
}

// Search posts the query and decodes the hits.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	body, err := json.Marshal(tavilyRequest{APIKey: c.apiKey, Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, fmt.Errorf("websearch: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("websearch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("websearch: search returned %s", resp.Status)
	}
	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("websearch: decode response: %w", err)
	}
	return decoded.Results, nil
}

// SectionCache adapts a Provider to the orchestrator's resource contract
// and guarantees one search per section, even across retries.
type SectionCache struct {
	provider   Provider
	maxResults int
	log        *zap.Logger

	mu      sync.Mutex
	entries map[string]string
}

// NewSectionCache wraps the provider with per-section memoization.
func NewSectionCache(provider Provider, cfg config.SearchConfig, log *zap.Logger) *SectionCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &SectionCache{
		provider:   provider,
		maxResults: cfg.MaxResults,
		log:        log,
		entries:    make(map[string]string),
	}
}

// Resources returns the formatted research block for a section, searching
// at most once per section id.
func (c *SectionCache) Resources(ctx context.Context, spec course.SectionSpec) (string, error) {
	c.mu.Lock()
	cached, ok := c.entries[spec.ID]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	query := strings.TrimSpace(spec.Title + " " + spec.Description)
	results, err := c.provider.Search(ctx, query, c.maxResults)
	if err != nil {
		return "", fmt.Errorf("websearch: section %s: %w", spec.ID, err)
	}
	formatted := FormatResults(results)
	c.log.Debug("web resources cached",
		zap.String("section", spec.ID),
		zap.Int("results", len(results)),
	)

	c.mu.Lock()
	c.entries[spec.ID] = formatted
	c.mu.Unlock()
	return formatted, nil
}

// FormatResults renders search hits into the block handed to the drafting
// agent.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No supplementary web resources were found for this section.\n"
	}
	var b strings.Builder
	b.WriteString("WEB RESOURCES (supplementary, verify before citing):\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if content := strings.TrimSpace(r.Content); content != "" {
			fmt.Fprintf(&b, "   %s\n", content)
		}
	}
	return b.String()
}
