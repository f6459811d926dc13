package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lakestreetlabs/finquill/internal/config"
)

const webSearchToolName = "WebSearchTool"

const webSearchDescription = "Perform a real web search using the Google Custom Search API. " +
	"Args: 'query' (string, required) and optional 'num_results' (int, default 5)."

// WebSearchTool queries the Google Custom Search API.
type WebSearchTool struct {
	apiKey   string
	cseID    string
	endpoint string
	client   *http.Client
}

func NewWebSearchTool(cfg config.ToolsConfig) *WebSearchTool {
	return &WebSearchTool{
		apiKey:   cfg.GoogleAPIKey,
		cseID:    cfg.GoogleCSEID,
		endpoint: config.DefaultSearchEndpoint,
		client:   &http.Client{Timeout: time.Duration(cfg.HTTPTimeout) * time.Second},
	}
}

func (w *WebSearchTool) Name() string        { return webSearchToolName }
func (w *WebSearchTool) Description() string { return webSearchDescription }

func (w *WebSearchTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	numResults := intArg(args, "num_results", 5)
	if numResults < 1 {
		numResults = 1
	}
	if numResults > 10 {
		numResults = 10 // Custom Search API page limit
	}

	results, err := w.search(ctx, query, numResults)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"query":   query,
		"results": results,
		"source":  "google_custom_search_api",
	}, nil
}

func (w *WebSearchTool) search(ctx context.Context, query string, numResults int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("key", w.apiKey)
	q.Set("cx", w.cseID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(numResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: status %d", resp.StatusCode)
	}

	var body struct {
		Items []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]map[string]any, 0, len(body.Items))
	for _, item := range body.Items {
		results = append(results, map[string]any{
			"title":   item.Title,
			"snippet": item.Snippet,
			"link":    item.Link,
		})
	}
	return results, nil
}

// WithEndpoint points the tool at a different API endpoint. Used by tests.
func (w *WebSearchTool) WithEndpoint(endpoint string) *WebSearchTool {
	w.endpoint = endpoint
	return w
}
