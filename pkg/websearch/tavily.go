package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/randalmurphal/bookgraph/pkg/fault"
)

const tavilyURL = "https://api.tavily.com"

// Tavily is a Searcher backed by the Tavily search API.
type Tavily struct {
	apiKey     string
	baseURL    string
	maxResults int
	depth      string
	http       *http.Client
	retry      fault.RetryConfig
}

// TavilyOption configures a Tavily client.
type TavilyOption func(*Tavily)

// WithBaseURL points the client at another API root.
func WithBaseURL(url string) TavilyOption {
	return func(t *Tavily) { t.baseURL = url }
}

// WithMaxResults caps the results per search. Default: 5.
func WithMaxResults(n int) TavilyOption {
	return func(t *Tavily) {
		if n > 0 {
			t.maxResults = n
		}
	}
}

// WithSearchDepth selects "basic" or "advanced".
func WithSearchDepth(depth string) TavilyOption {
	return func(t *Tavily) { t.depth = depth }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) TavilyOption {
	return func(t *Tavily) { t.http = c }
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg fault.RetryConfig) TavilyOption {
	return func(t *Tavily) { t.retry = cfg }
}

// NewTavily creates a client for apiKey.
func NewTavily(apiKey string, opts ...TavilyOption) (*Tavily, error) {
	if apiKey == "" {
		return nil, errors.New("tavily: API key is required")
	}
	t := &Tavily{
		apiKey:     apiKey,
		baseURL:    tavilyURL,
		maxResults: 5,
		depth:      "basic",
		http:       &http.Client{Timeout: 15 * time.Second},
		retry:      fault.DefaultRetry,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

type tavilyRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []json.RawMessage `json:"results"`
}

// Search implements Searcher. Result items are returned undecoded.
func (t *Tavily) Search(ctx context.Context, query string) ([]json.RawMessage, error) {
	body, err := json.Marshal(tavilyRequest{Query: query, MaxResults: t.maxResults, SearchDepth: t.depth})
	if err != nil {
		return nil, err
	}

	res := fault.WithRetryContext(ctx, t.retry, func(ctx context.Context) ([]json.RawMessage, error) {
		return t.do(ctx, body)
	})
	if res.Err != nil {
		return nil, fmt.Errorf("tavily search: %w", res.Err)
	}
	return res.Value, nil
}

func (t *Tavily) do(ctx context.Context, body []byte) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fault.FromResponse(resp, data)
	}

	var out tavilyResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &fault.MalformedError{Source: "tavily", Err: err}
	}
	return out.Results, nil
}
