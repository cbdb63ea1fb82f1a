package catalog

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/randalmurphal/bookgraph/pkg/fault"
)

const naverURL = "https://openapi.naver.com/v1/search"

// Naver is a Catalog backed by the Naver book search API.
type Naver struct {
	clientID string
	secret   string
	baseURL  string
	http     *http.Client
	retry    fault.RetryConfig
}

// NaverOption configures a Naver client.
type NaverOption func(*Naver)

// WithNaverBaseURL points the client at another API root.
func WithNaverBaseURL(u string) NaverOption {
	return func(n *Naver) { n.baseURL = strings.TrimRight(u, "/") }
}

// WithNaverHTTPClient replaces the default client (10s timeout).
func WithNaverHTTPClient(c *http.Client) NaverOption {
	return func(n *Naver) { n.http = c }
}

// WithNaverRetry sets the retry policy for transient failures.
func WithNaverRetry(cfg fault.RetryConfig) NaverOption {
	return func(n *Naver) { n.retry = cfg }
}

// NewNaver creates a client for the given application credentials.
func NewNaver(clientID, secret string, opts ...NaverOption) (*Naver, error) {
	if clientID == "" || secret == "" {
		return nil, errors.New("naver: client ID and secret are required")
	}
	n := &Naver{
		clientID: clientID,
		secret:   secret,
		baseURL:  naverURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		retry:    fault.DefaultRetry,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// SearchTitle uses the detailed search restricted to titles. Naver serves
// the detailed search as RSS only.
func (n *Naver) SearchTitle(ctx context.Context, title string, max int) ([]Item, error) {
	return n.search(ctx, "/book_adv.xml", url.Values{"d_titl": {title}}, max, decodeRSS)
}

// Search uses the keyword search.
func (n *Naver) Search(ctx context.Context, keyword string, max int) ([]Item, error) {
	return n.search(ctx, "/book.json", url.Values{"query": {keyword}}, max, decodeJSON)
}

type naverItem struct {
	Title       string `json:"title" xml:"title"`
	Link        string `json:"link" xml:"link"`
	Image       string `json:"image" xml:"image"`
	Author      string `json:"author" xml:"author"`
	Publisher   string `json:"publisher" xml:"publisher"`
	PubDate     string `json:"pubdate" xml:"pubdate"`
	ISBN        string `json:"isbn" xml:"isbn"`
	Description string `json:"description" xml:"description"`
}

type naverResponse struct {
	Total int         `json:"total"`
	Items []naverItem `json:"items"`
}

type naverRSS struct {
	Items []naverItem `xml:"channel>item"`
}

type decodeFunc func([]byte) ([]naverItem, error)

func decodeJSON(body []byte) ([]naverItem, error) {
	var out naverResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func decodeRSS(body []byte) ([]naverItem, error) {
	var out naverRSS
	if err := xml.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (n *Naver) search(ctx context.Context, path string, q url.Values, max int, decode decodeFunc) ([]Item, error) {
	if max <= 0 {
		max = 10
	}
	q.Set("display", strconv.Itoa(min(max, 100)))
	endpoint := n.baseURL + path + "?" + q.Encode()

	res := fault.WithRetryContext(ctx, n.retry, func(ctx context.Context) ([]Item, error) {
		return n.get(ctx, endpoint, decode)
	})
	if res.Err != nil {
		return nil, fmt.Errorf("naver %s: %w", path, res.Err)
	}
	return res.Value, nil
}

func (n *Naver) get(ctx context.Context, endpoint string, decode decodeFunc) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Naver-Client-Id", n.clientID)
	req.Header.Set("X-Naver-Client-Secret", n.secret)

	resp, err := n.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fault.FromResponse(resp, body)
	}

	raw, err := decode(body)
	if err != nil {
		return nil, &fault.MalformedError{Source: "naver", Err: err}
	}

	items := make([]Item, 0, len(raw))
	for _, it := range raw {
		items = append(items, Item{
			Title:       StripMarkup(it.Title),
			Author:      strings.ReplaceAll(StripMarkup(it.Author), "^", ", "),
			Publisher:   StripMarkup(it.Publisher),
			Description: StripMarkup(it.Description),
			Image:       strings.TrimSpace(it.Image),
			Link:        strings.TrimSpace(it.Link),
			ISBN:        strings.TrimSpace(it.ISBN),
			PubDate:     strings.TrimSpace(it.PubDate),
		})
	}
	return items, nil
}

// StripMarkup returns the text content of an HTML fragment, entities decoded
// and whitespace collapsed.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" || string(name) == "p" {
				b.WriteByte(' ')
			}
		}
	}
}
