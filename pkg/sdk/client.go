package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to a gamedex server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the given base URL (scheme and host, no path).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a hybrid search.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.get(ctx, "/api/v1/search", searchValues(params), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Game fetches a single game by id.
func (c *Client) Game(ctx context.Context, id int) (*Game, error) {
	var g Game
	if err := c.get(ctx, "/api/v1/games/"+strconv.Itoa(id), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Suggest returns title completions for a prefix.
func (c *Client) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	values := url.Values{"q": {prefix}}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var resp SuggestResponse
	if err := c.get(ctx, "/api/v1/suggest", values, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// Reload triggers a corpus rebuild and waits for it to finish.
func (c *Client) Reload(ctx context.Context) (*ReloadStats, error) {
	var stats ReloadStats
	if err := c.do(ctx, http.MethodPost, "/api/v1/reload", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Health fetches the engine health report. A degraded or unhealthy engine is
// not an error; inspect Health.Status.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &h, nil
}

func searchValues(p SearchParams) url.Values {
	values := url.Values{"q": {p.Query}}
	if p.Limit > 0 {
		values.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		values.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.PriceMaxCents != nil {
		values.Set("price_max", strconv.FormatInt(*p.PriceMaxCents, 10))
	}
	if p.PriceMinCents != nil {
		values.Set("price_min", strconv.FormatInt(*p.PriceMinCents, 10))
	}
	if len(p.Platforms) > 0 {
		values.Set("platforms", strings.Join(p.Platforms, ","))
	}
	if p.Coop != "" {
		values.Set("coop", p.Coop)
	}
	if p.Type != "" {
		values.Set("type", p.Type)
	}
	if len(p.Genres) > 0 {
		values.Set("genres", strings.Join(p.Genres, ","))
	}
	if p.ReleasedAfter != nil {
		values.Set("released_after", p.ReleasedAfter.UTC().Format("2006-01-02"))
	}
	if p.ReleasedBefore != nil {
		values.Set("released_before", p.ReleasedBefore.UTC().Format("2006-01-02"))
	}
	if p.MinReviews != nil {
		values.Set("min_reviews", strconv.Itoa(*p.MinReviews))
	}
	return values
}

func (c *Client) get(ctx context.Context, path string, values url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, values, out)
}

func (c *Client) do(ctx context.Context, method, path string, values url.Values, out any) error {
	req, err := c.newRequest(ctx, method, path, values)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, values url.Values) (*http.Request, error) {
	u := c.baseURL + path
	if len(values) > 0 {
		u += "?" + values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || json.Unmarshal(body, apiErr) != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
