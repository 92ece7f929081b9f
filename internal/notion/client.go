// Package notion reads pages from a Notion data source as raw records.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/activitymap/internal/config"
	"github.com/fyrsmithlabs/activitymap/internal/logging"
	"github.com/fyrsmithlabs/activitymap/internal/record"
)

const (
	DefaultBaseURL     = "https://api.notion.com"
	DefaultVersion     = "2025-09-03"
	defaultPageSize    = 100
	defaultTimeout     = 30 * time.Second
	defaultRateLimit   = 3 // Notion's documented average
	defaultMaxRetries  = 3
	defaultBaseBackoff = time.Second
	maxResponseSize    = 16 * 1024 * 1024
)

// ErrUnauthorized is returned when Notion rejects the integration token.
var ErrUnauthorized = errors.New("notion: unauthorized")

// Config configures a Client.
type Config struct {
	BaseURL     string
	Token       config.Secret
	Version     string
	PageSize    int
	Timeout     time.Duration
	RateLimit   float64 // requests per second
	MaxRetries  int
	BaseBackoff time.Duration
}

// ConfigFrom maps the application configuration onto a client Config.
func ConfigFrom(c config.NotionConfig) Config {
	return Config{
		BaseURL:    c.BaseURL,
		Token:      c.Token,
		Version:    c.Version,
		PageSize:   c.PageSize,
		Timeout:    c.Timeout.Duration(),
		RateLimit:  c.RateLimit,
		MaxRetries: c.MaxRetries,
	}
}

// Client queries Notion data sources.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	version     string
	pageSize    int
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	logger      *logging.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	base   *http.Client
	logger *logging.Logger
}

// WithHTTPClient sets the HTTP client the authenticated transport wraps.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.base = c }
}

// WithLogger sets the client logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// NewClient creates a client authenticated with cfg.Token.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if !cfg.Token.IsSet() {
		return nil, fmt.Errorf("notion: token is required")
	}
	o := clientOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.PageSize <= 0 || cfg.PageSize > defaultPageSize {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}

	base := o.base
	if base == nil {
		base = &http.Client{}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token.Value(), TokenType: "Bearer"})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = cfg.Timeout

	return &Client{
		httpClient:  hc,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		version:     cfg.Version,
		pageSize:    cfg.PageSize,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.BaseBackoff,
		logger:      o.logger,
	}, nil
}

// DataSource returns a record.Source over every page of the data source id.
func (c *Client) DataSource(id string) *DataSource {
	return &DataSource{client: c, id: id}
}

// DataSource pages through one Notion data source.
type DataSource struct {
	client *Client
	id     string
}

// Records implements record.Source. Pages are fetched lazily as the sequence
// is consumed; a fetch error is yielded once and ends the sequence.
func (d *DataSource) Records(ctx context.Context) iter.Seq2[record.Raw, error] {
	return func(yield func(record.Raw, error) bool) {
		cursor := ""
		total := 0
		for {
			page, err := d.client.query(ctx, d.id, cursor)
			if err != nil {
				yield(record.Raw{}, err)
				return
			}
			total += len(page.Results)
			d.client.logger.Debug(ctx, "fetched notion page",
				zap.String("datasource_id", d.id),
				zap.Int("results", len(page.Results)),
				zap.Int("total", total))

			for _, raw := range page.Results {
				r := record.Raw{ID: gjson.GetBytes(raw, "id").String(), JSON: raw}
				if !yield(r, nil) {
					return
				}
			}
			if !page.HasMore || page.NextCursor == "" {
				return
			}
			cursor = page.NextCursor
		}
	}
}

type queryRequest struct {
	PageSize    int    `json:"page_size"`
	StartCursor string `json:"start_cursor,omitempty"`
}

type queryResponse struct {
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor string            `json:"next_cursor"`
}

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type retryableError struct {
	err        error
	retryAfter time.Duration
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// query fetches one page, retrying 429 and 5xx responses with exponential
// backoff. A Retry-After header longer than the backoff wins.
func (c *Client) query(ctx context.Context, id, cursor string) (*queryResponse, error) {
	body, err := json.Marshal(queryRequest{PageSize: c.pageSize, StartCursor: cursor})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			var re *retryableError
			if errors.As(lastErr, &re) && re.retryAfter > backoff {
				backoff = re.retryAfter
			}
			c.logger.Warn(ctx, "retrying notion query",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doQuery(ctx, id, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		var re *retryableError
		if !errors.As(err, &re) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("notion: max retries exceeded: %w", lastErr)
}

func (c *Client) doQuery(ctx context.Context, id string, body []byte) (*queryResponse, error) {
	url := fmt.Sprintf("%s/v1/data_sources/%s/query", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retryableError{err: fmt.Errorf("notion request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &retryableError{
			err:        fmt.Errorf("notion: rate limited (429)"),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 500:
		return nil, &retryableError{err: fmt.Errorf("notion: server error (%d): %s", resp.StatusCode, apiMessage(data))}
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, apiMessage(data))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("notion: API error (%d): %s", resp.StatusCode, apiMessage(data))
	}

	var out queryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &out, nil
}

func apiMessage(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return strings.TrimSpace(string(body))
}

// parseRetryAfter reads a Retry-After value in seconds. Zero means absent.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
