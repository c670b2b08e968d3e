// Package apiclient is the HTTP client for the forest backend REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eforest-finance/forest-agent-kit/netutil"
)

// Client performs JSON requests against a base URL.
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string
	token       string
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
	maxRetries  int
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent on authenticated requests.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying client. Retries are then the
// caller's responsibility.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithRetries sets how often idempotent requests are retried on 429 and
// gateway errors. Negative disables retries.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithLogger sets the logger used for request and retry logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      slog.Default(),
		userAgent:   "forest-agent-kit",
		timeout:     30 * time.Second,
		maxBodySize: netutil.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &netutil.RetryTransport{
				Base:       http.DefaultTransport,
				MaxRetries: c.maxRetries,
				OnRetry: func(attempt int, wait time.Duration, status int) {
					c.logger.Warn("retrying api request",
						slog.Int("attempt", attempt),
						slog.Duration("wait", wait),
						slog.Int("status", status))
				},
			},
		}
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Request is a single API call.
type Request struct {
	// Params are sent as the query string for GET and as a JSON body otherwise.
	Params map[string]any

	// Method defaults to GET.
	Method string

	// Path is joined to the base URL unless it is already absolute.
	Path string

	// Timeout overrides the client default when positive.
	Timeout time.Duration

	// Auth sends the bearer token when one is configured.
	Auth bool
}

// Do performs req and returns the decoded response with one level of the
// {"data": ...} wrapper removed. Non-2xx responses and transport failures
// are returned as *StatusError.
func (c *Client) Do(ctx context.Context, req Request) (any, error) {
	body, err := c.DoRaw(ctx, req)
	if err != nil {
		return nil, err
	}
	return Unwrap(body), nil
}

// DoRaw is Do without unwrapping.
func (c *Client) DoRaw(ctx context.Context, req Request) (any, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	target := c.resolve(req.Path)
	var reqBody io.Reader
	if method == http.MethodGet || method == http.MethodHead {
		if q := EncodeQuery(req.Params); q != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + q
		}
	} else {
		params := req.Params
		if params == nil {
			params = map[string]any{}
		}
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("apiclient: encode params: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.Auth && c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &StatusError{Method: method, URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := netutil.ReadAll(resp.Body, c.maxBodySize)
	c.logger.Debug("api request",
		slog.String("method", method),
		slog.String("url", target),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)))
	if err != nil {
		return nil, &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode, Err: err}
	}

	decoded := decode(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       raw,
			Message:    bodyMessage(decoded),
		}
	}
	return decoded, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return c.baseURL
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// decode parses raw as JSON, falling back to the raw text. Numbers stay
// json.Number so large integers survive.
func decode(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

// Unwrap returns body["data"] when body is an object with a non-null data
// field, otherwise body itself.
func Unwrap(body any) any {
	if m, ok := body.(map[string]any); ok {
		if data, ok := m["data"]; ok && data != nil {
			return data
		}
	}
	return body
}

func bodyMessage(body any) string {
	m, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := m["message"].(string); ok && s != "" {
		return s
	}
	switch e := m["error"].(type) {
	case string:
		return e
	case map[string]any:
		if s, ok := e["message"].(string); ok {
			return s
		}
	}
	return ""
}
