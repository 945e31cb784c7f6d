package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the platform's public REST endpoint
	DefaultBaseURL = "https://api.render.com/v1"

	// DefaultTimeout bounds every request at the transport level
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the client to the platform
	DefaultUserAgent = "renderdeploy"

	// Client-side throttling, requests per second
	DefaultRateLimit = 5
	DefaultRateBurst = 5

	// maxBodySize caps how much of a response body is read into memory
	maxBodySize = 4 << 20
)

// Client is an authenticated client for the platform REST API.
// One Client is built per run and shared by every component.
type Client struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	transport  http.RoundTripper
	limiter    *rate.Limiter
	logger     *slog.Logger
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if strings.TrimSpace(base) != "" {
			c.baseURL = base
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit overrides client-side throttling.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithTransport sets the base round tripper beneath authentication and
// compression.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.transport = rt
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a client that authenticates every request with apiKey
// as a bearer token.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}

	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		limiter:   rate.NewLimiter(DefaultRateLimit, DefaultRateBurst),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", c.baseURL)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")

	base := c.transport
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}

	// oauth2 wraps whatever client it finds in the context, so compression
	// sits underneath authentication.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Transport: gzhttp.Transport(base),
	})
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "Bearer",
	})
	c.httpClient = oauth2.NewClient(ctx, ts)
	c.httpClient.Timeout = c.timeout

	return c, nil
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs one request and returns the body of a 2xx response.
// Non-2xx responses become *APIError, transport failures *TransportError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api_request_failed", "method", method, "path", path, "error", err)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("read response body: %w", err)}
	}

	c.logger.Debug("api_request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	return data, nil
}

// decodeJSON unmarshals data into v, reporting schema mismatches together
// with the raw body.
func decodeJSON(path string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Path: path, Body: string(data), Err: err}
	}
	return nil
}
