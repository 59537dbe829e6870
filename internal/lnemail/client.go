package lnemail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Client is a thin HTTP client for the LNemail REST API. It handles Bearer
// token authentication, JSON marshaling, and automatic retry with
// exponential backoff on HTTP 429. The token may be swapped at any time.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	backoffBase time.Duration
	now         func() time.Time
	log         zerolog.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxRetries bounds the number of 429 retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the first backoff step used when no Retry-After header
// is present.
func WithBackoff(base time.Duration) Option {
	return func(c *Client) { c.backoffBase = base }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "lnemail").Logger() }
}

// NewClient creates a new API client. The baseURL is the API root, for
// example http://localhost:3000/api/lnemail when going through the proxy.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries:  3,
		backoffBase: time.Second,
		now:         time.Now,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	return c
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// payload is a decoded response: JSON when the server said so, else text.
type payload struct {
	JSON json.RawMessage
	Text string
}

func (p payload) isJSON() bool { return p.JSON != nil }

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and content-type dispatch.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
) (payload, error) {
	url := c.baseURL + path

	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return payload{}, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if data != nil {
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return payload{}, fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return payload{}, fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return payload{}, fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries {
			wait := c.retryAfterDuration(resp, attempt)
			lastErr = &HTTPError{StatusCode: resp.StatusCode, StatusText: statusText(resp)}
			c.log.Debug().Str("path", path).Dur("wait", wait).Msg("Rate limited, retrying")

			select {
			case <-ctx.Done():
				return payload{}, ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return payload{}, &HTTPError{
				StatusCode: resp.StatusCode,
				StatusText: statusText(resp),
				Body:       string(respBody),
			}
		}

		if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
			trimmed := bytes.TrimSpace(respBody)
			if len(trimmed) == 0 {
				trimmed = []byte("null")
			}
			if !json.Valid(trimmed) {
				return payload{}, fmt.Errorf("decoding response from %s %s: invalid JSON", method, path)
			}
			return payload{JSON: json.RawMessage(trimmed)}, nil
		}
		return payload{Text: string(respBody)}, nil
	}

	return payload{}, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// statusText prefers the server's reason phrase and falls back to the
// standard one.
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func (c *Client) retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	backoff := c.backoffBase * time.Duration(1<<uint(attempt))
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
