// Package upstream talks to the worklog APIs and normalizes their payloads.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"golang.org/x/time/rate"
)

// ClientConfig configures the HTTP client behavior.
type ClientConfig struct {
	// BaseURL is the base URL for all requests.
	BaseURL string

	// Auth signs requests and renews credentials after a 401.
	Auth Authenticator

	// MaxRetries for transient failures (default: 3).
	MaxRetries int

	// RetryBackoff is the base delay, doubled on every retry (default: 500ms).
	RetryBackoff time.Duration

	// MaxRetryAfter caps a server's Retry-After hint (default: 60s).
	MaxRetryAfter time.Duration

	// ConnectTimeout bounds dialing (default: 10s).
	ConnectTimeout time.Duration

	// RequestTimeout bounds a whole request including the body (default: 60s).
	RequestTimeout time.Duration

	// RateLimit requests per second (default: 5).
	RateLimit float64

	// RateBurst maximum burst size (default: 1).
	RateBurst int

	// UserAgent string (default: "worktally/1.0").
	UserAgent string

	// Transport allows injecting a custom HTTP transport (for tests/stubs).
	Transport http.RoundTripper
}

// Client is a rate-limited, retry-capable HTTP client.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new HTTP client with the given configuration.
func NewClient(config ClientConfig) *Client {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = contract.DefaultRetryBackoff
	}
	if config.MaxRetryAfter <= 0 {
		config.MaxRetryAfter = contract.DefaultMaxRetryAfter
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = contract.DefaultConnectTimeout
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = contract.DefaultRequestTimeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = contract.DefaultRateLimit
	}
	if config.RateBurst <= 0 {
		config.RateBurst = 1
	}
	if config.UserAgent == "" {
		config.UserAgent = "worktally/1.0"
	}
	if config.Auth == nil {
		config.Auth = NoAuth{}
	}

	transport := config.Transport
	if transport == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.DialContext = (&net.Dialer{Timeout: config.ConnectTimeout}).DialContext
		base.TLSHandshakeTimeout = config.ConnectTimeout
		transport = base
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.RequestTimeout,
			Transport: transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		sleep:       sleepContext,
	}
}

// Request represents an HTTP request to be made.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
}

// Response wraps an HTTP response with convenience methods.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON unmarshals the response body into the given target.
func (r *Response) JSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

// transportError marks failures below HTTP such as refused connections or timeouts.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "http request: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// Do executes a request with rate limiting and retry.
//
// A 401 triggers exactly one credential refresh followed by a retry that does not
// count against MaxRetries. Rate limits, 5xx and transport failures back off
// exponentially, honoring Retry-After when present up to MaxRetryAfter.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	refreshed := false
	var lastErr error
	for attempt := 0; ; {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.doOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		var upErr *contract.UpstreamError
		isUpstream := errors.As(err, &upErr)
		if isUpstream && upErr.IsUnauthorized() && !refreshed {
			refreshed = true
			if rerr := c.config.Auth.Refresh(ctx); rerr != nil {
				return nil, fmt.Errorf("refresh credentials after %v: %w", err, rerr)
			}
			continue
		}

		if !isRetryable(err) {
			return nil, err
		}
		if attempt >= c.config.MaxRetries {
			break
		}

		backoff := time.Duration(1<<uint(attempt)) * c.config.RetryBackoff
		if isUpstream && upErr.RetryAfter > 0 {
			backoff = min(upErr.RetryAfter, c.config.MaxRetryAfter)
		}
		if err := c.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		attempt++
	}

	return nil, fmt.Errorf("%w: max retries exceeded: %w", contract.ErrUpstreamTransient, lastErr)
}

// doOnce executes a single request attempt.
func (c *Client) doOnce(ctx context.Context, req *Request) (*Response, error) {
	fullURL := c.config.BaseURL
	if req.Path != "" {
		fullURL = strings.TrimSuffix(fullURL, "/") + "/" + strings.TrimPrefix(req.Path, "/")
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	query := httpReq.URL.Query()
	for k, vs := range req.Query {
		for _, v := range vs {
			query.Add(k, v)
		}
	}

	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.URL.RawQuery = query.Encode()
	c.config.Auth.Apply(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("read body: %w", err)}
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}
	if resp.StatusCode >= 400 {
		return response, &contract.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    truncateBody(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	return response, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
}

// isRetryable determines if an error should be retried.
// A 401 only reaches here once a refresh has already been spent.
func isRetryable(err error) bool {
	var upErr *contract.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.IsRateLimited() || upErr.IsServerError() || upErr.IsUnauthorized()
	}
	var tErr *transportError
	return errors.As(err, &tErr)
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func truncateBody(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
