// Package upstream implements the HTTP client, body normalization, and
// field-probing rules shared by every upstream adapter convention.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxInterval = 2 * time.Second
	defaultUserAgent   = "followings-gateway/1.0"
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-call deadline. Zero disables it and leaves the
// caller's context in charge.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRetry enables bounded retry with jittered exponential backoff for
// transport faults and 5xx statuses. maxAttempts counts additional attempts
// beyond the first call; zero keeps the single-attempt behavior.
func WithRetry(maxAttempts int, maxInterval time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		if maxInterval > 0 {
			c.maxInterval = maxInterval
		}
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client issues upstream calls and normalizes whatever comes back. A non-2xx
// status is a result, not an error; only transport-level faults surface as
// errors.
type Client struct {
	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	maxInterval time.Duration
	logger      *slog.Logger
}

// NewClient creates an upstream client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  http.DefaultClient,
		timeout:     defaultTimeout,
		maxInterval: defaultMaxInterval,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the normalized outcome of one upstream exchange.
type Result struct {
	StatusCode int
	OK         bool
	RawBody    string
	Body       Document
}

// Details builds the diagnostic envelope for this result: the full parsed
// body when there is one, a bounded raw preview otherwise, nil when the body
// was absent.
func (r *Result) Details() map[string]any {
	switch r.Body.Kind() {
	case KindObject:
		obj, _ := r.Body.Object()
		return obj
	case KindArray, KindScalar:
		return map[string]any{"body": r.Body.Value()}
	case KindInvalid:
		return map[string]any{"body_preview": Preview(r.RawBody)}
	default:
		return nil
	}
}

// Do executes the request and normalizes the response. Every call carries
// no-store semantics, and the caller's context is tightened by the configured
// per-call deadline.
func (c *Client) Do(ctx context.Context, req *http.Request) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.maxAttempts <= 0 {
		return c.attempt(ctx, req)
	}
	return c.retry(ctx, req)
}

// retryableStatus marks a 5xx result for another attempt while keeping the
// final response available once attempts run out.
type retryableStatus struct {
	result *Result
}

func (e *retryableStatus) Error() string {
	return fmt.Sprintf("upstream status %d", e.result.StatusCode)
}

func (c *Client) retry(ctx context.Context, req *http.Request) (*Result, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = c.maxInterval
	bo.MaxElapsedTime = 0

	attempts := 0
	operation := func() (*Result, error) {
		attempts++
		res, err := c.attempt(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.StatusCode >= http.StatusInternalServerError {
			return nil, &retryableStatus{result: res}
		}
		return res, nil
	}

	res, err := backoff.RetryWithData(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts)), ctx))
	if err != nil {
		var rs *retryableStatus
		if errors.As(err, &rs) {
			// Attempts exhausted on a 5xx: report the final response
			// normally so classification sees the real status.
			return rs.result, nil
		}
		return nil, err
	}

	if attempts > 1 {
		c.logger.Warn("upstream call succeeded after retry",
			slog.Int("attempts", attempts),
			slog.String("url", req.URL.Redacted()),
		)
	}

	return res, nil
}

// attempt performs one exchange. The request is cloned so retries never reuse
// consumed state.
func (c *Client) attempt(ctx context.Context, req *http.Request) (*Result, error) {
	attemptReq := req.Clone(ctx)
	attemptReq.Header.Set("Cache-Control", "no-store")
	if attemptReq.Header.Get("User-Agent") == "" {
		attemptReq.Header.Set("User-Agent", defaultUserAgent)
	}

	resp, err := c.httpClient.Do(attemptReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	raw := strings.ToValidUTF8(string(body), "�")

	return &Result{
		StatusCode: resp.StatusCode,
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		RawBody:    raw,
		Body:       ParseDocument(raw),
	}, nil
}
