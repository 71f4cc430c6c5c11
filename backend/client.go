package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrUnavailable indicates the backend could not be reached after exhausting
// the configured retries, or is known to be down after a crash.
var ErrUnavailable = errors.New("backend unavailable")

// StatusError carries a non-2xx backend response. It is terminal and never retried.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// Caller issues requests against the backend HTTP API.
type Caller interface {
	Call(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error)
}

// Client is a retrying HTTP client for the backend API. Network-level
// failures are retried with exponential backoff; application-level errors
// (non-2xx) are surfaced immediately.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	backoffBase time.Duration
	timeout     time.Duration
	logger      *slog.Logger
	available   atomic.Bool
}

// ClientOption customises a Client.
type ClientOption func(c *Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMaxAttempts bounds the number of attempts per request.
func WithMaxAttempts(attempts int) ClientOption {
	return func(c *Client) {
		c.maxAttempts = attempts
	}
}

// WithBackoffBase sets the initial retry delay; it doubles each attempt.
func WithBackoffBase(base time.Duration) ClientOption {
	return func(c *Client) {
		c.backoffBase = base
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithClientLogger sets the diagnostic logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a backend client for the supplied base URL.
func NewClient(baseURL string, options ...ClientOption) *Client {
	ret := &Client{
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
		maxAttempts: 3,
		backoffBase: time.Second,
		timeout:     15 * time.Second,
		logger:      slog.Default(),
	}
	for _, option := range options {
		option(ret)
	}
	ret.available.Store(true)
	return ret
}

// SetAvailable flips the fast-fail flag; the supervisor clears it when the
// backend crashes and callers fail immediately until a restart.
func (c *Client) SetAvailable(available bool) {
	c.available.Store(available)
}

// Available reports whether the backend is believed reachable.
func (c *Client) Available() bool {
	return c.available.Load()
}

// Call issues an HTTP request to the backend, retrying network-level failures
// with exponential backoff. It returns the response body on 2xx, a
// *StatusError for other statuses, and an ErrUnavailable-wrapped error once
// retries are exhausted.
func (c *Client) Call(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	if !c.available.Load() {
		return nil, fmt.Errorf("%w: backend process is not running", ErrUnavailable)
	}
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoffBase << (attempt - 1)
			c.logger.Debug("retrying backend call", "endpoint", endpoint, "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		data, err := c.attempt(ctx, method, endpoint, payload)
		if err == nil {
			return data, nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s %s failed after %d attempts: %v", ErrUnavailable, method, endpoint, c.maxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	request, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: response.StatusCode, Body: string(data)}
	}
	return data, nil
}
