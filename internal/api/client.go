package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/vidsync/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	baseRetryDelay    = 500 * time.Millisecond
)

// Transport performs one REST call and returns the raw JSON body.
// Failures are reported as *domain.TransportError.
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error)
}

// ClientConfig configures the HTTP transport
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// RateLimit is the sustained request rate per second; zero disables pacing
	RateLimit float64
	Burst     int
}

// Client is the HTTP implementation of Transport
type Client struct {
	baseURL    string
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new backend client
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: retries,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger,
	}
}

// Do performs a request against the backend.
// 5xx responses to GET and HEAD are retried with exponential backoff; writes are sent once.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	fail := func(status int, err error) *domain.TransportError {
		return &domain.TransportError{Op: "request", Method: method, Path: path, Status: status, Err: err}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, fail(0, ctx.Err())
		}

		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1)) // 500ms, 1s, 2s
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "url", reqURL)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fail(0, ctx.Err())
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fail(0, err)
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fail(0, fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.logger.Debug("api request", "method", method, "url", reqURL, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("api request failed", "method", method, "url", reqURL, "error", err)
			return nil, fail(0, err)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fail(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
		}

		if resp.StatusCode >= 500 && resp.StatusCode < 600 {
			if !idempotent(method) {
				// The write may have been applied before the failure
				c.logger.Error("api server error", "status", resp.StatusCode, "body", string(data), "method", method, "path", path)
				return nil, fail(resp.StatusCode, nil)
			}
			lastErr = fail(resp.StatusCode, nil)
			c.logger.Warn("api server error, will retry",
				"status", resp.StatusCode,
				"body", string(data),
				"attempt", attempt,
				"maxRetries", c.maxRetries,
				"path", path,
			)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Error("api request error", "status", resp.StatusCode, "body", string(data), "path", path)
			return nil, fail(resp.StatusCode, nil)
		}

		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			return json.RawMessage("null"), nil
		}
		return json.RawMessage(data), nil
	}

	c.logger.Error("api request failed after retries", "error", lastErr, "url", reqURL, "path", path)
	return nil, lastErr
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
