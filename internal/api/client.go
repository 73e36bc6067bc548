// Package api is the typed HTTP client for the TJ Social backend. It owns
// transport concerns only: JSON encoding, the response envelope, cookies,
// request ids, retries for idempotent reads and mapping failures onto the
// apperr taxonomy. State synchronization lives in the packages that call it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dreamware/tjsocial/internal/apperr"
)

// ErrEnvelope is returned when a successful response is not a valid envelope.
var ErrEnvelope = errors.New("malformed response envelope")

// RequestIDHeader carries a unique id per attempt for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// Config configures a Client.
type Config struct {
	BaseURL   string        // e.g. "http://127.0.0.1:8080"
	Timeout   time.Duration // Per-attempt timeout (default 5s)
	Retries   int           // Extra attempts for GET calls (0 disables)
	RetryBase time.Duration // Backoff unit: waits RetryBase * 2^attempt (default 1s)
	Logger    *slog.Logger

	// HTTPClient overrides the transport. It is copied, and its Jar is
	// used if set.
	HTTPClient *http.Client
}

// Client talks to the backend. It keeps the session cookie between calls.
// Safe for concurrent use.
type Client struct {
	http      *http.Client
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	base      string
	retryBase time.Duration
	retries   int
}

// New creates a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	hc := http.Client{Timeout: cfg.Timeout}
	if cfg.HTTPClient != nil {
		hc = *cfg.HTTPClient
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("api: cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	return &Client{
		http:      &hc,
		logger:    cfg.Logger,
		sleep:     sleepContext,
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		retryBase: cfg.RetryBase,
		retries:   cfg.Retries,
	}, nil
}

// call performs one logical request. GET requests are retried on network
// failures with exponential backoff; writes are attempted exactly once so
// that optimistic rollback is decided by a single outcome.
func (c *Client) call(ctx context.Context, method, path string, body, out any) (string, error) {
	attempts := 1
	if method == http.MethodGet {
		attempts += c.retries
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := c.retryBase * time.Duration(math.Pow(2, float64(attempt-1)))
			if err := c.sleep(ctx, wait); err != nil {
				return "", &apperr.NetworkError{Op: method + " " + path, Err: err}
			}
		}
		msg, err := c.once(ctx, method, path, body, out, attempt+1)
		if err == nil || !apperr.IsNetwork(err) {
			return msg, err
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) once(ctx context.Context, method, path string, body, out any, attempt int) (string, error) {
	op := method + " " + path
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("%s: encode: %w", op, err)
		}
		reader = bytes.NewReader(reqBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api call failed", "op", op, "attempt", attempt, "request_id", reqID, "error", err)
		return "", &apperr.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.logger.Debug("api call", "op", op, "status", resp.StatusCode, "attempt", attempt, "request_id", reqID)

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	switch {
	case resp.StatusCode >= 500:
		return "", &apperr.NetworkError{Op: op, Status: resp.StatusCode, Err: errors.New(statusText(resp.StatusCode, env.Message))}
	case resp.StatusCode >= 300:
		return "", &apperr.ConflictError{Op: op, Status: resp.StatusCode, Reason: env.Message}
	}
	if decodeErr != nil {
		if errors.Is(decodeErr, io.EOF) && out == nil {
			return "", nil
		}
		return "", &apperr.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrEnvelope, decodeErr)}
	}
	if out != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return "", &apperr.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: missing data", ErrEnvelope)}
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", &apperr.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrEnvelope, err)}
		}
	}
	return env.Message, nil
}

func statusText(code int, msg string) string {
	if msg != "" {
		return msg
	}
	return http.StatusText(code)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
