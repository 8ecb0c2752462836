package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crestline/perf/pkg/config"
	"github.com/crestline/perf/pkg/logger"
)

// DefaultMaxBody caps downloaded bodies (64MB)
const DefaultMaxBody = 64 << 20

// ErrBodyTooLarge is returned when a response exceeds the body limit
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// Client fetches remote resources with optional retry and logging
// ⭐ SSOT: every outbound HTTP request goes through this client
type Client struct {
	http      *http.Client
	logger    *logger.Logger
	retry     Backoff
	maxBody   int64
	userAgent string
}

// Backoff controls retries of failed requests and retryable statuses.
// Attempts counts the extra tries after the first; zero disables retry.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// delay returns the wait before retry n (0-based), doubling up to Max
func (b Backoff) delay(n int) time.Duration {
	d := b.Initial
	for i := 0; i < n; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	return d
}

// StatusError is returned by GetBytes for non-2xx responses
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// New creates a single-shot client whose timeout follows FETCH_TIMEOUT.
// Callers that want retries opt in with WithRetry.
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.Data.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		http:      &http.Client{Timeout: timeout},
		logger:    log,
		retry:     Backoff{Initial: time.Second, Max: 10 * time.Second},
		maxBody:   DefaultMaxBody,
		userAgent: "perf-backend/1.0",
	}
}

// WithRetry sets the number of extra attempts and the first delay
func (c *Client) WithRetry(attempts int, initial time.Duration) *Client {
	c.retry.Attempts = attempts
	c.retry.Initial = initial
	return c
}

// WithMaxBody overrides the body size limit
func (c *Client) WithMaxBody(n int64) *Client {
	c.maxBody = n
	return c
}

// GetBytes downloads url and returns the body of a 2xx response
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	log := c.logger.WithField("url", url)

	var lastErr error
	for attempt := 0; attempt <= c.retry.Attempts; attempt++ {
		if attempt > 0 {
			wait := c.retry.delay(attempt - 1)
			log.WithFields(map[string]interface{}{
				"attempt": attempt + 1,
				"delay":   wait,
				"error":   lastErr.Error(),
			}).Warn("Retrying HTTP request")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		body, retryable, err := c.fetchOnce(ctx, url)
		if err == nil {
			log.WithFields(map[string]interface{}{
				"bytes":    len(body),
				"duration": time.Since(start),
			}).Debug("HTTP request completed")
			return body, nil
		}

		lastErr = err
		if !retryable {
			break
		}
	}

	log.WithFields(map[string]interface{}{
		"duration": time.Since(start),
		"error":    lastErr.Error(),
	}).Error("HTTP request failed")

	return nil, lastErr
}

// fetchOnce performs one GET and reports whether a failure may be retried
func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, IsRetryableError(resp.StatusCode), &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := readLimited(resp.Body, c.maxBody)
	if err != nil {
		return nil, false, err
	}
	return body, false, nil
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		max = DefaultMaxBody
	}

	body, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > max {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, max)
	}
	return body, nil
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	// 5xx and 429 Too Many Requests
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
