package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/internal/metrics"
	"github.com/AbdulWasayUl/country-explorer/models"
	"golang.org/x/time/rate"
)

const maxRetries = 3

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code   int
	Status string
	Body   []byte
}

func (e *StatusError) Error() string {
	return "API returned non-OK status: " + e.Status
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

type Client struct {
	httpClient *http.Client
	rateLimit  models.RateLimitSettings
	limiter    *rate.Limiter
	service    string
	backoff    time.Duration
}

type Option func(*Client)

// WithTimeout bounds every single attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithService sets the label used in logs and metrics.
func WithService(name string) Option {
	return func(c *Client) { c.service = name }
}

// WithBackoff sets the base delay between retries; it doubles per attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func NewClient(rl models.RateLimitSettings, opts ...Option) *Client {
	if rl.MaxRequests <= 0 {
		rl.MaxRequests = 1
	}
	if rl.PerDuration <= 0 {
		rl.PerDuration = time.Second
	}
	interval := rl.PerDuration / time.Duration(rl.MaxRequests)

	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		rateLimit:  rl,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		service:    "api",
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do issues a GET request.
func (c *Client) Do(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return c.Send(ctx, http.MethodGet, url, headers, nil)
}

// Send issues a request, retrying transport errors, 429 and 5xx responses.
// Other 4xx responses fail immediately with a *StatusError.
func (c *Client) Send(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
	start := time.Now()
	data, err := c.send(ctx, method, url, headers, body)

	outcome := "ok"
	var se *StatusError
	switch {
	case errors.As(err, &se):
		outcome = fmt.Sprintf("status_%d", se.Code)
	case err != nil:
		outcome = "error"
	}
	metrics.RecordGatewayRequest(c.service, outcome, time.Since(start))
	return data, err
}

func (c *Client) send(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		logger.Debug("[%s] %s %s (attempt %d)", c.service, method, url, i+1)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			logger.Error("[%s] HTTP request failed (attempt %d): %v", c.service, i+1, err)
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			if err := c.wait(ctx, i); err != nil {
				return nil, err
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, fmt.Errorf("failed to read response body: %w", readErr)
			}
			return respBody, nil
		}

		statusErr := &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: respBody}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			logger.Error("[%s] API returned %d (attempt %d)", c.service, resp.StatusCode, i+1)
			lastErr = statusErr
			if err := c.wait(ctx, i); err != nil {
				return nil, err
			}
			continue
		}

		logger.Debug("[%s] API returned status code %d. Body: %s", c.service, resp.StatusCode, string(respBody))
		return nil, statusErr
	}

	return nil, fmt.Errorf("failed to fetch data after max retries: %w", lastErr)
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	if attempt == maxRetries-1 {
		return nil
	}
	t := time.NewTimer(c.backoff << attempt)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
