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
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lamim/folioforge/internal/config"
	"github.com/lamim/folioforge/internal/metrics"
)

const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests
	DefaultHTTPTimeout = 120 * time.Second
	// DefaultMaxRetries is the default maximum number of retry attempts
	DefaultMaxRetries = 3
	// DefaultBaseRetryDelay is the base delay for exponential backoff
	DefaultBaseRetryDelay = 2 * time.Second
	// RateLimitBackoffMultiplier is the multiplier for rate limit backoff (3^n)
	RateLimitBackoffMultiplier = 3
)

// Client handles HTTP requests to OpenAI-compatible chat completion endpoints
type Client struct {
	httpClient      *http.Client
	rateLimiterPool *RateLimiterPool
	logger          *slog.Logger
	metrics         *metrics.Collector
	maxRetries      int
	baseRetryDelay  time.Duration
}

// NewClient creates a new API client configured from the backend settings
func NewClient(backend config.BackendConfig, logger *slog.Logger) *Client {
	timeout := DefaultHTTPTimeout
	if backend.HTTPTimeoutSeconds > 0 {
		timeout = time.Duration(backend.HTTPTimeoutSeconds) * time.Second
	}

	maxRetries := DefaultMaxRetries
	switch {
	case backend.MaxRetries < 0:
		maxRetries = 0
	case backend.MaxRetries > 0:
		maxRetries = backend.MaxRetries
	}

	return &Client{
		httpClient:      &http.Client{Timeout: timeout},
		rateLimiterPool: NewRateLimiterPool(logger),
		logger:          logger.With("component", "api"),
		maxRetries:      maxRetries,
		baseRetryDelay:  DefaultBaseRetryDelay,
	}
}

// WithMetrics makes the client record rate limiter wait times
func (c *Client) WithMetrics(m *metrics.Collector) *Client {
	c.metrics = m
	return c
}

// ChatCompletion sends a chat completion request. A response without choices
// is returned as is; callers treat it as empty output.
func (c *Client) ChatCompletion(
	ctx context.Context,
	backend config.BackendConfig,
	apiKey string,
	messages []Message,
	maxTokens int,
) (*ChatCompletionResponse, error) {
	modelID := fmt.Sprintf("%s:%s", backend.BaseURL, backend.ModelName)

	waitStart := time.Now()
	if err := c.rateLimiterPool.Wait(ctx, modelID, backend.RateLimitPerMinute); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	c.metrics.RecordRateLimiterWait(backend.ModelName, time.Since(waitStart))

	req := ChatCompletionRequest{
		Model:       backend.ModelName,
		Messages:    messages,
		Temperature: backend.Temperature,
		TopP:        backend.TopP,
		MaxTokens:   maxTokens,
		N:           1,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			sleepDuration := c.backoff(attempt, lastErr)

			c.logger.Warn("Retrying API request",
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"backoff", sleepDuration,
				"model", backend.ModelName,
				"is_rate_limit", isRateLimitError(lastErr))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(sleepDuration):
			}
		}

		resp, err := c.doRequest(ctx, backend.BaseURL, apiKey, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// backoff returns 2^(n-1) * base for ordinary failures and 3^n * base for
// rate limits, with +/-10% jitter. A server supplied Retry-After wins when
// it is longer.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseRetryDelay
	if isRateLimitError(lastErr) {
		d = time.Duration(math.Pow(RateLimitBackoffMultiplier, float64(attempt))) * c.baseRetryDelay
	}
	d += time.Duration(float64(d) * 0.1 * (2*rand.Float64() - 1))

	var apiErr *APIError
	if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > d {
		return apiErr.RetryAfter
	}
	return d
}

func (c *Client) doRequest(
	ctx context.Context,
	baseURL string,
	apiKey string,
	req ChatCompletionRequest,
) (*ChatCompletionResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimSuffix(baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// a cancelled caller is not worth retrying
		return nil, &APIError{Message: err.Error(), Retryable: ctx.Err() == nil}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &APIError{Message: "reading response: " + err.Error(), Retryable: true}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, decodeError(httpResp, raw)
	}

	var out ChatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("Malformed completion response, treating as empty",
			"endpoint", endpoint,
			"error", err)
		return &ChatCompletionResponse{}, nil
	}
	return &out, nil
}

// decodeError turns a non-200 response into an APIError, using the
// provider's error envelope when it has one
func decodeError(resp *http.Response, raw []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Retryable:  isStatusCodeRetryable(resp.StatusCode),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}

	var envelope ErrorResponse
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Type = envelope.Error.Type
		apiErr.Code = envelope.Error.Code
		return apiErr
	}

	body := strings.TrimSpace(string(raw))
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		body = http.StatusText(resp.StatusCode)
	}
	apiErr.Message = body
	return apiErr
}

// parseRetryAfter accepts the delay-seconds form of Retry-After only
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// IsRetryable reports whether err is an APIError worth retrying
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

func isRateLimitError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func isStatusCodeRetryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	case http.StatusNotImplemented, http.StatusHTTPVersionNotSupported:
		return false
	}
	return code >= 500
}

// APIError is a failed request. StatusCode is zero for transport errors.
type APIError struct {
	Message    string
	StatusCode int
	Type       string
	Code       string
	Retryable  bool
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return "request failed: " + e.Message
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}
