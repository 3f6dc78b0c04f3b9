// Package ai provides a client for an OpenAI-compatible chat completions
// endpoint, shared by the genre classifier and the librarian assistant.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
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
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"

	// Per-attempt bound on one completion call.
	defaultTimeout = 10 * time.Second

	// Transport and rate-limit failures are retried this many times on
	// top of the initial attempt.
	defaultMaxRetries = 2
)

// Sentinel errors surfaced by Complete.
var (
	// ErrDisabled indicates no API key is configured.
	ErrDisabled = errors.New("ai: no API key configured")
	// ErrRateLimited indicates the endpoint returned 429.
	ErrRateLimited = errors.New("ai: rate limited")
	// ErrServer indicates a 5xx from the endpoint.
	ErrServer = errors.New("ai: server error")
	// ErrEmptyResponse indicates the endpoint returned no choices.
	ErrEmptyResponse = errors.New("ai: empty response")
)

// Message is one chat turn sent to the endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call.
type Request struct {
	Messages    []Message
	Temperature float64
}

// Client calls an OpenAI-compatible chat completions endpoint with
// bounded timeouts and exponential-backoff retries.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries uint64
	http       *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the completion endpoint URL (used in tests).
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries overrides the retry budget for transient failures.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// New creates an AI client. An empty apiKey produces a disabled client:
// Enabled() returns false and Complete fails fast with ErrDisabled.
func New(apiKey, model string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint:   defaultEndpoint,
		apiKey:     apiKey,
		model:      model,
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = &http.Client{}
	return c
}

// Enabled reports whether the client has a credential and may be called.
func (c *Client) Enabled() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// Complete sends one chat completion request and returns the generated
// text. Transport errors, 429s, and 5xx responses are retried with
// exponential backoff up to the retry budget; malformed responses and
// other 4xx are permanent.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	var result string
	operation := func() error {
		var err error
		result, err = c.attempt(ctx, req)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}
	return result, nil
}

// attempt performs a single bounded call. Errors wrapped in
// backoff.Permanent are not retried.
func (c *Client) attempt(ctx context.Context, req Request) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := map[string]any{
		"model":       c.model,
		"messages":    req.Messages,
		"temperature": req.Temperature,
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", backoff.Permanent(fmt.Errorf("encode completion payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, buf)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("create completion request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Transport failure or timeout: retryable.
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decode.
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	default:
		return "", backoff.Permanent(c.decodeAPIError(resp))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode completion response: %w", err))
	}
	if len(response.Choices) == 0 {
		return "", backoff.Permanent(ErrEmptyResponse)
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// decodeAPIError extracts a useful message from a non-retryable error response.
func (c *Client) decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("ai api error: status %d type %s message %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
	}

	return fmt.Errorf("ai api error: status %d body %s", resp.StatusCode, string(body))
}
