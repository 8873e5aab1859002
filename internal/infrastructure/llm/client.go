// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package llm implements the language-model collaborators: meeting-intent
// extraction and response-draft generation over a chat-completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
)

// ChatAPI is the completion surface the extractor and generator build on.
// This allows for easy mocking and testing of the chat client.
type ChatAPI interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

const (
	// DefaultBaseURL is the base URL for the chat-completions API.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the model used when none is configured.
	DefaultModel = "gpt-4o-mini"
	// DefaultClientTimeout is the default HTTP client timeout.
	DefaultClientTimeout = 30 * time.Second
	// Default retry configuration
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Config holds the configuration for the chat client.
type Config struct {
	APIKey string
	// Optional: override base URL for testing
	BaseURL string
	// Optional: override the model
	Model string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: retry configuration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Client is a chat-completions API client with retry and tracing.
type Client struct {
	httpClient *http.Client
	config     Config
}

// Ensure that Client implements ChatAPI
var _ ChatAPI = (*Client)(nil)

// NewClient creates a new chat client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = DefaultBackoffMultiplier
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		config: config,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one system+user exchange and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	body, err := c.doRequest(ctx, payload)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// shouldRetry determines if an error or HTTP status code should be retried.
func shouldRetry(statusCode int, err error) bool {
	if err != nil {
		return ctxAlive(err)
	}
	if statusCode >= 500 && statusCode < 600 {
		return true
	}
	return statusCode == http.StatusTooManyRequests
}

func ctxAlive(err error) bool {
	if ctxErr, ok := err.(interface{ Err() error }); ok {
		if ctxErr.Err() == context.Canceled || ctxErr.Err() == context.DeadlineExceeded {
			return false
		}
	}
	return true
}

// calculateBackoff calculates the backoff duration for a retry attempt with jitter.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.config.InitialBackoff
	}

	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffMultiplier, float64(attempt))
	if time.Duration(backoff) > c.config.MaxBackoff {
		backoff = float64(c.config.MaxBackoff)
	}

	// Jitter of ±25% prevents retry stampedes.
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	backoffWithJitter := time.Duration(backoff + jitter)
	if backoffWithJitter < c.config.InitialBackoff {
		backoffWithJitter = c.config.InitialBackoff
	}
	return backoffWithJitter
}

// doRequest performs the chat-completions POST with retry on transient
// failures and returns the raw response body.
func (c *Client) doRequest(ctx context.Context, payload []byte) ([]byte, error) {
	url := c.config.BaseURL + "/chat/completions"
	var lastErr error
	var lastStatus int

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt - 1)
			slog.WarnContext(ctx, "chat API request failed, retrying",
				"status", lastStatus,
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff.String(),
				logging.ErrKey, lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		startTime := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(startTime)
		if err != nil {
			lastErr, lastStatus = err, 0
			if !shouldRetry(0, err) {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr, lastStatus = readErr, resp.StatusCode
			continue
		}

		if resp.StatusCode == http.StatusOK {
			slog.DebugContext(ctx, "chat API request completed",
				"status", resp.StatusCode,
				"duration", duration.String(),
				"attempt", attempt+1,
			)
			return body, nil
		}

		lastErr = fmt.Errorf("chat API status %d: %s", resp.StatusCode, string(body))
		lastStatus = resp.StatusCode
		if !shouldRetry(resp.StatusCode, nil) {
			slog.ErrorContext(ctx, "chat API request failed (not retryable)",
				"status", resp.StatusCode,
				"duration", duration.String(),
				logging.ErrKey, lastErr,
			)
			return nil, lastErr
		}
	}

	slog.ErrorContext(ctx, "chat API request failed after all retries",
		"max_retries", c.config.MaxRetries,
		logging.ErrKey, lastErr,
		logging.PriorityCritical(),
	)
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}
