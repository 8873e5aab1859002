// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package calendar implements the calendar provider adapter over the
// provider's REST API with server-to-server OAuth.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
)

// DefaultClientTimeout is the default HTTP client timeout for calendar
// API requests.
const DefaultClientTimeout = 30 * time.Second

// Config holds the configuration for the calendar client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
}

// Client is the authenticated HTTP client for the calendar provider API.
type Client struct {
	config      Config
	oauthConfig *clientcredentials.Config
}

// NewClient creates a new calendar API client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	return &Client{
		config: config,
		oauthConfig: &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.TokenURL,
		},
	}
}

// httpClient returns a client that injects the OAuth token and traces the
// outbound call.
func (c *Client) httpClient(ctx context.Context) *http.Client {
	client := c.oauthConfig.Client(ctx)
	client.Timeout = c.config.Timeout
	client.Transport = otelhttp.NewTransport(client.Transport)
	return client
}

// doJSON performs one API request and decodes the JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		return fmt.Errorf("calendar API request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read calendar API response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		slog.ErrorContext(ctx, "calendar API error response",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"body", string(respBody),
			logging.ErrKey, fmt.Errorf("status: %d", resp.StatusCode),
		)
		return fmt.Errorf("calendar API status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode calendar API response: %w", err)
	}
	return nil
}
