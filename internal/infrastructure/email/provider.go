// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package email implements the mail provider adapter that fetches full
// inbound messages by reference.
package email

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
)

// DefaultClientTimeout is the default HTTP client timeout for mail
// provider requests.
const DefaultClientTimeout = 30 * time.Second

// Config holds the configuration for the mail provider client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
}

// Provider implements domain.EmailProvider over the mail provider's REST API.
type Provider struct {
	config      Config
	oauthConfig *clientcredentials.Config
}

// NewProvider creates a new Provider.
func NewProvider(config Config) *Provider {
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	return &Provider{
		config: config,
		oauthConfig: &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.TokenURL,
		},
	}
}

// IsReady checks if the provider is ready for use.
func (p *Provider) IsReady() bool {
	return p.config.BaseURL != ""
}

type apiMessage struct {
	UID        string              `json:"uid"`
	ThreadUID  string              `json:"thread_uid"`
	From       string              `json:"from"`
	Subject    string              `json:"subject"`
	Body       string              `json:"body"`
	Headers    map[string][]string `json:"headers"`
	ReceivedAt time.Time           `json:"received_at"`
}

// FetchMessage retrieves the full message for a (user, message) reference.
func (p *Provider) FetchMessage(ctx context.Context, userUID, messageUID string) (*models.InboundMessage, error) {
	if !p.IsReady() {
		return nil, domain.NewUnavailableError("email provider is not available")
	}

	path := fmt.Sprintf("%s/users/%s/messages/%s",
		p.config.BaseURL, url.PathEscape(userUID), url.PathEscape(messageUID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, domain.NewInternalError("failed to create message request", err)
	}

	client := p.oauthConfig.Client(ctx)
	client.Timeout = p.config.Timeout
	client.Transport = otelhttp.NewTransport(client.Transport)

	resp, err := client.Do(req)
	if err != nil {
		return nil, domain.NewUnavailableError("failed to fetch message", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewUnavailableError("failed to read message response", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.NewNotFoundError(fmt.Sprintf("message %s not found", messageUID))
	case resp.StatusCode != http.StatusOK:
		slog.ErrorContext(ctx, "mail provider error response",
			"status", resp.StatusCode,
			"message_uid", messageUID,
			logging.ErrKey, fmt.Errorf("status: %d", resp.StatusCode),
		)
		return nil, domain.NewUnavailableError(fmt.Sprintf("mail provider status %d", resp.StatusCode))
	}

	var parsed apiMessage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, domain.NewInternalError("failed to decode message response", err)
	}

	return &models.InboundMessage{
		UID:        parsed.UID,
		ThreadUID:  parsed.ThreadUID,
		From:       parsed.From,
		Subject:    parsed.Subject,
		Body:       parsed.Body,
		Headers:    parsed.Headers,
		ReceivedAt: parsed.ReceivedAt,
	}, nil
}
