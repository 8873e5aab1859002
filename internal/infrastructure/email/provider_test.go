// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package email

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
)

// newProviderServer serves a token endpoint plus the message endpoint so
// the client-credentials flow runs entirely against the test server.
func newProviderServer(t *testing.T, messageHandler http.HandlerFunc) (*httptest.Server, *Provider) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/users/", messageHandler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	provider := NewProvider(Config{
		BaseURL:      server.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     server.URL + "/oauth/token",
	})
	return server, provider
}

func TestProvider_FetchMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes the message with multi-valued headers", func(t *testing.T) {
		_, provider := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/user-1/messages/msg-1", r.URL.Path)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"uid": "msg-1",
				"thread_uid": "thread-1",
				"from": "ada@example.com",
				"subject": "Quick sync?",
				"body": "Could we meet tomorrow at 2pm?",
				"headers": {
					"List-Unsubscribe": ["<mailto:leave@list.example.com>", "<https://list.example.com/leave>"],
					"Precedence": ["bulk"]
				},
				"received_at": "2026-03-04T09:00:00Z"
			}`))
		})

		msg, err := provider.FetchMessage(ctx, "user-1", "msg-1")

		require.NoError(t, err)
		assert.Equal(t, "msg-1", msg.UID)
		assert.Equal(t, "ada@example.com", msg.From)
		assert.Equal(t, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), msg.ReceivedAt.UTC())
		// The first value of each header must survive the fetch so the
		// bulk-mail pre-filter sees it.
		assert.Equal(t, "<mailto:leave@list.example.com>", msg.Header("List-Unsubscribe"))
		assert.Equal(t, "bulk", msg.Header("Precedence"))
	})

	t.Run("missing message is not found", func(t *testing.T) {
		_, provider := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := provider.FetchMessage(ctx, "user-1", "msg-404")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})

	t.Run("provider error is unavailable", func(t *testing.T) {
		_, provider := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := provider.FetchMessage(ctx, "user-1", "msg-1")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})

	t.Run("unconfigured provider is unavailable", func(t *testing.T) {
		provider := NewProvider(Config{})
		_, err := provider.FetchMessage(ctx, "user-1", "msg-1")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})
}
