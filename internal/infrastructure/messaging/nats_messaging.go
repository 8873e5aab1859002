// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/pkg/constants"
)

// INatsConn is a NATS connection interface needed for publishing.
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// MessageBuilder is the builder for the message and sends it to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
}

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn: natsConn,
	}
}

// sendMessage sends the message to the NATS server.
func (m *MessageBuilder) sendMessage(ctx context.Context, subject string, data []byte) error {
	if m.NatsConn == nil || !m.NatsConn.IsConnected() {
		return domain.NewUnavailableError("NATS connection is not available")
	}
	err := m.NatsConn.Publish(subject, data)
	if err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

// PublishPipelineEvent sends the post-commit processing audit event.
func (m *MessageBuilder) PublishPipelineEvent(ctx context.Context, event models.PipelineEvent) error {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling pipeline event into JSON", logging.ErrKey, err)
		return err
	}

	slog.DebugContext(ctx, "publishing pipeline event to NATS",
		"subject", constants.PipelineEventSubject,
		"status", event.Status,
		"tags_count", len(event.Tags),
	)

	return m.sendMessage(ctx, constants.PipelineEventSubject, messageBytes)
}
