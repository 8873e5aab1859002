// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package handlers routes incoming broker messages to the services.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/pkg/constants"
)

// MessageHandlers handles inbound message-processing requests off the broker.
type MessageHandlers struct {
	pipelineService *service.PipelineService
	emailProvider   domain.EmailProvider
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(
	pipelineService *service.PipelineService,
	emailProvider domain.EmailProvider,
) *MessageHandlers {
	return &MessageHandlers{
		pipelineService: pipelineService,
		emailProvider:   emailProvider,
	}
}

// HandlerReady checks if the handlers are ready to process messages.
func (h *MessageHandlers) HandlerReady() bool {
	return h.pipelineService.ServiceReady()
}

// HandleMessage implements domain.MessageHandler interface
func (h *MessageHandlers) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling assistant NATS message")

	handlers := map[string]func(ctx context.Context, msg domain.Message) ([]byte, error){
		constants.ProcessMessageSubject: h.HandleProcessMessage,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown message subject", "subject", subject)
		return
	}

	response, err := handler(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "error handling assistant message", logging.ErrKey, err)
	} else {
		slog.DebugContext(ctx, "assistant message handled successfully")
	}

	if msg.HasReply() {
		if err != nil {
			response = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
		}
		if respondErr := msg.Respond(response); respondErr != nil {
			slog.ErrorContext(ctx, "error responding to message", logging.ErrKey, respondErr)
		}
	}
}

// HandleProcessMessage is the message handler for the message-process
// subject. It runs the processing pipeline for one (message, user) pair,
// fetching the full message from the mail provider when the payload only
// carries a reference.
func (h *MessageHandlers) HandleProcessMessage(ctx context.Context, msg domain.Message) ([]byte, error) {
	if !h.HandlerReady() {
		slog.ErrorContext(ctx, "service not ready")
		return nil, fmt.Errorf("service not ready")
	}

	var payload models.ProcessMessagePayload
	if err := json.Unmarshal(msg.Data(), &payload); err != nil {
		slog.ErrorContext(ctx, "error unmarshaling process message payload", logging.ErrKey, err)
		return nil, err
	}
	if payload.UserUID == "" || payload.MessageUID == "" {
		slog.WarnContext(ctx, "invalid process message payload: missing required fields")
		return nil, fmt.Errorf("user UID and message UID are required")
	}

	inbound := payload.Message
	if inbound == nil {
		if h.emailProvider == nil {
			return nil, fmt.Errorf("no message body and no email provider configured")
		}
		fetched, err := h.emailProvider.FetchMessage(ctx, payload.UserUID, payload.MessageUID)
		if err != nil {
			slog.ErrorContext(ctx, "error fetching message from mail provider", logging.ErrKey, err)
			return nil, err
		}
		inbound = fetched
	}
	if inbound.UID == "" {
		inbound.UID = payload.MessageUID
	}

	result, err := h.pipelineService.ProcessMessage(ctx, payload.UserUID, inbound)
	if err != nil {
		return nil, err
	}

	response, err := json.Marshal(result)
	if err != nil {
		slog.ErrorContext(ctx, "error marshaling processing result", logging.ErrKey, err)
		return nil, err
	}
	return response, nil
}
