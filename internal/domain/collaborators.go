// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
)

// EmailProvider fetches full messages from the mail provider of record.
type EmailProvider interface {
	FetchMessage(ctx context.Context, userUID, messageUID string) (*models.InboundMessage, error)
}

// CalendarProvider is the calendar collaborator. All queries are made in
// the window's resolved zone, never the server's local zone.
type CalendarProvider interface {
	ListEvents(ctx context.Context, userUID string, window models.TimeWindow, zone string) ([]models.CalendarEvent, error)
	CreateEvent(ctx context.Context, userUID string, window models.TimeWindow, zone string, title string, attendees []string) (string, error)
	GetUserTimezone(ctx context.Context, userUID string) (string, error)
}

// IntentClient is the language-model collaborator used for meeting-intent
// slot extraction.
type IntentClient interface {
	ExtractIntent(ctx context.Context, msg *models.InboundMessage) (*models.ExtractedIntent, error)
}

// TextGenerator is the generative-text collaborator used to render
// response drafts. It may fail or time out; callers must have a
// deterministic fallback.
type TextGenerator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (string, error)
}

// LockService is the distributed idempotency guard. Acquire returns false
// when the key is already being processed or was already processed by
// another holder. Grants expire after the TTL so a crashed worker cannot
// permanently block a key.
type LockService interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// PipelineEventPublisher publishes post-commit audit events.
type PipelineEventPublisher interface {
	PublishPipelineEvent(ctx context.Context, event models.PipelineEvent) error
}
