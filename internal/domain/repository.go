// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
)

// MeetingRequestRepository defines read access to stored meeting requests.
// Writes go through a Session so they share the pipeline transaction.
type MeetingRequestRepository interface {
	Get(ctx context.Context, messageUID, userUID string) (*models.MeetingRequest, error)
	ListByUser(ctx context.Context, userUID string) ([]*models.MeetingRequest, error)
}

// ProcessingResultRepository defines read access to processing results.
type ProcessingResultRepository interface {
	Get(ctx context.Context, messageUID, userUID string) (*models.ProcessingResult, error)
	Exists(ctx context.Context, messageUID, userUID string) (bool, error)
}

// UserSettingsRepository reads per-user assistant settings.
type UserSettingsRepository interface {
	GetTimezone(ctx context.Context, userUID string) (string, error)
	GetSchedulingLink(ctx context.Context, userUID string) (string, error)
}

// MessageHistoryRepository tracks prior messages per (user, sender) so the
// strategy selector can classify the sender relationship.
type MessageHistoryRepository interface {
	CountFromSender(ctx context.Context, userUID, sender string) (int, error)
}

// Session is one transaction scope over the durable store. All writes made
// through a session become visible atomically on Commit and disappear
// together on Rollback. A session must be finished (Commit or Rollback) on
// every exit path.
type Session interface {
	UpsertMeetingRequest(ctx context.Context, req *models.MeetingRequest) error
	UpsertResponseDraft(ctx context.Context, resp *models.MeetingResponse) error
	UpsertProcessingResult(ctx context.Context, result *models.ProcessingResult) error
	RecordSenderMessage(ctx context.Context, userUID, sender, messageUID string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWork opens transaction sessions against the durable store.
type UnitOfWork interface {
	Begin(ctx context.Context) (Session, error)
}
