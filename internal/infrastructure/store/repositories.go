// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
)

// normalizeSender reduces a From header to a lowercased bare address so
// "Ada Lovelace <Ada@Example.com>" and "ada@example.com" count as the same
// sender in the history.
func normalizeSender(sender string) string {
	sender = strings.TrimSpace(sender)
	if start := strings.Index(sender, "<"); start >= 0 {
		if end := strings.Index(sender[start:], ">"); end > 0 {
			sender = sender[start+1 : start+end]
		}
	}
	return strings.ToLower(strings.TrimSpace(sender))
}

// requestColumns is the select list shared by meeting request reads.
const requestColumns = `uid, message_uid, user_uid, sender, subject, candidate_times,
        duration_minutes, category, urgency, location_preference,
        special_requirements, confidence, status, created_at, updated_at`

func scanMeetingRequest(row pgx.Row) (*models.MeetingRequest, error) {
	var req models.MeetingRequest
	var candidates []byte
	var createdAt, updatedAt time.Time
	err := row.Scan(
		&req.UID, &req.MessageUID, &req.UserUID, &req.Sender, &req.Subject, &candidates,
		&req.DurationMinutes, &req.Category, &req.Urgency, &req.LocationPreference,
		&req.SpecialRequirements, &req.Confidence, &req.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		if err := json.Unmarshal(candidates, &req.CandidateTimes); err != nil {
			return nil, domain.NewInternalError("failed to decode candidate times", err)
		}
	}
	req.CreatedAt = &createdAt
	req.UpdatedAt = &updatedAt
	return &req, nil
}

// PgMeetingRequestRepository implements domain.MeetingRequestRepository.
type PgMeetingRequestRepository struct {
	pool PgxPool
}

// NewPgMeetingRequestRepository creates a new PgMeetingRequestRepository.
func NewPgMeetingRequestRepository(pool PgxPool) *PgMeetingRequestRepository {
	return &PgMeetingRequestRepository{pool: pool}
}

// Get retrieves the meeting request for a (message, user) key.
func (r *PgMeetingRequestRepository) Get(ctx context.Context, messageUID, userUID string) (*models.MeetingRequest, error) {
	ctx, span := startSpan(ctx, "select", "meeting_requests")
	defer span.End()

	const q = `SELECT ` + requestColumns + ` FROM meeting_requests
WHERE message_uid = $1 AND user_uid = $2`

	req, err := scanMeetingRequest(r.pool.QueryRow(ctx, q, messageUID, userUID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("meeting request not found", err)
		}
		spanError(span, err)
		return nil, domain.NewInternalError("failed to read meeting request", err)
	}
	return req, nil
}

// ListByUser retrieves all meeting requests for a user, newest first.
func (r *PgMeetingRequestRepository) ListByUser(ctx context.Context, userUID string) ([]*models.MeetingRequest, error) {
	ctx, span := startSpan(ctx, "select", "meeting_requests")
	defer span.End()

	const q = `SELECT ` + requestColumns + ` FROM meeting_requests
WHERE user_uid = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, userUID)
	if err != nil {
		spanError(span, err)
		return nil, domain.NewInternalError("failed to list meeting requests", err)
	}
	defer rows.Close()

	var requests []*models.MeetingRequest
	for rows.Next() {
		req, err := scanMeetingRequest(rows)
		if err != nil {
			spanError(span, err)
			return nil, domain.NewInternalError("failed to scan meeting request", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		spanError(span, err)
		return nil, domain.NewInternalError("failed to iterate meeting requests", err)
	}
	return requests, nil
}

// PgProcessingResultRepository implements domain.ProcessingResultRepository.
type PgProcessingResultRepository struct {
	pool PgxPool
}

// NewPgProcessingResultRepository creates a new PgProcessingResultRepository.
func NewPgProcessingResultRepository(pool PgxPool) *PgProcessingResultRepository {
	return &PgProcessingResultRepository{pool: pool}
}

// Get retrieves the processing result for a (message, user) key.
func (r *PgProcessingResultRepository) Get(ctx context.Context, messageUID, userUID string) (*models.ProcessingResult, error) {
	ctx, span := startSpan(ctx, "select", "processing_results")
	defer span.End()

	const q = `SELECT message_uid, user_uid, is_meeting_request, confidence,
        elapsed_ms, status, reason, processed_at
FROM processing_results WHERE message_uid = $1 AND user_uid = $2`

	var result models.ProcessingResult
	var elapsedMs int64
	err := r.pool.QueryRow(ctx, q, messageUID, userUID).Scan(
		&result.MessageUID, &result.UserUID, &result.IsMeetingRequest, &result.Confidence,
		&elapsedMs, &result.Status, &result.Reason, &result.ProcessedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("processing result not found", err)
		}
		spanError(span, err)
		return nil, domain.NewInternalError("failed to read processing result", err)
	}
	result.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	return &result, nil
}

// Exists reports whether a result row exists for a (message, user) key.
func (r *PgProcessingResultRepository) Exists(ctx context.Context, messageUID, userUID string) (bool, error) {
	ctx, span := startSpan(ctx, "select", "processing_results")
	defer span.End()

	const q = `SELECT EXISTS (
        SELECT 1 FROM processing_results WHERE message_uid = $1 AND user_uid = $2
)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, messageUID, userUID).Scan(&exists); err != nil {
		spanError(span, err)
		return false, domain.NewInternalError("failed to check processing result", err)
	}
	return exists, nil
}

// PgUserSettingsRepository implements domain.UserSettingsRepository.
type PgUserSettingsRepository struct {
	pool PgxPool
}

// NewPgUserSettingsRepository creates a new PgUserSettingsRepository.
func NewPgUserSettingsRepository(pool PgxPool) *PgUserSettingsRepository {
	return &PgUserSettingsRepository{pool: pool}
}

func (r *PgUserSettingsRepository) getSetting(ctx context.Context, column, userUID string) (string, error) {
	ctx, span := startSpan(ctx, "select", "user_settings")
	defer span.End()

	q := `SELECT COALESCE(` + column + `, '') FROM user_settings WHERE user_uid = $1`
	var value string
	if err := r.pool.QueryRow(ctx, q, userUID).Scan(&value); err != nil {
		if err == pgx.ErrNoRows {
			return "", domain.NewNotFoundError("user settings not found", err)
		}
		spanError(span, err)
		return "", domain.NewInternalError("failed to read user settings", err)
	}
	if value == "" {
		return "", domain.NewNotFoundError(column + " not configured")
	}
	return value, nil
}

// GetTimezone returns the user's configured IANA timezone.
func (r *PgUserSettingsRepository) GetTimezone(ctx context.Context, userUID string) (string, error) {
	return r.getSetting(ctx, "timezone", userUID)
}

// GetSchedulingLink returns the user's self-service booking link.
func (r *PgUserSettingsRepository) GetSchedulingLink(ctx context.Context, userUID string) (string, error) {
	return r.getSetting(ctx, "scheduling_link", userUID)
}

// PgMessageHistoryRepository implements domain.MessageHistoryRepository.
type PgMessageHistoryRepository struct {
	pool PgxPool
}

// NewPgMessageHistoryRepository creates a new PgMessageHistoryRepository.
func NewPgMessageHistoryRepository(pool PgxPool) *PgMessageHistoryRepository {
	return &PgMessageHistoryRepository{pool: pool}
}

// CountFromSender counts prior messages from the sender to the user.
func (r *PgMessageHistoryRepository) CountFromSender(ctx context.Context, userUID, sender string) (int, error) {
	ctx, span := startSpan(ctx, "select", "message_history")
	defer span.End()

	const q = `SELECT COUNT(*) FROM message_history WHERE user_uid = $1 AND sender = $2`
	var count int
	if err := r.pool.QueryRow(ctx, q, userUID, normalizeSender(sender)).Scan(&count); err != nil {
		spanError(span, err)
		return 0, domain.NewInternalError("failed to count sender messages", err)
	}
	return count, nil
}
