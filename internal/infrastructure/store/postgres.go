// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package store implements the durable Postgres persistence layer.
package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
)

// tracerName is the instrumentation name for the store package.
const tracerName = "github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/infrastructure/store"

// PgxPool is the subset of pgxpool.Pool the store uses. It allows tests to
// supply a lightweight mock without changing the package's public surface.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// NewPool opens a pgx connection pool for the given DSN.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, domain.NewUnavailableError("failed to open database pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, domain.NewUnavailableError("failed to ping database", err)
	}
	return pool, nil
}

// PostgresStore is the durable store. It serves reads directly off the pool
// and opens transactional sessions for pipeline writes.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// IsReady checks if the store is ready for use.
func (s *PostgresStore) IsReady() bool {
	return s.pool != nil
}

func startSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "postgres."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

func spanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Begin opens a transactional session. All pipeline writes for one message
// go through one session so they commit or vanish together.
func (s *PostgresStore) Begin(ctx context.Context) (domain.Session, error) {
	ctx, span := startSpan(ctx, "begin", "")
	defer span.End()

	if !s.IsReady() {
		err := domain.NewUnavailableError("store is not available")
		spanError(span, err)
		return nil, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		spanError(span, err)
		return nil, domain.NewUnavailableError("failed to begin transaction", err)
	}
	return &pgSession{tx: tx}, nil
}

// pgSession implements domain.Session over one pgx transaction.
type pgSession struct {
	tx pgx.Tx
}

// UpsertMeetingRequest inserts or refreshes the request row for its
// (message, user) key. The lifecycle status of an existing row is kept:
// reprocessing must not regress a request a human already acted on.
func (s *pgSession) UpsertMeetingRequest(ctx context.Context, req *models.MeetingRequest) error {
	ctx, span := startSpan(ctx, "upsert", "meeting_requests")
	defer span.End()

	candidates, err := json.Marshal(req.CandidateTimes)
	if err != nil {
		spanError(span, err)
		return domain.NewInternalError("failed to encode candidate times", err)
	}

	const q = `INSERT INTO meeting_requests (
        uid, message_uid, user_uid, sender, subject, candidate_times,
        duration_minutes, category, urgency, location_preference,
        special_requirements, confidence, status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW(),NOW())
ON CONFLICT (message_uid, user_uid) DO UPDATE SET
        sender = EXCLUDED.sender,
        subject = EXCLUDED.subject,
        candidate_times = EXCLUDED.candidate_times,
        duration_minutes = EXCLUDED.duration_minutes,
        category = EXCLUDED.category,
        urgency = EXCLUDED.urgency,
        location_preference = EXCLUDED.location_preference,
        special_requirements = EXCLUDED.special_requirements,
        confidence = EXCLUDED.confidence,
        updated_at = NOW()`

	_, err = s.tx.Exec(ctx, q,
		req.UID, req.MessageUID, req.UserUID, req.Sender, req.Subject, candidates,
		req.DurationMinutes, req.Category, req.Urgency, req.LocationPreference,
		req.SpecialRequirements, req.Confidence, req.Status,
	)
	if err != nil {
		slog.ErrorContext(ctx, "error upserting meeting request", logging.ErrKey, err, "request_uid", req.UID)
		spanError(span, err)
		return domain.NewInternalError("failed to upsert meeting request", err)
	}
	return nil
}

// UpsertResponseDraft inserts or replaces the draft for its (message, user)
// key. Reprocessing replaces an unsent draft wholesale.
func (s *pgSession) UpsertResponseDraft(ctx context.Context, resp *models.MeetingResponse) error {
	ctx, span := startSpan(ctx, "upsert", "response_drafts")
	defer span.End()

	const q = `INSERT INTO response_drafts (
        uid, message_uid, user_uid, strategy, body,
        event_created, event_ref, rendered_by, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
ON CONFLICT (message_uid, user_uid) DO UPDATE SET
        strategy = EXCLUDED.strategy,
        body = EXCLUDED.body,
        event_created = EXCLUDED.event_created,
        event_ref = EXCLUDED.event_ref,
        rendered_by = EXCLUDED.rendered_by`

	_, err := s.tx.Exec(ctx, q,
		resp.UID, resp.MessageUID, resp.UserUID, resp.Strategy, resp.Body,
		resp.EventCreated, resp.EventRef, resp.RenderedBy,
	)
	if err != nil {
		slog.ErrorContext(ctx, "error upserting response draft", logging.ErrKey, err, "response_uid", resp.UID)
		spanError(span, err)
		return domain.NewInternalError("failed to upsert response draft", err)
	}
	return nil
}

// UpsertProcessingResult writes the terminal result row, the durable
// idempotency witness for its (message, user) key.
func (s *pgSession) UpsertProcessingResult(ctx context.Context, result *models.ProcessingResult) error {
	ctx, span := startSpan(ctx, "upsert", "processing_results")
	defer span.End()

	const q = `INSERT INTO processing_results (
        message_uid, user_uid, is_meeting_request, confidence,
        elapsed_ms, status, reason, processed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (message_uid, user_uid) DO UPDATE SET
        is_meeting_request = EXCLUDED.is_meeting_request,
        confidence = EXCLUDED.confidence,
        elapsed_ms = EXCLUDED.elapsed_ms,
        status = EXCLUDED.status,
        reason = EXCLUDED.reason,
        processed_at = EXCLUDED.processed_at`

	_, err := s.tx.Exec(ctx, q,
		result.MessageUID, result.UserUID, result.IsMeetingRequest, result.Confidence,
		result.Elapsed.Milliseconds(), result.Status, result.Reason, result.ProcessedAt,
	)
	if err != nil {
		slog.ErrorContext(ctx, "error upserting processing result", logging.ErrKey, err, "message_uid", result.MessageUID)
		spanError(span, err)
		return domain.NewInternalError("failed to upsert processing result", err)
	}
	return nil
}

// RecordSenderMessage records that a message from sender was seen, feeding
// the relationship classifier. Replays are absorbed by the primary key.
func (s *pgSession) RecordSenderMessage(ctx context.Context, userUID, sender, messageUID string) error {
	ctx, span := startSpan(ctx, "insert", "message_history")
	defer span.End()

	const q = `INSERT INTO message_history (user_uid, message_uid, sender)
VALUES ($1,$2,$3)
ON CONFLICT (user_uid, message_uid) DO NOTHING`

	_, err := s.tx.Exec(ctx, q, userUID, messageUID, normalizeSender(sender))
	if err != nil {
		slog.ErrorContext(ctx, "error recording sender message", logging.ErrKey, err, "message_uid", messageUID)
		spanError(span, err)
		return domain.NewInternalError("failed to record sender message", err)
	}
	return nil
}

// Commit makes all session writes durable and visible atomically.
func (s *pgSession) Commit(ctx context.Context) error {
	ctx, span := startSpan(ctx, "commit", "")
	defer span.End()

	if err := s.tx.Commit(ctx); err != nil {
		spanError(span, err)
		return domain.NewUnavailableError("failed to commit transaction", err)
	}
	return nil
}

// Rollback discards all session writes. Rolling back an already finished
// transaction is a no-op.
func (s *pgSession) Rollback(ctx context.Context) error {
	if err := s.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return domain.NewInternalError("failed to roll back transaction", err)
	}
	return nil
}

