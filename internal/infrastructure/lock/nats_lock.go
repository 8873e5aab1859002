// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package lock implements the distributed idempotency guard on top of a
// NATS JetStream key-value bucket.
package lock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
)

// tracerName is the instrumentation name for the lock package.
const tracerName = "github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/infrastructure/lock"

// INatsKeyValue is the NATS KV surface the lock needs. It matches
// jetstream.KeyValue and allows mocking in tests.
type INatsKeyValue interface {
	Create(ctx context.Context, key string, value []byte, opts ...jetstream.KVCreateOpt) (uint64, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

// lockRecord is the value stored under a held key.
type lockRecord struct {
	Owner      string    `msgpack:"owner"`
	AcquiredAt time.Time `msgpack:"acquired_at"`
	ExpiresAt  time.Time `msgpack:"expires_at"`
}

// NatsLockService implements domain.LockService over a NATS KV bucket.
// A grant is a key whose creation succeeded; contention loses on the
// atomic Create. Expired entries are taken over with a revision-guarded
// Update so two workers cannot both claim a stale key.
type NatsLockService struct {
	kv    INatsKeyValue
	owner string
	now   func() time.Time
}

// NewNatsLockService creates a new NatsLockService with a random owner
// identity for this process.
func NewNatsLockService(kv INatsKeyValue) *NatsLockService {
	return &NatsLockService{
		kv:    kv,
		owner: uuid.New().String(),
		now:   time.Now,
	}
}

// IsReady checks if the lock service is ready for use.
func (s *NatsLockService) IsReady() bool {
	return s.kv != nil
}

// Acquire attempts to take the key for ttl. It returns false without error
// when another holder has a live grant.
func (s *NatsLockService) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "nats.kv.lock.acquire",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "nats"),
			attribute.String("db.operation", "create"),
			attribute.String("db.nats.key", key),
		),
	)
	defer span.End()

	if !s.IsReady() {
		err := domain.NewUnavailableError("lock service is not available")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	payload, err := s.encodeRecord(ttl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	_, err = s.kv.Create(ctx, key, payload)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, jetstream.ErrKeyExists) {
		slog.ErrorContext(ctx, "error creating lock entry", logging.ErrKey, err, "key", key)
		err = domain.NewUnavailableError("failed to create lock entry", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	return s.takeOverIfExpired(ctx, span, key, payload)
}

// takeOverIfExpired inspects the existing entry and claims it when its TTL
// has lapsed. The revision-guarded Update loses cleanly if another worker
// got there first.
func (s *NatsLockService) takeOverIfExpired(ctx context.Context, span trace.Span, key string, payload []byte) (bool, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			// The holder released between our Create and Get; treat the
			// attempt as lost rather than racing a second Create.
			return false, nil
		}
		slog.ErrorContext(ctx, "error reading lock entry", logging.ErrKey, err, "key", key)
		err = domain.NewUnavailableError("failed to read lock entry", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	var existing lockRecord
	if err := msgpack.Unmarshal(entry.Value(), &existing); err != nil {
		slog.WarnContext(ctx, "unreadable lock entry, denying grant", logging.ErrKey, err, "key", key)
		return false, nil
	}
	if s.now().Before(existing.ExpiresAt) {
		return false, nil
	}

	_, err = s.kv.Update(ctx, key, payload, entry.Revision())
	if err != nil {
		slog.DebugContext(ctx, "lost expired-lock takeover", logging.ErrKey, err, "key", key)
		return false, nil
	}
	slog.InfoContext(ctx, "took over expired lock", "key", key, "previous_owner", existing.Owner)
	return true, nil
}

// Release removes the key when this process holds it. Releasing a key held
// by another owner is a no-op so a slow worker cannot free a successor's
// grant.
func (s *NatsLockService) Release(ctx context.Context, key string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "nats.kv.lock.release",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "nats"),
			attribute.String("db.operation", "delete"),
			attribute.String("db.nats.key", key),
		),
	)
	defer span.End()

	if !s.IsReady() {
		err := domain.NewUnavailableError("lock service is not available")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		err = domain.NewUnavailableError("failed to read lock entry", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var existing lockRecord
	if err := msgpack.Unmarshal(entry.Value(), &existing); err == nil && existing.Owner != s.owner {
		slog.DebugContext(ctx, "skipping release of foreign lock", "key", key, "owner", existing.Owner)
		return nil
	}

	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		err = domain.NewUnavailableError("failed to delete lock entry", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *NatsLockService) encodeRecord(ttl time.Duration) ([]byte, error) {
	now := s.now()
	record := lockRecord{
		Owner:      s.owner,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	payload, err := msgpack.Marshal(record)
	if err != nil {
		return nil, domain.NewInternalError("failed to encode lock record", err)
	}
	return payload, nil
}
