// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/pkg/constants"
)

// PipelineServiceConfig configures end-to-end message processing.
type PipelineServiceConfig struct {
	// LockTTL bounds how long a processing grant blocks the same key.
	LockTTL time.Duration
	// BatchDelay is the pause between messages in a batch run.
	BatchDelay time.Duration
	// AutoBook, when enabled, creates a calendar event for accepted
	// requests instead of only drafting the reply. Off by default.
	AutoBook bool
}

// PipelineService runs the full processing pipeline for inbound messages:
// admission, intent detection, time and zone resolution, availability
// evaluation, response drafting, and transactional persistence.
type PipelineService struct {
	Intent       *IntentService
	TimeZones    *TimeZoneService
	Availability *AvailabilityService
	Responses    *ResponseService
	Calendar     domain.CalendarProvider
	Lock         domain.LockService
	Results      domain.ProcessingResultRepository
	Store        domain.UnitOfWork
	Publisher    domain.PipelineEventPublisher
	Config       PipelineServiceConfig

	now func() time.Time
}

// NewPipelineService creates a new PipelineService.
func NewPipelineService(
	intent *IntentService,
	timeZones *TimeZoneService,
	availability *AvailabilityService,
	responses *ResponseService,
	calendar domain.CalendarProvider,
	lock domain.LockService,
	results domain.ProcessingResultRepository,
	store domain.UnitOfWork,
	publisher domain.PipelineEventPublisher,
	config PipelineServiceConfig,
) *PipelineService {
	if config.LockTTL == 0 {
		config.LockTTL = constants.DefaultLockTTL
	}
	if config.BatchDelay == 0 {
		config.BatchDelay = constants.DefaultBatchDelay
	}
	return &PipelineService{
		Intent:       intent,
		TimeZones:    timeZones,
		Availability: availability,
		Responses:    responses,
		Calendar:     calendar,
		Lock:         lock,
		Results:      results,
		Store:        store,
		Publisher:    publisher,
		Config:       config,
		now:          time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *PipelineService) ServiceReady() bool {
	return s.Intent != nil &&
		s.TimeZones != nil &&
		s.Availability != nil &&
		s.Responses != nil &&
		s.Lock != nil &&
		s.Results != nil &&
		s.Store != nil
}

// lockKey is the admission key for one (message, user) pair.
func lockKey(userUID, messageUID string) string {
	return fmt.Sprintf("msg.%s.%s", userUID, messageUID)
}

// ProcessMessage runs the pipeline for one message. The returned result
// is always non-nil: failures come back as an error-status result whose
// reason is readable without exposing wrapped internals. Error results
// are never persisted so the message stays eligible for reprocessing.
func (s *PipelineService) ProcessMessage(ctx context.Context, userUID string, msg *models.InboundMessage) (*models.ProcessingResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		err := domain.NewUnavailableError("pipeline service not initialized")
		return s.errorResult(msg, userUID, s.now(), err), err
	}
	if msg == nil || msg.UID == "" || userUID == "" {
		err := domain.NewValidationError("message UID and user UID are required")
		return s.errorResult(msg, userUID, s.now(), err), err
	}

	ctx = logging.AppendCtx(ctx, slog.String("message_uid", msg.UID))
	ctx = logging.AppendCtx(ctx, slog.String("user_uid", userUID))
	started := s.now()

	// Admission: durable witness first, then the distributed lock. A row
	// in the results store means the message was fully processed before.
	exists, err := s.Results.Exists(ctx, msg.UID, userUID)
	if err != nil {
		wrapped := domain.NewTransientError("processing result lookup failed", err)
		return s.errorResult(msg, userUID, started, wrapped), wrapped
	}
	if exists {
		slog.InfoContext(ctx, "message already processed, skipping")
		return s.skipResult(msg, userUID, started, "already processed"), nil
	}

	key := lockKey(userUID, msg.UID)
	granted, err := s.Lock.Acquire(ctx, key, s.Config.LockTTL)
	if err != nil {
		wrapped := domain.NewTransientError("processing lock unavailable", err)
		return s.errorResult(msg, userUID, started, wrapped), wrapped
	}
	if !granted {
		slog.InfoContext(ctx, "message locked by another worker, skipping")
		return s.skipResult(msg, userUID, started, "concurrent processing in progress"), nil
	}
	defer func() {
		if releaseErr := s.Lock.Release(ctx, key); releaseErr != nil {
			slog.WarnContext(ctx, "failed to release processing lock", logging.ErrKey, releaseErr)
		}
	}()

	detection, err := s.Intent.Detect(ctx, msg, userUID)
	if err != nil {
		return s.errorResult(msg, userUID, started, err), err
	}

	result := &models.ProcessingResult{
		MessageUID:  msg.UID,
		UserUID:     userUID,
		ProcessedAt: s.now().UTC(),
	}

	if detection.Request == nil {
		result.Status = models.ProcessingStatusSkipped
		result.Reason = detection.Reason
		result.Elapsed = s.now().Sub(started)
		if err := s.persist(ctx, userUID, msg, nil, nil, result); err != nil {
			return s.errorResult(msg, userUID, started, err), err
		}
		s.publishEvent(ctx, result, nil, nil)
		return result, nil
	}

	req := detection.Request
	result.IsMeetingRequest = true
	result.Confidence = req.Confidence

	zone, method := s.resolveZone(ctx, userUID, msg)
	s.Intent.ResolveTimes(ctx, msg, req, zone)

	var resolved *models.ResolvedTime
	if instant := req.FirstResolvedTime(); instant != nil {
		resolved = &models.ResolvedTime{Instant: *instant, Zone: zone, Method: method}
	}

	avail, err := s.evaluateAvailability(ctx, userUID, req, resolved, zone, msg.ReceivedAt)
	if err != nil {
		// Calendar outage must never become a confident answer; the
		// attempt fails without a durable row.
		return s.errorResult(msg, userUID, started, err), err
	}

	response := s.draftResponse(ctx, userUID, req, resolved, avail)

	if response != nil && response.Strategy == models.StrategyAccept && s.Config.AutoBook {
		s.autoBook(ctx, userUID, req, resolved, response)
	}

	result.Status = models.ProcessingStatusProcessed
	result.Elapsed = s.now().Sub(started)
	if err := s.persist(ctx, userUID, msg, req, response, result); err != nil {
		return s.errorResult(msg, userUID, started, err), err
	}

	s.publishEvent(ctx, result, req, response)
	return result, nil
}

// ProcessMessages runs the pipeline for each message in turn, pausing
// between them. One failure does not stop the batch: the failed message
// contributes an error-status result and the first error is returned
// after all messages have been attempted.
func (s *PipelineService) ProcessMessages(ctx context.Context, userUID string, msgs []*models.InboundMessage) ([]*models.ProcessingResult, error) {
	var results []*models.ProcessingResult
	var firstErr error
	for i, msg := range msgs {
		if i > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(s.Config.BatchDelay):
			}
		}
		result, err := s.ProcessMessage(ctx, userUID, msg)
		if err != nil {
			slog.ErrorContext(ctx, "message processing failed", logging.ErrKey, err, "message_uid", msg.UID)
			if firstErr == nil {
				firstErr = err
			}
		}
		results = append(results, result)
	}
	return results, firstErr
}

// resolveZone prefers an abbreviation written in the message itself over
// the user's configured chain.
func (s *PipelineService) resolveZone(ctx context.Context, userUID string, msg *models.InboundMessage) (string, models.ResolutionMethod) {
	if zone, ok := ExtractExplicitZone(msg.Subject + "\n" + msg.Body); ok {
		slog.DebugContext(ctx, "timezone taken from message text", "zone", zone)
		return zone, models.ResolutionExplicitInText
	}
	return s.TimeZones.Resolve(ctx, userUID)
}

// evaluateAvailability checks the resolved window, or a generic
// next-business-day window when the request is vague, so the scheduling
// link strategies know whether the near-term calendar is congested.
func (s *PipelineService) evaluateAvailability(
	ctx context.Context,
	userUID string,
	req *models.MeetingRequest,
	resolved *models.ResolvedTime,
	zone string,
	receivedAt time.Time,
) (*models.AvailabilityResult, error) {
	duration := time.Duration(req.DurationMinutes) * time.Minute
	if resolved != nil {
		window := models.NewTimeWindow(resolved.Instant, duration)
		return s.Availability.Evaluate(ctx, userUID, window, zone)
	}
	window := genericProbeWindow(receivedAt, zone, duration)
	avail, err := s.Availability.Evaluate(ctx, userUID, window, zone)
	if err != nil {
		// The generic probe only informs link-strategy wording; its
		// failure must not fail a request that named no time.
		slog.WarnContext(ctx, "generic availability probe failed", logging.ErrKey, err)
		return nil, nil
	}
	return avail, nil
}

// genericProbeWindow is the next business day at 10:00 in the zone.
func genericProbeWindow(ref time.Time, zone string, duration time.Duration) models.TimeWindow {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	if ref.IsZero() {
		ref = time.Now()
	}
	day := ref.In(loc).AddDate(0, 0, 1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, loc)
	return models.NewTimeWindow(start, duration)
}

// draftResponse renders the reply draft. Drafting failure is deliberately
// non-fatal: the detected request is still worth persisting.
func (s *PipelineService) draftResponse(
	ctx context.Context,
	userUID string,
	req *models.MeetingRequest,
	resolved *models.ResolvedTime,
	avail *models.AvailabilityResult,
) *models.MeetingResponse {
	response, err := s.Responses.Respond(ctx, userUID, req, resolved, avail)
	if err != nil {
		slog.ErrorContext(ctx, "response drafting failed", logging.ErrKey, err)
		return nil
	}
	return response
}

// autoBook creates the calendar event for an accepted request. Booking
// failure downgrades nothing; the draft still goes out for approval.
func (s *PipelineService) autoBook(
	ctx context.Context,
	userUID string,
	req *models.MeetingRequest,
	resolved *models.ResolvedTime,
	response *models.MeetingResponse,
) {
	if s.Calendar == nil || resolved == nil {
		return
	}
	window := models.NewTimeWindow(resolved.Instant, time.Duration(req.DurationMinutes)*time.Minute)
	ref, err := s.Calendar.CreateEvent(ctx, userUID, window, resolved.Zone, req.Subject, []string{req.Sender})
	if err != nil {
		slog.ErrorContext(ctx, "auto-book failed", logging.ErrKey, err)
		return
	}
	response.EventCreated = true
	response.EventRef = ref
	req.Status = models.MeetingRequestStatusScheduled
	slog.InfoContext(ctx, "calendar event created", "event_ref", ref)
}

// persist writes everything the attempt produced in one transaction. The
// durable result row is what makes the attempt terminal, so a failed
// commit leaves the message fully reprocessable.
func (s *PipelineService) persist(
	ctx context.Context,
	userUID string,
	msg *models.InboundMessage,
	req *models.MeetingRequest,
	response *models.MeetingResponse,
	result *models.ProcessingResult,
) error {
	session, err := s.Store.Begin(ctx)
	if err != nil {
		return domain.NewTransientError("failed to open store session", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := session.Rollback(ctx); rbErr != nil {
				slog.WarnContext(ctx, "session rollback failed", logging.ErrKey, rbErr)
			}
		}
	}()

	if req != nil {
		if err := session.UpsertMeetingRequest(ctx, req); err != nil {
			return domain.NewInternalError("failed to store meeting request", err)
		}
	}
	if response != nil {
		if err := session.UpsertResponseDraft(ctx, response); err != nil {
			return domain.NewInternalError("failed to store response draft", err)
		}
	}
	if err := session.UpsertProcessingResult(ctx, result); err != nil {
		return domain.NewInternalError("failed to store processing result", err)
	}
	if err := session.RecordSenderMessage(ctx, userUID, msg.From, msg.UID); err != nil {
		return domain.NewInternalError("failed to record sender message", err)
	}
	if err := session.Commit(ctx); err != nil {
		return domain.NewTransientError("failed to commit processing transaction", err)
	}
	committed = true
	return nil
}

// publishEvent emits the post-commit audit event. Publishing is best
// effort; the durable row is already the source of truth.
func (s *PipelineService) publishEvent(ctx context.Context, result *models.ProcessingResult, req *models.MeetingRequest, response *models.MeetingResponse) {
	if s.Publisher == nil {
		return
	}
	event := models.PipelineEvent{
		MessageUID:       result.MessageUID,
		UserUID:          result.UserUID,
		Status:           result.Status,
		IsMeetingRequest: result.IsMeetingRequest,
		Tags:             req.Tags(),
		ProcessedAt:      result.ProcessedAt,
	}
	if response != nil {
		event.Strategy = response.Strategy
	}
	if err := s.Publisher.PublishPipelineEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish pipeline event", logging.ErrKey, err)
	}
}

// skipResult builds an in-memory skip outcome that is intentionally not
// persisted: the durable witness either already exists or belongs to the
// worker that holds the lock.
func (s *PipelineService) skipResult(msg *models.InboundMessage, userUID string, started time.Time, reason string) *models.ProcessingResult {
	return &models.ProcessingResult{
		MessageUID:  msg.UID,
		UserUID:     userUID,
		Status:      models.ProcessingStatusSkipped,
		Reason:      reason,
		Elapsed:     s.now().Sub(started),
		ProcessedAt: s.now().UTC(),
	}
}

// errorResult builds the error outcome handed back with the failure. It
// is never persisted, so the message stays eligible for reprocessing.
// The reason is the domain error's own message; wrapped internals never
// reach the caller.
func (s *PipelineService) errorResult(msg *models.InboundMessage, userUID string, started time.Time, err error) *models.ProcessingResult {
	reason := "processing failed"
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		reason = domainErr.Message
	}
	result := &models.ProcessingResult{
		UserUID:     userUID,
		Status:      models.ProcessingStatusError,
		Reason:      reason,
		Elapsed:     s.now().Sub(started),
		ProcessedAt: s.now().UTC(),
	}
	if msg != nil {
		result.MessageUID = msg.UID
	}
	return result
}
