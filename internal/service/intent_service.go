// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/pkg/utils"
)

// bulkSubjectMarkers are subject fragments that mark a message as bulk or
// marketing mail, rejected before any model call.
var bulkSubjectMarkers = []string{
	"unsubscribe",
	"newsletter",
	"digest",
	"% off",
	"sale ends",
	"limited time offer",
	"don't miss",
}

// IntentServiceConfig configures meeting-intent detection.
type IntentServiceConfig struct {
	// MinConfidence is the 0-100 threshold below which a detection is
	// treated as "not a meeting" rather than a low-confidence positive.
	MinConfidence int
	// SelfAddress, when set, rejects messages the assistant's own user
	// sent, preventing reply loops.
	SelfAddress string
}

// Detection is the outcome of intent detection for one message. Request is
// nil when the message is not a meeting request; Reason says why.
type Detection struct {
	Request *models.MeetingRequest
	Reason  string
}

// IntentService decides whether a message is a meeting request and
// extracts its structured slots.
type IntentService struct {
	Client domain.IntentClient
	Config IntentServiceConfig
}

// NewIntentService creates a new IntentService.
func NewIntentService(client domain.IntentClient, config IntentServiceConfig) *IntentService {
	if config.MinConfidence == 0 {
		config.MinConfidence = constants.DefaultMinConfidence
	}
	return &IntentService{
		Client: client,
		Config: config,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *IntentService) ServiceReady() bool {
	return s.Client != nil
}

// Detect determines whether the message is a meeting request. A nil
// Request with a nil error means "not a meeting". An extraction
// collaborator outage is non-fatal: it yields a skip verdict so the
// pipeline records the message instead of failing the whole attempt.
func (s *IntentService) Detect(ctx context.Context, msg *models.InboundMessage, userUID string) (*Detection, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("intent service not initialized")
	}

	if reason := s.preFilterReason(msg); reason != "" {
		slog.DebugContext(ctx, "message rejected by pre-filter", "reason", reason, "message_uid", msg.UID)
		return &Detection{Reason: reason}, nil
	}

	intent, err := s.Client.ExtractIntent(ctx, msg)
	if err != nil {
		slog.WarnContext(ctx, "intent extraction failed", logging.ErrKey, err, "message_uid", msg.UID)
		return &Detection{Reason: "intent extraction unavailable"}, nil
	}

	if !intent.IsMeetingRequest {
		return &Detection{Reason: "not a meeting request"}, nil
	}
	if intent.Confidence < s.Config.MinConfidence {
		return &Detection{
			Reason: fmt.Sprintf("detection confidence %d below threshold %d", intent.Confidence, s.Config.MinConfidence),
		}, nil
	}

	req := s.buildRequest(msg, userUID, intent)
	slog.DebugContext(ctx, "meeting request detected",
		"message_uid", msg.UID,
		"confidence", req.Confidence,
		"category", req.Category,
	)
	return &Detection{Request: req}, nil
}

// preFilterReason applies the cheap category exclusion before any model
// call. An empty return means the message passes.
func (s *IntentService) preFilterReason(msg *models.InboundMessage) string {
	if msg.IsSelfAddressed(s.Config.SelfAddress) {
		return "message sent by the assistant's own user"
	}
	if msg.Header("List-Unsubscribe") != "" {
		return "bulk mail: List-Unsubscribe header present"
	}
	if strings.EqualFold(msg.Header("Precedence"), "bulk") {
		return "bulk mail: Precedence header"
	}
	from := strings.ToLower(msg.From)
	if strings.Contains(from, "no-reply") || strings.Contains(from, "noreply") {
		return "bulk mail: no-reply sender"
	}
	subject := strings.ToLower(msg.Subject)
	for _, marker := range bulkSubjectMarkers {
		if strings.Contains(subject, marker) {
			return fmt.Sprintf("marketing mail: subject marker %q", marker)
		}
	}
	return ""
}

func (s *IntentService) buildRequest(msg *models.InboundMessage, userUID string, intent *models.ExtractedIntent) *models.MeetingRequest {
	category := intent.Category
	if !category.IsValid() {
		category = models.MeetingCategoryRegular
	}
	urgency := intent.Urgency
	if !urgency.IsValid() {
		urgency = models.UrgencyMedium
	}
	duration := utils.CoalesceInt(intent.DurationMinutes, constants.DefaultMeetingDurationMinutes)

	candidates := make([]models.CandidateTime, 0, len(intent.TimeExpressions))
	for _, expr := range intent.TimeExpressions {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		candidates = append(candidates, models.CandidateTime{Expression: expr})
	}

	now := time.Now().UTC()
	return &models.MeetingRequest{
		UID:                 uuid.New().String(),
		MessageUID:          msg.UID,
		UserUID:             userUID,
		Sender:              msg.From,
		Subject:             msg.Subject,
		CandidateTimes:      candidates,
		DurationMinutes:     duration,
		Category:            category,
		Urgency:             urgency,
		LocationPreference:  intent.LocationPreference,
		SpecialRequirements: intent.SpecialRequirements,
		Confidence:          intent.Confidence,
		Status:              models.MeetingRequestStatusPending,
		CreatedAt:           &now,
		UpdatedAt:           &now,
	}
}

// ResolveTimes resolves the request's candidate expressions into instants
// in the given zone. Expressions that cannot be resolved keep their raw
// form. When none of the expressions resolve, the message body itself is
// scanned, including the far-apart date/time second pass.
func (s *IntentService) ResolveTimes(ctx context.Context, msg *models.InboundMessage, req *models.MeetingRequest, zone string) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		slog.WarnContext(ctx, "invalid zone for time resolution", logging.ErrKey, err, "zone", zone)
		loc = time.UTC
	}
	ref := msg.ReceivedAt
	if ref.IsZero() {
		ref = time.Now()
	}
	ref = ref.In(loc)

	resolvedAny := false
	for i, c := range req.CandidateTimes {
		if c.IsResolved() || c.Expression == "" {
			continue
		}
		if instant, ok := parseTimeExpression(c.Expression, ref, loc); ok {
			req.CandidateTimes[i].Instant = &instant
			resolvedAny = true
		}
	}

	if !resolvedAny {
		for _, instant := range scanMessageTimes(msg.Subject+"\n"+msg.Body, ref, loc) {
			req.CandidateTimes = append(req.CandidateTimes, models.CandidateTime{Instant: utils.TimePtr(instant)})
		}
	}
}
