// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
)

// maxBodyChars bounds how much of the message body goes into the prompt.
const maxBodyChars = 4000

const extractorSystemPrompt = `You classify emails and extract meeting-request details.
Reply with a single JSON object and nothing else, using exactly these keys:
{
  "is_meeting_request": bool,
  "confidence": int (0-100),
  "time_expressions": [string],
  "duration_minutes": int (0 if unstated),
  "attendees": [string],
  "category": "urgent" | "regular" | "flexible" | "recurring",
  "urgency": "high" | "medium" | "low",
  "location_preference": string,
  "special_requirements": string
}
Copy time expressions verbatim from the email; never invent or resolve them.`

// IntentExtractor implements domain.IntentClient over a chat API.
type IntentExtractor struct {
	chat ChatAPI
}

// NewIntentExtractor creates a new IntentExtractor.
func NewIntentExtractor(chat ChatAPI) *IntentExtractor {
	return &IntentExtractor{chat: chat}
}

// extractedIntentPayload is the JSON shape the model is asked to produce.
type extractedIntentPayload struct {
	IsMeetingRequest    bool     `json:"is_meeting_request"`
	Confidence          int      `json:"confidence"`
	TimeExpressions     []string `json:"time_expressions"`
	DurationMinutes     int      `json:"duration_minutes"`
	Attendees           []string `json:"attendees"`
	Category            string   `json:"category"`
	Urgency             string   `json:"urgency"`
	LocationPreference  string   `json:"location_preference"`
	SpecialRequirements string   `json:"special_requirements"`
}

// ExtractIntent asks the model whether the message requests a meeting and
// parses the structured slots from its reply.
func (e *IntentExtractor) ExtractIntent(ctx context.Context, msg *models.InboundMessage) (*models.ExtractedIntent, error) {
	if e.chat == nil {
		return nil, domain.NewUnavailableError("intent extractor is not available")
	}

	body := truncateBody(msg.Body, maxBodyChars)
	prompt := fmt.Sprintf("From: %s\nSubject: %s\n\n%s", msg.From, msg.Subject, body)

	reply, err := e.chat.Complete(ctx, extractorSystemPrompt, prompt)
	if err != nil {
		return nil, domain.NewUnavailableError("intent extraction request failed", err)
	}

	var payload extractedIntentPayload
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &payload); err != nil {
		slog.WarnContext(ctx, "unparseable intent reply", logging.ErrKey, err, "message_uid", msg.UID)
		return nil, domain.NewInternalError("failed to parse intent extraction reply", err)
	}

	if payload.Confidence < 0 {
		payload.Confidence = 0
	}
	if payload.Confidence > 100 {
		payload.Confidence = 100
	}

	return &models.ExtractedIntent{
		IsMeetingRequest:    payload.IsMeetingRequest,
		Confidence:          payload.Confidence,
		TimeExpressions:     payload.TimeExpressions,
		DurationMinutes:     payload.DurationMinutes,
		Attendees:           payload.Attendees,
		Category:            models.MeetingCategory(payload.Category),
		Urgency:             models.UrgencyLevel(payload.Urgency),
		LocationPreference:  payload.LocationPreference,
		SpecialRequirements: payload.SpecialRequirements,
	}, nil
}

// truncateBody cuts body to at most limit bytes without splitting a
// UTF-8 rune.
func truncateBody(body string, limit int) string {
	if len(body) <= limit {
		return body
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}

// stripCodeFence removes a surrounding markdown code fence when the model
// wraps its JSON despite the instructions.
func stripCodeFence(reply string) string {
	reply = strings.TrimSpace(reply)
	if !strings.HasPrefix(reply, "```") {
		return reply
	}
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(strings.TrimSpace(reply), "```")
	return strings.TrimSpace(reply)
}
