// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/pkg/constants"
)

// Relationship classifies the sender by prior message volume.
type Relationship string

const (
	RelationshipStranger     Relationship = "stranger"
	RelationshipNewContact   Relationship = "new_contact"
	RelationshipKnownContact Relationship = "known_contact"
)

// ResponseServiceConfig configures strategy selection and rendering.
type ResponseServiceConfig struct {
	// MaxWords is the budget handed to the generative collaborator.
	// Output beyond 1.5x the budget is treated as malformed.
	MaxWords int
	// KnownContactThreshold is the prior-message count at which a sender
	// becomes a known contact.
	KnownContactThreshold int
	// GenerateTimeout bounds the generative-text call.
	GenerateTimeout time.Duration
}

// ResponseService chooses a response strategy for a detected meeting
// request and renders the draft text. Rendering first tries the
// generative-text collaborator and falls back to deterministic templates
// on any failure, so a detected request always yields some draft text.
type ResponseService struct {
	Generator   domain.TextGenerator
	History     domain.MessageHistoryRepository
	Settings    domain.UserSettingsRepository
	Occurrences *OccurrenceService
	Config      ResponseServiceConfig
}

// NewResponseService creates a new ResponseService.
func NewResponseService(
	generator domain.TextGenerator,
	history domain.MessageHistoryRepository,
	settings domain.UserSettingsRepository,
	occurrences *OccurrenceService,
	config ResponseServiceConfig,
) *ResponseService {
	if config.MaxWords == 0 {
		config.MaxWords = 120
	}
	if config.KnownContactThreshold == 0 {
		config.KnownContactThreshold = 3
	}
	if config.GenerateTimeout == 0 {
		config.GenerateTimeout = constants.DefaultCollaboratorTimeout
	}
	return &ResponseService{
		Generator:   generator,
		History:     history,
		Settings:    settings,
		Occurrences: occurrences,
		Config:      config,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *ResponseService) ServiceReady() bool {
	return s.Generator != nil && s.History != nil && s.Settings != nil
}

// ClassifyRelationship maps a prior-message count onto a relationship.
func (s *ResponseService) ClassifyRelationship(count int) Relationship {
	switch {
	case count <= 0:
		return RelationshipStranger
	case count < s.Config.KnownContactThreshold:
		return RelationshipNewContact
	default:
		return RelationshipKnownContact
	}
}

// SelectStrategy applies the fixed priority rules over the inputs.
func (s *ResponseService) SelectStrategy(
	hasConcreteTime bool,
	avail *models.AvailabilityResult,
	schedulingLink string,
	relationship Relationship,
	urgency models.UrgencyLevel,
) models.ResponseStrategy {
	if !hasConcreteTime {
		if schedulingLink == "" {
			return models.StrategyRequestMoreInfo
		}
		// A vague request with a link: warn when the near-term calendar
		// is already congested around the probed window.
		if avail != nil && !avail.Available {
			return models.StrategySchedulingLinkConflict
		}
		return models.StrategySchedulingLink
	}
	if avail != nil && avail.Available {
		return models.StrategyAccept
	}
	return models.StrategyProposeAlternatives
}

// Respond selects a strategy and renders the draft for a detected request.
func (s *ResponseService) Respond(
	ctx context.Context,
	userUID string,
	req *models.MeetingRequest,
	resolved *models.ResolvedTime,
	avail *models.AvailabilityResult,
) (*models.MeetingResponse, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("response service not initialized")
	}

	schedulingLink, err := s.Settings.GetSchedulingLink(ctx, userUID)
	if err != nil {
		slog.DebugContext(ctx, "no scheduling link for user", logging.ErrKey, err, "user_uid", userUID)
		schedulingLink = ""
	}

	count, err := s.History.CountFromSender(ctx, userUID, req.Sender)
	if err != nil {
		slog.WarnContext(ctx, "sender history lookup failed", logging.ErrKey, err, "user_uid", userUID)
		count = 0
	}
	relationship := s.ClassifyRelationship(count)

	strategy := s.SelectStrategy(req.HasConcreteTime(), avail, schedulingLink, relationship, req.Urgency)

	data := s.templateData(req, resolved, avail, schedulingLink, relationship)
	body, renderedBy := s.render(ctx, strategy, data)
	if body == "" {
		return nil, domain.NewInternalError("no response text produced for strategy " + string(strategy))
	}

	now := time.Now().UTC()
	return &models.MeetingResponse{
		UID:        uuid.New().String(),
		MessageUID: req.MessageUID,
		UserUID:    userUID,
		Strategy:   strategy,
		Body:       body,
		RenderedBy: renderedBy,
		CreatedAt:  &now,
	}, nil
}

// responseData is the parameter set shared by the generative prompt and
// the deterministic templates.
type responseData struct {
	SenderName     string
	Subject        string
	Relationship   Relationship
	Urgency        models.UrgencyLevel
	RequestedTime  string
	Duration       int
	Alternatives   []string
	SchedulingLink string
	Recurring      bool
	NextOccurrence string
}

func (s *ResponseService) templateData(
	req *models.MeetingRequest,
	resolved *models.ResolvedTime,
	avail *models.AvailabilityResult,
	schedulingLink string,
	relationship Relationship,
) responseData {
	data := responseData{
		SenderName:     senderDisplayName(req.Sender),
		Subject:        req.Subject,
		Relationship:   relationship,
		Urgency:        req.Urgency,
		Duration:       req.DurationMinutes,
		SchedulingLink: schedulingLink,
		Recurring:      req.Category == models.MeetingCategoryRecurring,
	}
	if resolved != nil {
		data.RequestedTime = formatInZone(resolved.Instant, resolved.Zone)
		if data.Recurring && s.Occurrences != nil {
			if occurrences, err := s.Occurrences.NextOccurrences(resolved.Instant, 2); err == nil && len(occurrences) > 1 {
				data.NextOccurrence = formatInZone(occurrences[1], resolved.Zone)
			}
		}
	}
	if avail != nil {
		zone := avail.Zone
		for _, alt := range avail.Alternatives {
			data.Alternatives = append(data.Alternatives, formatInZone(alt.Start, zone))
		}
	}
	return data
}

// render tries the generative collaborator first and falls back to the
// deterministic template on timeout, error, empty, or over-budget output.
func (s *ResponseService) render(ctx context.Context, strategy models.ResponseStrategy, data responseData) (string, string) {
	genCtx, cancel := context.WithTimeout(ctx, s.Config.GenerateTimeout)
	defer cancel()

	text, err := s.Generator.Generate(genCtx, models.GenerationRequest{
		System:   generationSystemPrompt,
		Prompt:   s.generationPrompt(strategy, data),
		MaxWords: s.Config.MaxWords,
	})
	if err == nil {
		text = strings.TrimSpace(text)
		if text != "" && wordCount(text) <= s.Config.MaxWords*3/2 {
			return text, models.RenderedByGenerator
		}
		slog.WarnContext(ctx, "generated response rejected",
			"strategy", strategy,
			"words", wordCount(text),
			"budget", s.Config.MaxWords,
		)
	} else {
		slog.WarnContext(ctx, "response generation failed, using template", logging.ErrKey, err, "strategy", strategy)
	}

	rendered, err := renderTemplate(strategy, data)
	if err != nil {
		slog.ErrorContext(ctx, "template rendering failed", logging.ErrKey, err, "strategy", strategy)
		return "", ""
	}
	return rendered, models.RenderedByTemplate
}

const generationSystemPrompt = "You draft short, professional email replies about meeting scheduling. " +
	"Write only the reply body, no subject line and no signature."

func (s *ResponseService) generationPrompt(strategy models.ResponseStrategy, data responseData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a reply to %s (%s, urgency %s) about %q.\n", data.SenderName, data.Relationship, data.Urgency, data.Subject)
	fmt.Fprintf(&b, "Strategy: %s.\n", strategy)
	if data.RequestedTime != "" {
		fmt.Fprintf(&b, "Requested time: %s for %d minutes.\n", data.RequestedTime, data.Duration)
	}
	if len(data.Alternatives) > 0 {
		fmt.Fprintf(&b, "Open alternatives: %s.\n", strings.Join(data.Alternatives, "; "))
	}
	if data.SchedulingLink != "" {
		fmt.Fprintf(&b, "Scheduling link: %s.\n", data.SchedulingLink)
	}
	if data.Recurring && data.NextOccurrence != "" {
		fmt.Fprintf(&b, "This is a recurring request; the following occurrence would be %s.\n", data.NextOccurrence)
	}
	fmt.Fprintf(&b, "Stay under %d words.", s.Config.MaxWords)
	return b.String()
}

// Deterministic fallback templates, one per strategy.
var responseTemplates = template.Must(template.New("responses").Parse(`
{{- define "accept" -}}
Hi {{.SenderName}},

{{.RequestedTime}} works for me{{if .Duration}} for {{.Duration}} minutes{{end}}. I'll see you then.
{{- if .Recurring}} Happy to make this a recurring slot; the next one would be {{.NextOccurrence}}.{{end}}

Best regards
{{- end}}

{{- define "propose_alternatives" -}}
Hi {{.SenderName}},

Unfortunately {{.RequestedTime}} doesn't work for me.
{{- if .Alternatives}} Could we do one of these instead?
{{range .Alternatives}}- {{.}}
{{end}}{{- else}} Could you suggest another time?{{end -}}

Best regards
{{- end}}

{{- define "scheduling_link" -}}
Hi {{.SenderName}},

Happy to meet. The easiest way to find a slot is my scheduling link: {{.SchedulingLink}}. Pick whatever works for you.

Best regards
{{- end}}

{{- define "scheduling_link_conflict" -}}
Hi {{.SenderName}},

Happy to meet. My calendar is fairly full around then, so the scheduling link is the most reliable option: {{.SchedulingLink}}. Slots shown there are up to date.

Best regards
{{- end}}

{{- define "request_more_info" -}}
Hi {{.SenderName}},

I'd be glad to meet. Could you share a couple of concrete times that work for you{{if .Duration}} (about {{.Duration}} minutes){{end}}? I'll confirm one.

Best regards
{{- end}}
`))

func renderTemplate(strategy models.ResponseStrategy, data responseData) (string, error) {
	var b strings.Builder
	if err := responseTemplates.ExecuteTemplate(&b, string(strategy), data); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

func senderDisplayName(sender string) string {
	sender = strings.TrimSpace(sender)
	if idx := strings.Index(sender, "<"); idx > 0 {
		name := strings.TrimSpace(strings.Trim(sender[:idx], `" `))
		if name != "" {
			return name
		}
	}
	if at := strings.Index(sender, "@"); at > 0 {
		return strings.Trim(sender[:at], "<> ")
	}
	return "there"
}

func formatInZone(t time.Time, zone string) string {
	if loc, err := time.LoadLocation(zone); err == nil {
		t = t.In(loc)
	}
	return t.Format("Monday, January 2 at 3:04 PM MST")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
