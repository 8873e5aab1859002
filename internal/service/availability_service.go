// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
)

// AvailabilityServiceConfig configures conflict checking and alternative
// slot probing.
type AvailabilityServiceConfig struct {
	// WorkdayStartHour and WorkdayEndHour bound proposed alternatives to
	// working hours in the request's resolved zone.
	WorkdayStartHour int
	WorkdayEndHour   int
	// MaxAlternatives caps how many open slots are proposed.
	MaxAlternatives int
	// ProbeStep is the same-day probing increment.
	ProbeStep time.Duration
	// MaxProbeDays bounds how many days out alternatives are probed.
	MaxProbeDays int
}

// AvailabilityService evaluates calendar availability for a resolved
// window and proposes alternatives when the primary slot conflicts.
type AvailabilityService struct {
	Calendar domain.CalendarProvider
	Config   AvailabilityServiceConfig

	now func() time.Time
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(calendar domain.CalendarProvider, config AvailabilityServiceConfig) *AvailabilityService {
	if config.WorkdayStartHour == 0 {
		config.WorkdayStartHour = 9
	}
	if config.WorkdayEndHour == 0 {
		config.WorkdayEndHour = 17
	}
	if config.MaxAlternatives == 0 {
		config.MaxAlternatives = 3
	}
	if config.ProbeStep == 0 {
		config.ProbeStep = 30 * time.Minute
	}
	if config.MaxProbeDays == 0 {
		config.MaxProbeDays = 3
	}
	return &AvailabilityService{
		Calendar: calendar,
		Config:   config,
		now:      time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *AvailabilityService) ServiceReady() bool {
	return s.Calendar != nil
}

// Evaluate checks the window against the user's calendar in the window's
// resolved zone. Collaborator failure is surfaced as an explicit error:
// declaring a busy user available is a correctness bug, so unavailability
// of the calendar is never treated as "free".
func (s *AvailabilityService) Evaluate(ctx context.Context, userUID string, window models.TimeWindow, zone string) (*models.AvailabilityResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("availability service not initialized")
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, domain.NewValidationError("invalid timezone "+zone, err)
	}

	// One provider query covers the whole probe range so alternative
	// checking needs no further network calls.
	probeRange := models.TimeWindow{
		Start: window.Start.AddDate(0, 0, -s.Config.MaxProbeDays),
		End:   window.End.AddDate(0, 0, s.Config.MaxProbeDays),
	}
	events, err := s.Calendar.ListEvents(ctx, userUID, probeRange, zone)
	if err != nil {
		slog.ErrorContext(ctx, "calendar lookup failed", logging.ErrKey, err, "user_uid", userUID)
		return nil, domain.NewUnavailableError("calendar provider unavailable", err)
	}

	result := &models.AvailabilityResult{
		Window: window,
		Zone:   zone,
	}
	for _, event := range events {
		if window.Overlaps(event.Window()) {
			result.Conflicts = append(result.Conflicts, event)
		}
	}
	sort.Slice(result.Conflicts, func(i, j int) bool {
		return result.Conflicts[i].StartTime.Before(result.Conflicts[j].StartTime)
	})
	result.Available = len(result.Conflicts) == 0

	if !result.Available {
		result.Alternatives = s.proposeAlternatives(window, events, loc)
	}
	return result, nil
}

// proposeAlternatives probes outward from the requested window in fixed
// increments: same-day steps of ProbeStep first, then whole days at the
// same wall-clock time. Candidates are ranked by distance from the
// request; between equally distant open slots the earlier one wins.
func (s *AvailabilityService) proposeAlternatives(window models.TimeWindow, events []models.CalendarEvent, loc *time.Location) []models.TimeWindow {
	duration := window.Duration()
	start := window.Start.In(loc)

	type candidate struct {
		window   models.TimeWindow
		distance time.Duration
	}
	var candidates []candidate

	addCandidate := func(candidateStart time.Time) {
		// Backward probing must never reach behind the present.
		if candidateStart.Before(s.now()) {
			return
		}
		w := models.NewTimeWindow(candidateStart, duration)
		if !s.withinWorkingHours(w, loc) {
			return
		}
		distance := candidateStart.Sub(window.Start)
		if distance < 0 {
			distance = -distance
		}
		candidates = append(candidates, candidate{window: w, distance: distance})
	}

	// Same-day probing in ProbeStep increments, both directions.
	stepsPerDay := int(24 * time.Hour / s.Config.ProbeStep)
	for step := 1; step <= stepsPerDay; step++ {
		offset := time.Duration(step) * s.Config.ProbeStep
		addCandidate(start.Add(offset))
		addCandidate(start.Add(-offset))
	}
	// Day probing at the same wall-clock time.
	for day := 1; day <= s.Config.MaxProbeDays; day++ {
		addCandidate(start.AddDate(0, 0, day))
		addCandidate(start.AddDate(0, 0, -day))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].window.Start.Before(candidates[j].window.Start)
	})

	var open []models.TimeWindow
	seen := make(map[int64]bool)
	for _, c := range candidates {
		key := c.window.Start.Unix()
		if seen[key] {
			continue
		}
		seen[key] = true
		if s.slotOpen(c.window, events) {
			open = append(open, c.window)
			if len(open) == s.Config.MaxAlternatives {
				break
			}
		}
	}
	return open
}

func (s *AvailabilityService) withinWorkingHours(window models.TimeWindow, loc *time.Location) bool {
	start := window.Start.In(loc)
	end := window.End.In(loc)
	if start.Hour() < s.Config.WorkdayStartHour {
		return false
	}
	if end.Hour() > s.Config.WorkdayEndHour || (end.Hour() == s.Config.WorkdayEndHour && end.Minute() > 0) {
		return false
	}
	// Same calendar day only; overnight slots are never proposed.
	return start.Year() == end.Year() && start.YearDay() == end.YearDay()
}

func (s *AvailabilityService) slotOpen(window models.TimeWindow, events []models.CalendarEvent) bool {
	for _, event := range events {
		if window.Overlaps(event.Window()) {
			return false
		}
	}
	return true
}
