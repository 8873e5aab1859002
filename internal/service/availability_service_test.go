// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
)

func availabilityWindow(hour, minute int) models.TimeWindow {
	start := time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
	return models.NewTimeWindow(start, 30*time.Minute)
}

func busyEvent(uid string, start, end time.Time) models.CalendarEvent {
	return models.CalendarEvent{UID: uid, Title: "busy", StartTime: start, EndTime: end}
}

// pinnedAvailabilityService fixes the clock so probing around the test
// windows is deterministic.
func pinnedAvailabilityService(calendar domain.CalendarProvider, config AvailabilityServiceConfig, now time.Time) *AvailabilityService {
	svc := NewAvailabilityService(calendar, config)
	svc.now = func() time.Time { return now }
	return svc
}

func TestAvailabilityService_Evaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("open window is available", func(t *testing.T) {
		calendar := &mocks.MockCalendarProvider{}
		calendar.On("ListEvents", ctx, "user-1", mock.Anything, "UTC").Return([]models.CalendarEvent{
			busyEvent("ev-1",
				time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
				time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)),
		}, nil)

		svc := NewAvailabilityService(calendar, AvailabilityServiceConfig{})
		result, err := svc.Evaluate(ctx, "user-1", availabilityWindow(14, 0), "UTC")

		require.NoError(t, err)
		assert.True(t, result.Available)
		assert.Empty(t, result.Conflicts)
		assert.Empty(t, result.Alternatives)
	})

	t.Run("probe range covers the configured day spread", func(t *testing.T) {
		window := availabilityWindow(14, 0)
		calendar := &mocks.MockCalendarProvider{}
		calendar.On("ListEvents", ctx, "user-1", models.TimeWindow{
			Start: window.Start.AddDate(0, 0, -3),
			End:   window.End.AddDate(0, 0, 3),
		}, "UTC").Return([]models.CalendarEvent{}, nil)

		svc := NewAvailabilityService(calendar, AvailabilityServiceConfig{})
		_, err := svc.Evaluate(ctx, "user-1", window, "UTC")

		require.NoError(t, err)
		calendar.AssertNumberOfCalls(t, "ListEvents", 1)
	})

	t.Run("conflicts are collected and sorted", func(t *testing.T) {
		window := availabilityWindow(14, 0)
		calendar := &mocks.MockCalendarProvider{}
		calendar.On("ListEvents", ctx, "user-1", mock.Anything, "UTC").Return([]models.CalendarEvent{
			busyEvent("later",
				time.Date(2026, 3, 10, 14, 15, 0, 0, time.UTC),
				time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)),
			busyEvent("earlier",
				time.Date(2026, 3, 10, 13, 45, 0, 0, time.UTC),
				time.Date(2026, 3, 10, 14, 15, 0, 0, time.UTC)),
			busyEvent("elsewhere",
				time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC),
				time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC)),
		}, nil)

		svc := NewAvailabilityService(calendar, AvailabilityServiceConfig{})
		result, err := svc.Evaluate(ctx, "user-1", window, "UTC")

		require.NoError(t, err)
		assert.False(t, result.Available)
		require.Len(t, result.Conflicts, 2)
		assert.Equal(t, "earlier", result.Conflicts[0].UID)
		assert.Equal(t, "later", result.Conflicts[1].UID)
	})

	t.Run("alternatives rank by distance then earlier start", func(t *testing.T) {
		window := availabilityWindow(14, 0)
		calendar := &mocks.MockCalendarProvider{}
		calendar.On("ListEvents", ctx, "user-1", mock.Anything, "UTC").Return([]models.CalendarEvent{
			busyEvent("blocker",
				time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
				time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)),
		}, nil)

		svc := pinnedAvailabilityService(calendar, AvailabilityServiceConfig{}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
		result, err := svc.Evaluate(ctx, "user-1", window, "UTC")

		require.NoError(t, err)
		require.Len(t, result.Alternatives, 3)
		// 13:30 is the closest open slot; at 60 minutes out the earlier of
		// 13:00 and 15:00 wins.
		assert.True(t, result.Alternatives[0].Start.Equal(time.Date(2026, 3, 10, 13, 30, 0, 0, time.UTC)))
		assert.True(t, result.Alternatives[1].Start.Equal(time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)))
		assert.True(t, result.Alternatives[2].Start.Equal(time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)))
	})

	t.Run("fully booked day falls back to adjacent days", func(t *testing.T) {
		window := availabilityWindow(9, 0)
		calendar := &mocks.MockCalendarProvider{}
		calendar.On("ListEvents", ctx, "user-1", mock.Anything, "UTC").Return([]models.CalendarEvent{
			busyEvent("all-day",
				time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
				time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)),
		}, nil)

		svc := pinnedAvailabilityService(calendar, AvailabilityServiceConfig{MaxProbeDays: 1}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
		result, err := svc.Evaluate(ctx, "user-1", window, "UTC")

		require.NoError(t, err)
		require.NotEmpty(t, result.Alternatives)
		// The booked day itself offers nothing; the nearest open slots are
		// the previous afternoon, closest first.
		assert.True(t, result.Alternatives[0].Start.Equal(time.Date(2026, 3, 9, 16, 30, 0, 0, time.UTC)))
		for _, alt := range result.Alternatives {
			assert.NotEqual(t, 10, alt.Start.Day(), "alternative %s lands on the booked day", alt.Start)
		}
	})

	t.Run("alternatives stay inside working hours", func(t *testing.T) {
		window := availabilityWindow(14, 0)
		calendar := &mocks.MockCalendarProvider{}
		calendar.On("ListEvents", ctx, "user-1", mock.Anything, "UTC").Return([]models.CalendarEvent{
			busyEvent("blocker",
				time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
				time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)),
		}, nil)

		svc := pinnedAvailabilityService(calendar, AvailabilityServiceConfig{MaxAlternatives: 10}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
		result, err := svc.Evaluate(ctx, "user-1", window, "UTC")

		require.NoError(t, err)
		require.NotEmpty(t, result.Alternatives)
		for _, alt := range result.Alternatives {
			assert.GreaterOrEqual(t, alt.Start.Hour(), 9, "alternative %s starts before working hours", alt.Start)
			assert.LessOrEqual(t, alt.End.Hour(), 17, "alternative %s ends after working hours", alt.End)
		}
	})

	t.Run("alternatives are never proposed in the past", func(t *testing.T) {
		window := availabilityWindow(14, 0)
		calendar := &mocks.MockCalendarProvider{}
		calendar.On("ListEvents", ctx, "user-1", mock.Anything, "UTC").Return([]models.CalendarEvent{
			busyEvent("blocker",
				time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
				time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)),
		}, nil)

		// The clock sits at the requested start, so every earlier slot
		// on the day and every prior day is already gone.
		now := window.Start
		svc := pinnedAvailabilityService(calendar, AvailabilityServiceConfig{}, now)
		result, err := svc.Evaluate(ctx, "user-1", window, "UTC")

		require.NoError(t, err)
		require.Len(t, result.Alternatives, 3)
		assert.True(t, result.Alternatives[0].Start.Equal(time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)))
		assert.True(t, result.Alternatives[1].Start.Equal(time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)))
		assert.True(t, result.Alternatives[2].Start.Equal(time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)))
		for _, alt := range result.Alternatives {
			assert.False(t, alt.Start.Before(now), "alternative %s is in the past", alt.Start)
		}
	})

	t.Run("provider failure is never reported as free", func(t *testing.T) {
		calendar := &mocks.MockCalendarProvider{}
		calendar.On("ListEvents", ctx, "user-1", mock.Anything, "UTC").Return(nil, domain.NewUnavailableError("calendar down"))

		svc := NewAvailabilityService(calendar, AvailabilityServiceConfig{})
		result, err := svc.Evaluate(ctx, "user-1", availabilityWindow(14, 0), "UTC")

		require.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})

	t.Run("invalid zone is a validation error", func(t *testing.T) {
		calendar := &mocks.MockCalendarProvider{}

		svc := NewAvailabilityService(calendar, AvailabilityServiceConfig{})
		_, err := svc.Evaluate(ctx, "user-1", availabilityWindow(14, 0), "Mars/Olympus")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
		calendar.AssertNotCalled(t, "ListEvents")
	})
}
