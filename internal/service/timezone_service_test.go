// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
)

func TestExtractExplicitZone(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantZone  string
		wantFound bool
	}{
		{
			name:      "time with EST",
			text:      "can we meet at 2pm EST tomorrow?",
			wantZone:  "America/New_York",
			wantFound: true,
		},
		{
			name:      "24-hour time with UTC",
			text:      "standup at 14:30 UTC works",
			wantZone:  "UTC",
			wantFound: true,
		},
		{
			name:      "lowercase abbreviation",
			text:      "how about 9am pst?",
			wantZone:  "America/Los_Angeles",
			wantFound: true,
		},
		{
			name:      "CEST wins over CET and EST",
			text:      "call at 10 CEST",
			wantZone:  "Europe/Paris",
			wantFound: true,
		},
		{
			name:      "short ET abbreviation",
			text:      "3pm ET on Thursday",
			wantZone:  "America/New_York",
			wantFound: true,
		},
		{
			name:      "no abbreviation",
			text:      "can we meet at 2pm tomorrow?",
			wantFound: false,
		},
		{
			name:      "abbreviation without a time",
			text:      "I'm usually on EST hours",
			wantFound: false,
		},
		{
			name:      "unsupported abbreviation",
			text:      "2pm XYZ",
			wantFound: false,
		},
		{
			name:      "empty text",
			text:      "",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zone, found := ExtractExplicitZone(tt.text)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.wantZone, zone)
			}
		})
	}
}

func TestObservesDST(t *testing.T) {
	assert.True(t, ObservesDST("America/New_York", 2026))
	assert.True(t, ObservesDST("Europe/London", 2026))
	assert.False(t, ObservesDST("Asia/Kolkata", 2026))
	assert.False(t, ObservesDST("UTC", 2026))
	assert.False(t, ObservesDST("Pacific/Honolulu", 2026))
	assert.False(t, ObservesDST("not-a-zone", 2026))
}

func TestTimeZoneService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("user settings win", func(t *testing.T) {
		settings := &mocks.MockUserSettingsRepository{}
		calendar := &mocks.MockCalendarProvider{}
		settings.On("GetTimezone", ctx, "user-1").Return("Europe/Berlin", nil)

		svc := NewTimeZoneService(settings, calendar, TimeZoneServiceConfig{})
		zone, method := svc.Resolve(ctx, "user-1")

		assert.Equal(t, "Europe/Berlin", zone)
		assert.Equal(t, models.ResolutionUserDefault, method)
		calendar.AssertNotCalled(t, "GetUserTimezone")
	})

	t.Run("falls back to calendar provider", func(t *testing.T) {
		settings := &mocks.MockUserSettingsRepository{}
		calendar := &mocks.MockCalendarProvider{}
		settings.On("GetTimezone", ctx, "user-1").Return("", domain.NewNotFoundError("no settings"))
		calendar.On("GetUserTimezone", ctx, "user-1").Return("Asia/Tokyo", nil)

		svc := NewTimeZoneService(settings, calendar, TimeZoneServiceConfig{})
		zone, method := svc.Resolve(ctx, "user-1")

		assert.Equal(t, "Asia/Tokyo", zone)
		assert.Equal(t, models.ResolutionProviderSetting, method)
	})

	t.Run("invalid settings zone is skipped", func(t *testing.T) {
		settings := &mocks.MockUserSettingsRepository{}
		calendar := &mocks.MockCalendarProvider{}
		settings.On("GetTimezone", ctx, "user-1").Return("Mars/Olympus", nil)
		calendar.On("GetUserTimezone", ctx, "user-1").Return("Europe/London", nil)

		svc := NewTimeZoneService(settings, calendar, TimeZoneServiceConfig{})
		zone, method := svc.Resolve(ctx, "user-1")

		assert.Equal(t, "Europe/London", zone)
		assert.Equal(t, models.ResolutionProviderSetting, method)
	})

	t.Run("terminates at the default", func(t *testing.T) {
		settings := &mocks.MockUserSettingsRepository{}
		calendar := &mocks.MockCalendarProvider{}
		settings.On("GetTimezone", ctx, "user-1").Return("", domain.NewNotFoundError("no settings"))
		calendar.On("GetUserTimezone", ctx, "user-1").Return("", domain.NewUnavailableError("provider down"))

		svc := NewTimeZoneService(settings, calendar, TimeZoneServiceConfig{DefaultZone: "UTC"})
		zone, method := svc.Resolve(ctx, "user-1")

		assert.Equal(t, "UTC", zone)
		assert.Equal(t, models.ResolutionSystemFallback, method)
	})

	t.Run("successful resolution is cached", func(t *testing.T) {
		settings := &mocks.MockUserSettingsRepository{}
		calendar := &mocks.MockCalendarProvider{}
		settings.On("GetTimezone", ctx, "user-1").Return("Europe/Berlin", nil).Once()

		svc := NewTimeZoneService(settings, calendar, TimeZoneServiceConfig{})
		zone1, _ := svc.Resolve(ctx, "user-1")
		zone2, _ := svc.Resolve(ctx, "user-1")

		assert.Equal(t, "Europe/Berlin", zone1)
		assert.Equal(t, "Europe/Berlin", zone2)
		settings.AssertNumberOfCalls(t, "GetTimezone", 1)
	})

	t.Run("cache entries expire", func(t *testing.T) {
		settings := &mocks.MockUserSettingsRepository{}
		calendar := &mocks.MockCalendarProvider{}
		settings.On("GetTimezone", ctx, "user-1").Return("Europe/Berlin", nil).Twice()

		svc := NewTimeZoneService(settings, calendar, TimeZoneServiceConfig{CacheTTL: time.Hour})
		now := time.Now()
		svc.now = func() time.Time { return now }

		_, _ = svc.Resolve(ctx, "user-1")
		svc.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, _ = svc.Resolve(ctx, "user-1")

		settings.AssertNumberOfCalls(t, "GetTimezone", 2)
	})

	t.Run("fallback is never cached", func(t *testing.T) {
		settings := &mocks.MockUserSettingsRepository{}
		calendar := &mocks.MockCalendarProvider{}
		settings.On("GetTimezone", ctx, "user-1").Return("", domain.NewNotFoundError("no settings")).Twice()
		calendar.On("GetUserTimezone", ctx, "user-1").Return("", domain.NewNotFoundError("no setting")).Twice()

		svc := NewTimeZoneService(settings, calendar, TimeZoneServiceConfig{})
		_, method1 := svc.Resolve(ctx, "user-1")
		_, method2 := svc.Resolve(ctx, "user-1")

		require.Equal(t, models.ResolutionSystemFallback, method1)
		require.Equal(t, models.ResolutionSystemFallback, method2)
		settings.AssertNumberOfCalls(t, "GetTimezone", 2)
	})
}
