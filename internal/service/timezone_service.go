// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/pkg/constants"
)

// zoneAbbreviations is the closed map of supported timezone abbreviations.
// Anything not in this map is treated as no match; the resolver never
// guesses at ambiguous abbreviations.
var zoneAbbreviations = map[string]string{
	"EST":  "America/New_York",
	"EDT":  "America/New_York",
	"ET":   "America/New_York",
	"CST":  "America/Chicago",
	"CDT":  "America/Chicago",
	"CT":   "America/Chicago",
	"MST":  "America/Denver",
	"MDT":  "America/Denver",
	"MT":   "America/Denver",
	"PST":  "America/Los_Angeles",
	"PDT":  "America/Los_Angeles",
	"PT":   "America/Los_Angeles",
	"UTC":  "UTC",
	"GMT":  "UTC",
	"BST":  "Europe/London",
	"CET":  "Europe/Paris",
	"CEST": "Europe/Paris",
	"IST":  "Asia/Kolkata",
	"JST":  "Asia/Tokyo",
	"SGT":  "Asia/Singapore",
	"HKT":  "Asia/Hong_Kong",
	"AEST": "Australia/Sydney",
	"AEDT": "Australia/Sydney",
	"NZST": "Pacific/Auckland",
	"HST":  "Pacific/Honolulu",
	"AKST": "America/Anchorage",
}

// explicitZonePattern matches a time expression immediately followed by a
// supported timezone abbreviation, e.g. "2pm EST" or "14:30 UTC".
var explicitZonePattern = buildExplicitZonePattern()

func buildExplicitZonePattern() *regexp.Regexp {
	abbrs := make([]string, 0, len(zoneAbbreviations))
	for abbr := range zoneAbbreviations {
		abbrs = append(abbrs, abbr)
	}
	// Longest first so "CEST" wins over "CET" and "EST".
	sort.Slice(abbrs, func(i, j int) bool {
		if len(abbrs[i]) != len(abbrs[j]) {
			return len(abbrs[i]) > len(abbrs[j])
		}
		return abbrs[i] < abbrs[j]
	})
	return regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm)?\s+(` + strings.Join(abbrs, "|") + `)\b`)
}

// ExtractExplicitZone scans text for a time expression immediately followed
// by a supported timezone abbreviation and returns the IANA zone it maps
// to. It is a pure string operation with no side effects. The second
// return value is false when the text contains no supported abbreviation.
func ExtractExplicitZone(text string) (string, bool) {
	match := explicitZonePattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	zone, ok := zoneAbbreviations[strings.ToUpper(match[1])]
	return zone, ok
}

// ObservesDST reports whether the zone applies daylight-saving time in the
// given year, by comparing its January and July UTC offsets.
func ObservesDST(zone string, year int) bool {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return false
	}
	_, janOffset := time.Date(year, time.January, 1, 12, 0, 0, 0, loc).Zone()
	_, julOffset := time.Date(year, time.July, 1, 12, 0, 0, 0, loc).Zone()
	return janOffset != julOffset
}

// TimeZoneServiceConfig configures the timezone resolution chain.
type TimeZoneServiceConfig struct {
	// DefaultZone is the terminal fallback of the resolution chain.
	DefaultZone string
	// CacheTTL bounds how long a resolved zone is served from the
	// in-process cache without consulting the durable store.
	CacheTTL time.Duration
}

type zoneCacheEntry struct {
	zone      string
	method    models.ResolutionMethod
	expiresAt time.Time
}

// TimeZoneService resolves a user's canonical IANA timezone through a
// fallback chain: in-process cache, durable user settings, calendar
// provider setting, hard-coded default. Resolution never fails; it always
// terminates at the default zone.
type TimeZoneService struct {
	Settings domain.UserSettingsRepository
	Calendar domain.CalendarProvider
	Config   TimeZoneServiceConfig

	mu    sync.RWMutex
	cache map[string]zoneCacheEntry
	now   func() time.Time
}

// NewTimeZoneService creates a new TimeZoneService.
func NewTimeZoneService(
	settings domain.UserSettingsRepository,
	calendar domain.CalendarProvider,
	config TimeZoneServiceConfig,
) *TimeZoneService {
	if config.DefaultZone == "" {
		config.DefaultZone = constants.DefaultTimezone
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 24 * time.Hour
	}
	return &TimeZoneService{
		Settings: settings,
		Calendar: calendar,
		Config:   config,
		cache:    make(map[string]zoneCacheEntry),
		now:      time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *TimeZoneService) ServiceReady() bool {
	return s.Settings != nil && s.Calendar != nil
}

// Resolve returns the user's canonical IANA zone and the method that
// produced it. A fresh cache entry never blocks on the network.
func (s *TimeZoneService) Resolve(ctx context.Context, userUID string) (string, models.ResolutionMethod) {
	if entry, ok := s.cached(userUID); ok {
		return entry.zone, entry.method
	}

	if s.Settings != nil {
		zone, err := s.Settings.GetTimezone(ctx, userUID)
		if err == nil && validZone(zone) {
			s.store(userUID, zone, models.ResolutionUserDefault)
			return zone, models.ResolutionUserDefault
		}
		if err != nil && domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.WarnContext(ctx, "timezone settings lookup failed", logging.ErrKey, err, "user_uid", userUID)
		}
	}

	if s.Calendar != nil {
		zone, err := s.Calendar.GetUserTimezone(ctx, userUID)
		if err == nil && validZone(zone) {
			s.store(userUID, zone, models.ResolutionProviderSetting)
			return zone, models.ResolutionProviderSetting
		}
		if err != nil {
			slog.WarnContext(ctx, "calendar timezone lookup failed", logging.ErrKey, err, "user_uid", userUID)
		}
	}

	return s.Config.DefaultZone, models.ResolutionSystemFallback
}

func (s *TimeZoneService) cached(userUID string) (zoneCacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[userUID]
	if !ok || s.now().After(entry.expiresAt) {
		return zoneCacheEntry{}, false
	}
	return entry, true
}

// store caches a successful upstream resolution. The hard-coded fallback
// is never cached so that upstream recovery is picked up promptly.
func (s *TimeZoneService) store(userUID, zone string, method models.ResolutionMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[userUID] = zoneCacheEntry{
		zone:      zone,
		method:    method,
		expiresAt: s.now().Add(s.Config.CacheTTL),
	}
}

func validZone(zone string) bool {
	if zone == "" {
		return false
	}
	_, err := time.LoadLocation(zone)
	return err == nil
}
