// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"time"

	"github.com/teambition/rrule-go"
)

// OccurrenceService expands recurring meeting requests into upcoming
// occurrence instants. Requests rarely state a recurrence rule beyond
// "weekly sync" phrasing, so a weekly cadence from the first resolved
// instant is assumed.
type OccurrenceService struct{}

// NewOccurrenceService creates a new OccurrenceService.
func NewOccurrenceService() *OccurrenceService {
	return &OccurrenceService{}
}

// NextOccurrences returns up to count weekly occurrences starting at start.
func (s *OccurrenceService) NextOccurrences(start time.Time, count int) ([]time.Time, error) {
	if count <= 0 {
		return nil, nil
	}
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: start,
		Count:   count,
	})
	if err != nil {
		return nil, err
	}
	return rule.All(), nil
}
