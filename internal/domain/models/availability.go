// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeWindow builds a window from a start instant and a duration.
func NewTimeWindow(start time.Time, duration time.Duration) TimeWindow {
	return TimeWindow{Start: start, End: start.Add(duration)}
}

// Overlaps reports whether two windows share any instant.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Duration returns the window length.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// CalendarEvent is a read-only reference to an event held by the calendar
// provider.
type CalendarEvent struct {
	UID       string    `json:"uid"`
	Title     string    `json:"title,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Organizer string    `json:"organizer,omitempty"`
}

// Window returns the event's occupied window.
func (e CalendarEvent) Window() TimeWindow {
	return TimeWindow{Start: e.StartTime, End: e.EndTime}
}

// AvailabilityResult is the transient outcome of an availability check for
// one requested window.
type AvailabilityResult struct {
	Window       TimeWindow      `json:"window"`
	Zone         string          `json:"zone"`
	Available    bool            `json:"available"`
	Conflicts    []CalendarEvent `json:"conflicts,omitempty"`
	Alternatives []TimeWindow    `json:"alternatives,omitempty"`
}
