// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// proximityWindow is how many characters a time-of-day may sit from a date
// reference and still be paired with it. A single time further away than
// this triggers the full-message second pass instead of being dropped.
const proximityWindow = 120

var (
	timeOfDayPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b|\b(\d{1,2}):(\d{2})\b`)
	noonPattern      = regexp.MustCompile(`(?i)\b(noon|midday)\b`)

	tomorrowPattern = regexp.MustCompile(`(?i)\btomorrow\b`)
	todayPattern    = regexp.MustCompile(`(?i)\btoday\b`)
	weekdayPattern  = regexp.MustCompile(`(?i)\b(next\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	monthDayPattern = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	isoDatePattern  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

var monthsByName = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdaysByName = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

type dateRef struct {
	index int
	date  time.Time // midnight in the scan location
}

type timeRef struct {
	index  int
	hour   int
	minute int
}

// scanDateRefs finds date references in text, relative to ref.
func scanDateRefs(text string, ref time.Time, loc *time.Location) []dateRef {
	refDate := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
	var refs []dateRef

	for _, m := range todayPattern.FindAllStringIndex(text, -1) {
		refs = append(refs, dateRef{index: m[0], date: refDate})
	}
	for _, m := range tomorrowPattern.FindAllStringIndex(text, -1) {
		refs = append(refs, dateRef{index: m[0], date: refDate.AddDate(0, 0, 1)})
	}
	for _, m := range weekdayPattern.FindAllStringSubmatchIndex(text, -1) {
		name := strings.ToLower(text[m[4]:m[5]])
		target, ok := weekdaysByName[name]
		if !ok {
			continue
		}
		daysAhead := (int(target) - int(refDate.Weekday()) + 7) % 7
		if daysAhead == 0 {
			daysAhead = 7
		}
		// "next tuesday" skips the coming tuesday.
		if m[2] != -1 {
			daysAhead += 7
		}
		refs = append(refs, dateRef{index: m[0], date: refDate.AddDate(0, 0, daysAhead)})
	}
	for _, m := range monthDayPattern.FindAllStringSubmatchIndex(text, -1) {
		monthName := strings.ToLower(text[m[2]:m[3]])
		month, ok := monthsByName[monthName[:3]]
		if !ok {
			continue
		}
		day, err := strconv.Atoi(text[m[4]:m[5]])
		if err != nil || day < 1 || day > 31 {
			continue
		}
		date := time.Date(refDate.Year(), month, day, 0, 0, 0, 0, loc)
		// A month-day already behind us means next year.
		if date.Before(refDate) {
			date = date.AddDate(1, 0, 0)
		}
		refs = append(refs, dateRef{index: m[0], date: date})
	}
	for _, m := range isoDatePattern.FindAllStringSubmatchIndex(text, -1) {
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		day, _ := strconv.Atoi(text[m[6]:m[7]])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		refs = append(refs, dateRef{index: m[0], date: time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].index < refs[j].index })
	return refs
}

// scanTimeRefs finds time-of-day references in text.
func scanTimeRefs(text string) []timeRef {
	var refs []timeRef
	for _, m := range timeOfDayPattern.FindAllStringSubmatchIndex(text, -1) {
		var r timeRef
		r.index = m[0]
		if m[2] != -1 {
			// am/pm form
			hour, err := strconv.Atoi(text[m[2]:m[3]])
			if err != nil || hour < 1 || hour > 12 {
				continue
			}
			minute := 0
			if m[4] != -1 {
				minute, _ = strconv.Atoi(text[m[4]:m[5]])
			}
			meridiem := strings.ToLower(text[m[6]:m[7]])
			if meridiem == "pm" && hour != 12 {
				hour += 12
			}
			if meridiem == "am" && hour == 12 {
				hour = 0
			}
			r.hour, r.minute = hour, minute
		} else {
			// 24-hour HH:MM form
			hour, _ := strconv.Atoi(text[m[8]:m[9]])
			minute, _ := strconv.Atoi(text[m[10]:m[11]])
			if hour > 23 || minute > 59 {
				continue
			}
			r.hour, r.minute = hour, minute
		}
		refs = append(refs, r)
	}
	for _, m := range noonPattern.FindAllStringIndex(text, -1) {
		refs = append(refs, timeRef{index: m[0], hour: 12})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].index < refs[j].index })
	return refs
}

// scanMessageTimes extracts concrete instants from free text. Dates and
// times are paired when they sit within proximityWindow characters of each
// other. When exactly one time-of-day exists in the whole text but it is
// outside every date's window, it is paired with the first date anyway:
// senders often separate "Tuesday" and "2pm" by a full sentence, and a
// naive windowed scan would miss the time entirely.
func scanMessageTimes(text string, ref time.Time, loc *time.Location) []time.Time {
	dates := scanDateRefs(text, ref, loc)
	times := scanTimeRefs(text)

	var out []time.Time
	usedTimes := make(map[int]bool)

	for _, d := range dates {
		matched := false
		for i, t := range times {
			if usedTimes[i] {
				continue
			}
			dist := t.index - d.index
			if dist < 0 {
				dist = -dist
			}
			if dist <= proximityWindow {
				out = append(out, withClock(d.date, t.hour, t.minute))
				usedTimes[i] = true
				matched = true
				break
			}
		}
		if !matched && len(times) == 1 && !usedTimes[0] {
			// Second pass over the full message.
			out = append(out, withClock(d.date, times[0].hour, times[0].minute))
			usedTimes[0] = true
		}
	}

	// A bare time with no date reference means today, or tomorrow if the
	// time has already passed.
	if len(dates) == 0 {
		for _, t := range times {
			candidate := withClock(time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc), t.hour, t.minute)
			if !candidate.After(ref) {
				candidate = candidate.AddDate(0, 0, 1)
			}
			out = append(out, candidate)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// parseTimeExpression resolves a single extracted expression such as
// "tomorrow at 2pm" or "next tuesday 3:30pm" into an instant in loc.
func parseTimeExpression(expr string, ref time.Time, loc *time.Location) (time.Time, bool) {
	results := scanMessageTimes(expr, ref, loc)
	if len(results) == 0 {
		return time.Time{}, false
	}
	return results[0], true
}

func withClock(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}
