// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The reference instant for these tests is Wednesday, March 4 2026, 9:00
// in Los Angeles.
func parseTestRef(t *testing.T) (time.Time, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	ref := time.Date(2026, 3, 4, 9, 0, 0, 0, loc)
	require.Equal(t, time.Wednesday, ref.Weekday())
	return ref, loc
}

func TestParseTimeExpression(t *testing.T) {
	ref, loc := parseTestRef(t)

	tests := []struct {
		name string
		expr string
		want time.Time
		ok   bool
	}{
		{
			name: "tomorrow with am-pm time",
			expr: "tomorrow at 2pm",
			want: time.Date(2026, 3, 5, 14, 0, 0, 0, loc),
			ok:   true,
		},
		{
			name: "today with minutes",
			expr: "today at 4:15pm",
			want: time.Date(2026, 3, 4, 16, 15, 0, 0, loc),
			ok:   true,
		},
		{
			name: "coming weekday",
			expr: "friday at noon",
			want: time.Date(2026, 3, 6, 12, 0, 0, 0, loc),
			ok:   true,
		},
		{
			name: "next weekday skips the coming one",
			expr: "next tuesday 3:30pm",
			want: time.Date(2026, 3, 17, 15, 30, 0, 0, loc),
			ok:   true,
		},
		{
			name: "month and day",
			expr: "March 10th at 10am",
			want: time.Date(2026, 3, 10, 10, 0, 0, 0, loc),
			ok:   true,
		},
		{
			name: "past month-day rolls to next year",
			expr: "January 5 at 9am",
			want: time.Date(2027, 1, 5, 9, 0, 0, 0, loc),
			ok:   true,
		},
		{
			name: "iso date with 24-hour time",
			expr: "2026-04-01 14:00",
			want: time.Date(2026, 4, 1, 14, 0, 0, 0, loc),
			ok:   true,
		},
		{
			name: "bare time later today",
			expr: "3pm",
			want: time.Date(2026, 3, 4, 15, 0, 0, 0, loc),
			ok:   true,
		},
		{
			name: "bare time already passed means tomorrow",
			expr: "8am",
			want: time.Date(2026, 3, 5, 8, 0, 0, 0, loc),
			ok:   true,
		},
		{
			name: "midnight 12am",
			expr: "tomorrow 12am",
			want: time.Date(2026, 3, 5, 0, 0, 0, 0, loc),
			ok:   true,
		},
		{
			name: "noon 12pm stays 12",
			expr: "tomorrow 12pm",
			want: time.Date(2026, 3, 5, 12, 0, 0, 0, loc),
			ok:   true,
		},
		{
			name: "vague expression",
			expr: "sometime next week",
			ok:   false,
		},
		{
			name: "date without a time is not resolved",
			expr: "tomorrow",
			ok:   false,
		},
		{
			name: "empty",
			expr: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTimeExpression(tt.expr, ref, loc)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			}
		})
	}
}

func TestScanMessageTimes(t *testing.T) {
	ref, loc := parseTestRef(t)

	t.Run("pairs date and time within the window", func(t *testing.T) {
		got := scanMessageTimes("Could we sync tomorrow at 2pm about the roadmap?", ref, loc)
		require.Len(t, got, 1)
		assert.True(t, time.Date(2026, 3, 5, 14, 0, 0, 0, loc).Equal(got[0]))
	})

	t.Run("multiple pairs resolve independently", func(t *testing.T) {
		got := scanMessageTimes("Either tomorrow at 2pm or friday at 10am works.", ref, loc)
		require.Len(t, got, 2)
		assert.True(t, time.Date(2026, 3, 5, 14, 0, 0, 0, loc).Equal(got[0]))
		assert.True(t, time.Date(2026, 3, 6, 10, 0, 0, 0, loc).Equal(got[1]))
	})

	t.Run("single far-apart time pairs on the second pass", func(t *testing.T) {
		text := "Would Tuesday work for you? We need to cover the quarterly budget review, " +
			"the headcount plan for the platform team, and the migration timeline that " +
			"legal asked about last week. I was thinking 2pm if that still works."
		got := scanMessageTimes(text, ref, loc)
		require.Len(t, got, 1)
		assert.True(t, time.Date(2026, 3, 10, 14, 0, 0, 0, loc).Equal(got[0]))
	})

	t.Run("no references yields nothing", func(t *testing.T) {
		got := scanMessageTimes("Thanks for the update, looks good to me.", ref, loc)
		assert.Empty(t, got)
	})

	t.Run("results are sorted ascending", func(t *testing.T) {
		got := scanMessageTimes("friday at 10am, or tomorrow at 2pm if sooner is better", ref, loc)
		require.Len(t, got, 2)
		assert.True(t, got[0].Before(got[1]))
	})
}
