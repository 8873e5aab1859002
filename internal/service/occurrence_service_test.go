// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOccurrenceService_NextOccurrences(t *testing.T) {
	svc := NewOccurrenceService()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	t.Run("weekly cadence from the first instant", func(t *testing.T) {
		occurrences, err := svc.NextOccurrences(start, 4)
		require.NoError(t, err)
		require.Len(t, occurrences, 4)
		assert.True(t, occurrences[0].Equal(start))
		for i := 1; i < len(occurrences); i++ {
			assert.Equal(t, 7*24*time.Hour, occurrences[i].Sub(occurrences[i-1]))
			assert.Equal(t, start.Weekday(), occurrences[i].Weekday())
		}
	})

	t.Run("non-positive count yields nothing", func(t *testing.T) {
		occurrences, err := svc.NextOccurrences(start, 0)
		require.NoError(t, err)
		assert.Empty(t, occurrences)

		occurrences, err = svc.NextOccurrences(start, -1)
		require.NoError(t, err)
		assert.Empty(t, occurrences)
	})
}
