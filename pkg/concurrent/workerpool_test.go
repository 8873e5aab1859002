// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("runs every function", func(t *testing.T) {
		pool := NewWorkerPool(3)
		var count atomic.Int32

		err := pool.Run(ctx,
			func() error { count.Add(1); return nil },
			func() error { count.Add(1); return nil },
			func() error { count.Add(1); return nil },
		)

		require.NoError(t, err)
		assert.Equal(t, int32(3), count.Load())
	})

	t.Run("returns the first error", func(t *testing.T) {
		pool := NewWorkerPool(1)
		boom := errors.New("boom")

		err := pool.Run(ctx,
			func() error { return boom },
			func() error { return nil },
		)

		assert.ErrorIs(t, err, boom)
	})

	t.Run("bounds concurrency", func(t *testing.T) {
		pool := NewWorkerPool(2)
		var mu sync.Mutex
		running, peak := 0, 0

		track := func() error {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()
			defer func() {
				mu.Lock()
				running--
				mu.Unlock()
			}()
			return nil
		}

		require.NoError(t, pool.Run(ctx, track, track, track, track, track))
		assert.LessOrEqual(t, peak, 2)
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		require.NoError(t, NewWorkerPool(2).Run(ctx))
	})
}

func TestWorkerPool_RunAll(t *testing.T) {
	ctx := context.Background()

	t.Run("collects every error without cancelling", func(t *testing.T) {
		pool := NewWorkerPool(2)
		var count atomic.Int32

		errs := pool.RunAll(ctx,
			func() error { count.Add(1); return errors.New("first") },
			func() error { count.Add(1); return nil },
			func() error { count.Add(1); return errors.New("second") },
		)

		assert.Len(t, errs, 2)
		assert.Equal(t, int32(3), count.Load())
	})

	t.Run("no errors yields nil", func(t *testing.T) {
		pool := NewWorkerPool(2)
		assert.Nil(t, pool.RunAll(ctx, func() error { return nil }))
	})
}
