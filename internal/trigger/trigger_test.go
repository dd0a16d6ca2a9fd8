package trigger

import (
	"context"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/energy-sim/internal/repository/state"
)

// TestServiceFiresImmediatelyThenPeriodically verifies the zero initial delay and the period.
func TestServiceFiresImmediatelyThenPeriodically(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		svc := NewService(state.NewMemoryStore())

		defer svc.Close()

		var fired atomic.Int32

		require.NoError(t, svc.Arm(ctx, "clock", time.Second, func(context.Context) { fired.Add(1) }))

		synctest.Wait()
		require.EqualValues(t, 1, fired.Load())

		time.Sleep(3500 * time.Millisecond)
		synctest.Wait()
		require.EqualValues(t, 4, fired.Load())

		require.NoError(t, svc.Disarm(ctx, "clock"))

		time.Sleep(5 * time.Second)
		synctest.Wait()
		require.EqualValues(t, 4, fired.Load())

		record, err := svc.Lookup(ctx, "clock")
		require.NoError(t, err)
		require.False(t, record.Armed)
		require.Equal(t, time.Second, record.Period)
	})
}

// TestServiceFiringsDoNotOverlap verifies a slow firing delays the next instead of overlapping it.
func TestServiceFiringsDoNotOverlap(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		svc := NewService(state.NewMemoryStore())

		defer svc.Close()

		var (
			inside  atomic.Int32
			overlap atomic.Bool
			fired   atomic.Int32
		)

		fire := func(context.Context) {
			if inside.Add(1) > 1 {
				overlap.Store(true)
			}

			time.Sleep(2500 * time.Millisecond)
			fired.Add(1)
			inside.Add(-1)
		}

		require.NoError(t, svc.Arm(context.Background(), "slow", time.Second, fire))

		time.Sleep(10 * time.Second)
		synctest.Wait()

		require.False(t, overlap.Load())
		require.Positive(t, fired.Load())
	})
}

// TestServiceResume restarts an armed trigger from its persisted record.
func TestServiceResume(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		store := state.NewMemoryStore()

		first := NewService(store)
		require.NoError(t, first.Arm(ctx, "clock", time.Minute, func(context.Context) {}))
		first.Close()

		// A fresh service over the same store sees the armed record.
		second := NewService(store)
		defer second.Close()

		var fired atomic.Int32

		resumed, err := second.Resume(ctx, "clock", func(context.Context) { fired.Add(1) })
		require.NoError(t, err)
		require.True(t, resumed)

		synctest.Wait()
		require.EqualValues(t, 1, fired.Load())

		resumed, err = second.Resume(ctx, "unknown", func(context.Context) {})
		require.NoError(t, err)
		require.False(t, resumed)

		require.ErrorIs(t, second.Arm(ctx, "bad", 0, func(context.Context) {}), errInvalidPeriod)
	})
}

// TestManual verifies the on-demand scheduler.
func TestManual(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManual()

	var fired int

	require.False(t, m.Fire(ctx, "clock"))
	require.NoError(t, m.Arm(ctx, "clock", time.Second, func(context.Context) { fired++ }))

	period, armed := m.Armed("clock")
	require.True(t, armed)
	require.Equal(t, time.Second, period)

	require.True(t, m.Fire(ctx, "clock"))
	require.Equal(t, 1, fired)

	require.NoError(t, m.Disarm(ctx, "clock"))
	require.False(t, m.Fire(ctx, "clock"))
}
