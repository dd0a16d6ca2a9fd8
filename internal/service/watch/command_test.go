package watch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	statusCalls    atomic.Int32
	aggregateCalls atomic.Int32
	err            error
}

func (f *fakeSource) Status(context.Context) (map[string]any, error) {
	f.statusCalls.Add(1)

	if f.err != nil {
		return nil, f.err
	}

	return map[string]any{
		"running": true,
		"seq":     float64(f.statusCalls.Load()),
		"last_tick": map[string]any{
			"duration": "1ms",
			"failures": []any{map[string]any{"id": "n1"}},
		},
	}, nil
}

func (f *fakeSource) Aggregate(context.Context, string) (map[string]any, error) {
	f.aggregateCalls.Add(1)

	return map[string]any{"total": 1500.0}, nil
}

// TestLoopCount verifies the loop stops after Count polls and follows the aggregate on each.
func TestLoopCount(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		src := &fakeSource{}

		err := loop(t.Context(), src, &Options{PollInterval: time.Second, AggregateID: "n1", Count: 3})
		require.NoError(t, err)
		require.EqualValues(t, 3, src.statusCalls.Load())
		require.EqualValues(t, 3, src.aggregateCalls.Load())
	})
}

// TestLoopStopsOnCancel verifies cancellation ends an unbounded loop and failed polls do not.
func TestLoopStopsOnCancel(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 2500*time.Millisecond)
		defer cancel()

		src := &fakeSource{err: errors.New("unavailable")}

		require.NoError(t, loop(ctx, src, &Options{PollInterval: time.Second}))
		require.EqualValues(t, 3, src.statusCalls.Load())
		require.Zero(t, src.aggregateCalls.Load())
	})
}

// TestJoules verifies totals are rendered with SI prefixes.
func TestJoules(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1.50 kJ", joules(1500.0))
	require.Equal(t, "<nil>", joules(nil))
}
