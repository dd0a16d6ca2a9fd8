package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// TestMetrics verifies helpers update the expected series on independent registries.
func TestMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	other := New()

	m.ObserveTick("region", time.Now(), true)
	m.IncrementChildFailure("region", true)
	m.AddDropped("region", "stale", 3)
	m.AddDropped("region", "stale", 0)
	m.IncrementCoordinatorTick(time.Now())
	m.SetRunning(true)
	m.SetNationTotal("n1", 42)
	m.IncrementPersistenceError("entity")

	active := 7
	m.RegisterActive("entity", func() int { return active })

	require.InDelta(t, 1.0, testutil.ToFloat64(m.AggregatorTicks.WithLabelValues("region", "partial")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(m.ChildFailures.WithLabelValues("region", "timeout")), 1e-9)
	require.InDelta(t, 3.0, testutil.ToFloat64(m.DroppedContribs.WithLabelValues("region", "stale")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(m.CoordinatorTicks), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(m.CoordinatorRunning), 1e-9)
	require.InDelta(t, 42.0, testutil.ToFloat64(m.NationTotal.WithLabelValues("n1")), 1e-9)
	require.InDelta(t, 0.0, testutil.ToFloat64(other.CoordinatorTicks), 1e-9)

	count, err := testutil.GatherAndCount(m.Registry, "energy_sim_active_actors")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
