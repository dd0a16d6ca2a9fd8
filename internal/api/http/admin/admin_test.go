package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/energy-sim/internal/api/grpc/control"
	"github.com/oshokin/energy-sim/internal/domain/energy"
	"github.com/oshokin/energy-sim/internal/simulation"
)

// fakeService returns canned answers.
type fakeService struct{}

func (fakeService) Status(context.Context) (*control.Status, error) {
	return &control.Status{
		Clock: &energy.ClockState{
			TickRecord: energy.TickRecord{Seq: 3, Interval: time.Second},
			Running:    true,
			TopLevel:   []string{"n"},
		},
		LastTick: &simulation.ClockTick{Seq: 3, Nations: 1},
	}, nil
}

func (fakeService) Aggregate(_ context.Context, level energy.Level, id string) (*simulation.Snapshot, error) {
	if id == "bad" {
		return nil, simulation.ErrInvalidState
	}

	return &simulation.Snapshot{
		State: &energy.AggregatorState{ID: id, Level: level, Children: []string{"a"}},
		Total: 1500,
		Last:  &simulation.TickResult{Seq: 3, Breakdown: map[string]float64{"a": 1500}},
	}, nil
}

func serve(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "energy_sim_test_total", Help: "test"}))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, path, nil)

	New(fakeService{}, registry).Router().ServeHTTP(recorder, request)

	return recorder
}

// TestHealthAndMetrics verifies the liveness and metrics endpoints.
func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusOK, serve(t, "/healthz").Code)

	metrics := serve(t, "/metrics")
	require.Equal(t, http.StatusOK, metrics.Code)
	require.True(t, strings.Contains(metrics.Body.String(), "energy_sim_test_total"))

	require.Equal(t, http.StatusOK, serve(t, "/version").Code)
}

// TestStatus verifies the clock view.
func TestStatus(t *testing.T) {
	t.Parallel()

	recorder := serve(t, "/v1/status")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body clockResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	require.True(t, body.Running)
	require.Equal(t, uint64(3), body.Seq)
	require.Equal(t, "1s", body.Interval)
	require.NotNil(t, body.LastTick)
}

// TestAggregate verifies aggregate lookups and their error statuses.
func TestAggregate(t *testing.T) {
	t.Parallel()

	recorder := serve(t, "/v1/aggregates/region/r1")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body aggregateResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	require.Equal(t, "r1", body.ID)
	require.Equal(t, energy.LevelRegion, body.Level)
	require.InDelta(t, 1500.0, body.Total, 1e-9)
	require.Equal(t, "1.50 kJ", body.TotalHuman)

	require.Equal(t, http.StatusBadRequest, serve(t, "/v1/aggregates/planet/x").Code)
	require.Equal(t, http.StatusBadRequest, serve(t, "/v1/aggregates/nation/bad").Code)
	require.Equal(t, http.StatusNotFound, serve(t, "/v1/nothing").Code)
}
