package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tick pipeline.
type Metrics struct {
	// Registry holds every instrument below.
	Registry *prometheus.Registry

	CoordinatorTicks   prometheus.Counter
	CoordinatorRunning prometheus.Gauge
	AggregatorTicks    *prometheus.CounterVec
	TickDuration       *prometheus.HistogramVec
	ChildFailures      *prometheus.CounterVec
	DroppedContribs    *prometheus.CounterVec
	NationTotal        *prometheus.GaugeVec
	PersistenceErrors  *prometheus.CounterVec
}

// New creates a Metrics instance with all instruments registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		CoordinatorTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "energy_sim_coordinator_ticks_total",
			Help: "Total number of coordinator firings",
		}),
		CoordinatorRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "energy_sim_coordinator_running",
			Help: "1 while the simulation clock is running",
		}),
		AggregatorTicks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_sim_aggregator_ticks_total",
			Help: "Total number of aggregator ticks by level and outcome",
		}, []string{"level", "outcome"}),
		TickDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "energy_sim_tick_duration_seconds",
			Help:    "Duration of ticks by level",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"level"}),
		ChildFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_sim_child_failures_total",
			Help: "Children excluded from a tick by level and reason",
		}, []string{"level", "reason"}),
		DroppedContribs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_sim_dropped_contributions_total",
			Help: "Contributions dropped at collection by level and reason",
		}, []string{"level", "reason"}),
		NationTotal: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "energy_sim_nation_total_joules",
			Help: "Latest energy total per nation",
		}, []string{"nation"}),
		PersistenceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_sim_persistence_errors_total",
			Help: "Failed state writes by actor kind",
		}, []string{"actor"}),
	}
}

// RegisterActive exposes the number of live activations reported by fn.
func (m *Metrics) RegisterActive(kind string, fn func() int) {
	promauto.With(m.Registry).NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "energy_sim_active_actors",
		Help:        "Number of live actor activations by kind",
		ConstLabels: prometheus.Labels{"kind": kind},
	}, func() float64 { return float64(fn()) })
}

// ObserveTick records an aggregator tick that started at start.
func (m *Metrics) ObserveTick(level string, start time.Time, partial bool) {
	outcome := "complete"
	if partial {
		outcome = "partial"
	}

	m.AggregatorTicks.WithLabelValues(level, outcome).Inc()
	m.TickDuration.WithLabelValues(level).Observe(time.Since(start).Seconds())
}

// IncrementChildFailure records an excluded child.
func (m *Metrics) IncrementChildFailure(level string, timeout bool) {
	reason := "error"
	if timeout {
		reason = "timeout"
	}

	m.ChildFailures.WithLabelValues(level, reason).Inc()
}

// AddDropped records contributions discarded at collection.
func (m *Metrics) AddDropped(level, reason string, n int) {
	if n > 0 {
		m.DroppedContribs.WithLabelValues(level, reason).Add(float64(n))
	}
}

// IncrementCoordinatorTick records a coordinator firing that started at start.
func (m *Metrics) IncrementCoordinatorTick(start time.Time) {
	m.CoordinatorTicks.Inc()
	m.TickDuration.WithLabelValues("coordinator").Observe(time.Since(start).Seconds())
}

// SetRunning mirrors the clock state.
func (m *Metrics) SetRunning(running bool) {
	if running {
		m.CoordinatorRunning.Set(1)
		return
	}

	m.CoordinatorRunning.Set(0)
}

// SetNationTotal records the latest total of a nation.
func (m *Metrics) SetNationTotal(nation string, total float64) {
	m.NationTotal.WithLabelValues(nation).Set(total)
}

// IncrementPersistenceError records a failed state write.
func (m *Metrics) IncrementPersistenceError(actor string) {
	m.PersistenceErrors.WithLabelValues(actor).Inc()
}
