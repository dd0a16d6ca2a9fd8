package sink

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/oshokin/energy-sim/internal/config"
	"github.com/oshokin/energy-sim/internal/logger"
)

// Report is a nation's aggregate for one tick.
type Report struct {
	// NationID identifies the nation.
	NationID string `json:"nation_id"`
	// Name is the nation's label.
	Name string `json:"name,omitempty"`
	// Seq is the tick sequence number.
	Seq uint64 `json:"seq"`
	// Total is the nation's energy use in joules.
	Total float64 `json:"total_joules"`
	// Population is the number of people counted.
	Population int64 `json:"population"`
	// PerCapita is Total divided by Population, zero without population.
	PerCapita float64 `json:"per_capita_joules"`
	// Breakdown maps region identities to their totals.
	Breakdown map[string]float64 `json:"breakdown"`
	// Partial is true when at least one region was excluded.
	Partial bool `json:"partial"`
	// FailedChildren lists excluded regions.
	FailedChildren []string `json:"failed_children,omitempty"`
	// At is when the tick completed.
	At time.Time `json:"at"`
}

// Sink receives nation reports.
type Sink interface {
	// Publish delivers one report.
	Publish(ctx context.Context, report Report) error
	// Close flushes and releases resources.
	Close() error
}

// LogSink writes reports to the logger.
type LogSink struct{}

var _ Sink = LogSink{}

// Publish logs the report at info level.
func (LogSink) Publish(ctx context.Context, report Report) error {
	logger.InfoKV(ctx, "Nation report",
		logger.Actor("nation", report.NationID),
		"seq", report.Seq,
		logger.Joules("total", report.Total),
		"population", report.Population,
		logger.Joules("per_capita", report.PerCapita),
		"regions", len(report.Breakdown),
		"partial", report.Partial,
	)

	return nil
}

// Close is a no-op.
func (LogSink) Close() error {
	return nil
}

// Clone returns a deep copy of the report.
func (r Report) Clone() Report {
	r.Breakdown = maps.Clone(r.Breakdown)
	r.FailedChildren = append([]string(nil), r.FailedChildren...)

	return r
}

// Open builds the sink selected by cfg.
//
//nolint:ireturn // The driver is selected at runtime.
func Open(cfg config.SinkConfig) (Sink, error) {
	switch cfg.Driver {
	case config.SinkLog, "":
		return LogSink{}, nil
	case config.SinkKafka:
		kafka, err := NewKafkaSink(cfg.Brokers, cfg.Topic)
		if err != nil {
			return nil, err
		}

		return kafka, nil
	default:
		return nil, fmt.Errorf("unsupported sink driver %q", cfg.Driver)
	}
}
