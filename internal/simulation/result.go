package simulation

import (
	"maps"
	"slices"
	"time"

	"github.com/oshokin/energy-sim/internal/domain/energy"
)

// TickResult is the outcome of one aggregator tick.
type TickResult struct {
	// AggregatorID identifies the aggregator.
	AggregatorID string
	// Level is region or nation.
	Level energy.Level
	// Seq is the tick sequence number.
	Seq uint64
	// Total is the sum of counted contributions in joules.
	Total float64
	// Population is the sum of counted populations.
	Population int64
	// Contributors is the number of children whose value was counted.
	Contributors int
	// Breakdown maps counted children to their values.
	Breakdown map[string]float64
	// Failures lists children excluded after their retries ran out.
	Failures []*ChildError
	// Partial is true when any child was excluded.
	Partial bool
	// Stale counts contributions dropped because they belonged to another tick.
	Stale int
	// Excluded counts contributions dropped because their source was not a healthy child.
	Excluded int
	// Missing counts healthy children that published nothing for this tick.
	Missing int
	// Duration is the wall time of the tick.
	Duration time.Duration
	// CompletedAt is when the tick finished.
	CompletedAt time.Time
}

// FailedChildren returns the identities of excluded children.
func (r *TickResult) FailedChildren() []string {
	ids := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		ids = append(ids, f.ID)
	}

	return ids
}

// Clone returns a copy that shares nothing mutable with r.
func (r *TickResult) Clone() *TickResult {
	if r == nil {
		return nil
	}

	cloned := *r
	cloned.Breakdown = maps.Clone(r.Breakdown)
	cloned.Failures = slices.Clone(r.Failures)

	return &cloned
}
