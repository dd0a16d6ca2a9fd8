package energy

import (
	"slices"
	"time"
)

// TickRecord describes the clock's position.
type TickRecord struct {
	// Seq is the monotonic tick counter, starting at zero after each start.
	Seq uint64 `json:"seq"`
	// Interval is the simulated period between firings.
	Interval time.Duration `json:"interval"`
	// StartedAt is when the clock was last started.
	StartedAt time.Time `json:"started_at"`
}

// ClockState is the durable state of the temporal coordinator.
type ClockState struct {
	TickRecord

	// Running is true between a start and a stop.
	Running bool `json:"running"`
	// Epoch counts starts; a scheduled firing only advances the epoch it was armed for.
	Epoch uint64 `json:"epoch"`
	// TopLevel holds the identities of aggregators ticked on every firing, sorted.
	TopLevel []string `json:"top_level"`
}

// Clone returns a deep copy of the state.
func (s *ClockState) Clone() *ClockState {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.TopLevel = slices.Clone(s.TopLevel)

	return &cloned
}
