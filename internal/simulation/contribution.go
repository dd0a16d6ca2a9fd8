package simulation

import (
	"time"

	"github.com/oshokin/energy-sim/internal/domain/energy"
)

// Contribution is a value published upward through the channel.
type Contribution struct {
	// Source is the publishing child.
	Source string
	// Seq is the tick the value belongs to.
	Seq uint64
	// Value is the child's energy in joules.
	Value float64
	// Population is the number of people the value covers.
	Population int64
	// At is when the value was published.
	At time.Time
}

// inbox returns the channel owner key of an aggregator.
func inbox(level energy.Level, id string) string {
	return string(level) + "/" + id
}
