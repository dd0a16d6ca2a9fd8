package simulation

import (
	"time"

	"github.com/oshokin/energy-sim/internal/config"
)

// Options tunes the tick pipeline.
type Options struct {
	// ChildTimeout bounds a single entity tick. Aggregator calls get a budget
	// that covers their own children's retries.
	ChildTimeout time.Duration
	// RetryBackoff is the initial delay before a failed child tick is retried.
	RetryBackoff time.Duration
	// MaxRetries is the number of retries of a failed child tick.
	MaxRetries uint64
	// FanOutLimit caps concurrent child ticks per aggregator; zero means unlimited.
	FanOutLimit int
	// DisableJitter makes entity outputs deterministic.
	DisableJitter bool
	// MailboxCapacity sizes every actor's mailbox; zero selects the runtime default.
	MailboxCapacity int
}

// OptionsFromConfig converts validated settings.
func OptionsFromConfig(cfg config.SimulationConfig) Options {
	return Options{
		ChildTimeout:  cfg.ChildTimeout,
		RetryBackoff:  cfg.RetryBackoff,
		MaxRetries:    cfg.MaxRetries,
		FanOutLimit:   cfg.FanOutLimit,
		DisableJitter: cfg.DisableJitter,
	}
}

func (o Options) withDefaults() Options {
	if o.ChildTimeout <= 0 {
		o.ChildTimeout = config.DefaultChildTimeout
	}

	if o.RetryBackoff <= 0 {
		o.RetryBackoff = config.DefaultRetryBackoff
	}

	if o.FanOutLimit < 0 {
		o.FanOutLimit = 0
	}

	return o
}

// maxBackoff is the longest single retry delay the exponential policy can produce.
func (o Options) maxBackoff() time.Duration {
	d := o.RetryBackoff
	for range o.MaxRetries {
		d *= 2
	}

	// Randomization adds up to half of the interval.
	return d + d/2
}

// callTimeout returns the budget of a call to a child at the given depth:
// 0 for entities, 1 for regions and 2 for nations. A parent's budget covers
// every attempt its own children may make.
func (o Options) callTimeout(depth int) time.Duration {
	budget := o.ChildTimeout

	for range depth {
		attempts := time.Duration(o.MaxRetries + 1)
		budget = attempts*(budget+o.maxBackoff()) + o.ChildTimeout
	}

	return budget
}
