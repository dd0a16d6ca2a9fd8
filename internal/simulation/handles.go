package simulation

import (
	"context"

	"github.com/oshokin/energy-sim/internal/actor"
	"github.com/oshokin/energy-sim/internal/domain/energy"
)

// Entities addresses entity actors by identity.
type Entities struct {
	sys *System
}

func (h Entities) call(ctx context.Context, id string, fn func(ctx context.Context, e *Entity) error) error {
	return h.sys.entities.Call(ctx, id, fn)
}

// SetState replaces an entity's state.
func (h Entities) SetState(ctx context.Context, id string, st *energy.EntityState) error {
	return h.call(ctx, id, func(ctx context.Context, e *Entity) error {
		return e.SetState(ctx, st)
	})
}

// State returns a copy of an entity's state.
func (h Entities) State(ctx context.Context, id string) (*energy.EntityState, error) {
	var st *energy.EntityState

	err := h.call(ctx, id, func(_ context.Context, e *Entity) error {
		var err error

		st, err = e.State()

		return err
	})

	return st, err
}

// ComputeOutput returns an entity's output for one tick without publishing it.
func (h Entities) ComputeOutput(ctx context.Context, id string) (float64, error) {
	var output float64

	err := h.call(ctx, id, func(_ context.Context, e *Entity) error {
		var err error

		output, err = e.ComputeOutput()

		return err
	})

	return output, err
}

// Tick makes an entity publish its output for seq.
func (h Entities) Tick(ctx context.Context, id string, seq uint64) error {
	return h.call(ctx, id, func(ctx context.Context, e *Entity) error {
		return e.Tick(ctx, seq)
	})
}

// SetRegion changes the region an entity publishes to.
func (h Entities) SetRegion(ctx context.Context, id, regionID string) error {
	return h.call(ctx, id, func(ctx context.Context, e *Entity) error {
		return e.SetRegion(ctx, regionID)
	})
}

// FoodOutput returns a farm's net food energy for one tick.
func (h Entities) FoodOutput(ctx context.Context, id string) (float64, error) {
	var output float64

	err := h.call(ctx, id, func(_ context.Context, e *Entity) error {
		var err error

		output, err = e.FoodOutput()

		return err
	})

	return output, err
}

// EnergyReturnOnInvestment returns a farm's food energy over its operational energy.
func (h Entities) EnergyReturnOnInvestment(ctx context.Context, id string) (float64, error) {
	var ratio float64

	err := h.call(ctx, id, func(_ context.Context, e *Entity) error {
		var err error

		ratio, err = e.EnergyReturnOnInvestment()

		return err
	})

	return ratio, err
}

// Deactivate persists and releases an entity.
func (h Entities) Deactivate(ctx context.Context, id string) error {
	return h.sys.entities.Deactivate(ctx, id)
}

// Active returns the number of live entity activations.
func (h Entities) Active() int {
	return h.sys.entities.Active()
}

// Aggregators addresses region or nation actors by identity.
type Aggregators struct {
	sys      *System
	level    energy.Level
	registry *actor.Registry[*Aggregator]
}

// Level returns the level this handle addresses.
func (h Aggregators) Level() energy.Level {
	return h.level
}

func (h Aggregators) call(ctx context.Context, id string, fn func(ctx context.Context, a *Aggregator) error) error {
	return h.registry.Call(ctx, id, fn)
}

// RegisterChild adds a child; registering a present child is a no-op.
func (h Aggregators) RegisterChild(ctx context.Context, id, child string) error {
	return h.call(ctx, id, func(ctx context.Context, a *Aggregator) error {
		return a.RegisterChild(ctx, child)
	})
}

// UnregisterChild removes a child.
func (h Aggregators) UnregisterChild(ctx context.Context, id, child string) error {
	return h.call(ctx, id, func(ctx context.Context, a *Aggregator) error {
		return a.UnregisterChild(ctx, child)
	})
}

// SetParent sets the aggregator receiving totals.
func (h Aggregators) SetParent(ctx context.Context, id, parent string) error {
	return h.call(ctx, id, func(ctx context.Context, a *Aggregator) error {
		return a.SetParent(ctx, parent)
	})
}

// SetState replaces an aggregator's state.
func (h Aggregators) SetState(ctx context.Context, id string, st *energy.AggregatorState) error {
	return h.call(ctx, id, func(ctx context.Context, a *Aggregator) error {
		return a.SetState(ctx, st)
	})
}

// Tick runs one fan-out/fan-in round for seq.
func (h Aggregators) Tick(ctx context.Context, id string, seq uint64) (*TickResult, error) {
	var result *TickResult

	err := h.call(ctx, id, func(ctx context.Context, a *Aggregator) error {
		var err error

		result, err = a.Tick(ctx, seq)

		return err
	})

	return result, err
}

// Snapshot is a read-only view of an aggregator.
type Snapshot struct {
	// State is a copy of the durable state.
	State *energy.AggregatorState
	// Total is the last emitted total.
	Total float64
	// PerCapita is Total over the population.
	PerCapita float64
	// Last is the latest tick outcome, nil before the first tick.
	Last *TickResult
}

// Snapshot returns the aggregator's state and latest totals.
func (h Aggregators) Snapshot(ctx context.Context, id string) (*Snapshot, error) {
	var snap *Snapshot

	err := h.call(ctx, id, func(_ context.Context, a *Aggregator) error {
		snap = &Snapshot{
			State:     a.State(),
			Total:     a.Total(),
			PerCapita: a.PerCapita(),
			Last:      a.LastResult(),
		}

		return nil
	})

	return snap, err
}

// Total returns the last emitted total.
func (h Aggregators) Total(ctx context.Context, id string) (float64, error) {
	snap, err := h.Snapshot(ctx, id)
	if err != nil {
		return 0, err
	}

	return snap.Total, nil
}

// ChildCount returns the number of registered children.
func (h Aggregators) ChildCount(ctx context.Context, id string) (int, error) {
	snap, err := h.Snapshot(ctx, id)
	if err != nil {
		return 0, err
	}

	return len(snap.State.Children), nil
}

// Breakdown returns per-child values of the latest tick.
func (h Aggregators) Breakdown(ctx context.Context, id string) (map[string]float64, error) {
	var breakdown map[string]float64

	err := h.call(ctx, id, func(_ context.Context, a *Aggregator) error {
		breakdown = a.Breakdown()

		return nil
	})

	return breakdown, err
}

// Deactivate persists and releases an aggregator.
func (h Aggregators) Deactivate(ctx context.Context, id string) error {
	return h.registry.Deactivate(ctx, id)
}

// Active returns the number of live activations at this level.
func (h Aggregators) Active() int {
	return h.registry.Active()
}
