package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/energy-sim/internal/domain/energy"
	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/repository/state"
)

// entityNamespace is the store namespace of entity state.
const entityNamespace = "entity"

var (
	// errNoRegion is returned when an entity without a region is ticked.
	errNoRegion = fmt.Errorf("%w: entity has no region", ErrInvalidState)
	// errNotFarm is returned when farm queries reach another kind.
	errNotFarm = fmt.Errorf("%w: entity is not a farm", ErrInvalidState)
)

// Entity is the actor of a single person, house, vehicle, business, data center or farm.
// Its state stays unset until the first SetState.
type Entity struct {
	// id is the actor identity.
	id string
	// sys gives access to the channel, store and options.
	sys *System
	// repo persists state.
	repo *state.Repository[energy.EntityState]
	// state is nil until initialized.
	state *energy.EntityState
	// consume is selected from state.Kind whenever the state changes.
	consume energy.ConsumptionFunc
	// jitter varies the output per tick.
	jitter energy.Jitter
	// foodJitter varies a farm's food output.
	foodJitter energy.Jitter
}

// activateEntity loads persisted state if any.
func (s *System) activateEntity(ctx context.Context, id string) (*Entity, error) {
	e := &Entity{
		id:   id,
		sys:  s,
		repo: state.NewRepository[energy.EntityState](s.store, entityNamespace),
	}

	loaded, err := e.repo.Load(ctx, id)

	switch {
	case err == nil:
		if err = e.apply(loaded); err != nil {
			return nil, fmt.Errorf("restore entity %s: %w", id, err)
		}
	case errors.Is(err, state.ErrNotFound):
		// Stays uninitialized until SetState.
	default:
		return nil, fmt.Errorf("load entity %s: %w", id, err)
	}

	return e, nil
}

// deactivateEntity persists initialized state.
func (s *System) deactivateEntity(ctx context.Context, e *Entity) error {
	if e.state == nil {
		return nil
	}

	return e.persist(ctx)
}

// apply installs a validated state and selects its compute profile.
func (e *Entity) apply(st *energy.EntityState) error {
	if err := st.Validate(); err != nil {
		return err
	}

	consume, ok := energy.ConsumptionFor(st.Kind)
	if !ok {
		return fmt.Errorf("%w: no consumption profile for %q", ErrInvalidState, st.Kind)
	}

	e.state = st
	e.consume = consume
	e.jitter = energy.Jitter{}
	e.foodJitter = energy.Jitter{}

	if !e.sys.opts.DisableJitter {
		e.jitter = energy.NewJitter(st.Kind.JitterBound())
		e.foodJitter = energy.NewJitter(energy.FoodJitterBound)
	}

	return nil
}

func (e *Entity) persist(ctx context.Context) error {
	if err := e.repo.Save(ctx, e.id, e.state); err != nil {
		e.sys.metrics.IncrementPersistenceError(entityNamespace)

		return persistError("entity "+e.id, err)
	}

	return nil
}

func (e *Entity) requireState() error {
	if e.state == nil {
		return fmt.Errorf("entity %s: %w", e.id, ErrUninitializedState)
	}

	return nil
}

// SetState replaces the entity's state and persists it. On a persistence
// failure the new state stays in effect and the error wraps ErrPersistenceWrite.
func (e *Entity) SetState(ctx context.Context, st *energy.EntityState) error {
	if st == nil {
		return fmt.Errorf("%w: entity state is nil", ErrInvalidState)
	}

	next := st.Clone()
	if next.ID == "" {
		next.ID = e.id
	}

	if next.ID != e.id {
		return fmt.Errorf("%w: state id %q does not match entity %q", ErrInvalidState, next.ID, e.id)
	}

	if err := e.apply(next); err != nil {
		return err
	}

	return e.persist(ctx)
}

// State returns a copy of the entity's state.
func (e *Entity) State() (*energy.EntityState, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}

	return e.state.Clone(), nil
}

// ComputeOutput returns this tick's energy: the kind's base value with jitter applied.
func (e *Entity) ComputeOutput() (float64, error) {
	if err := e.requireState(); err != nil {
		return 0, err
	}

	return e.jitter.Apply(e.consume(e.state)), nil
}

// Tick computes the output and publishes it to the region. It returns once the value is queued.
func (e *Entity) Tick(ctx context.Context, seq uint64) error {
	output, err := e.ComputeOutput()
	if err != nil {
		return err
	}

	if e.state.RegionID == "" {
		return fmt.Errorf("entity %s: %w", e.id, errNoRegion)
	}

	contribution := Contribution{
		Source:     e.id,
		Seq:        seq,
		Value:      output,
		Population: e.state.Population(),
		At:         time.Now(),
	}

	if err = e.sys.hub.Publish(ctx, inbox(energy.LevelRegion, e.state.RegionID), contribution); err != nil {
		return fmt.Errorf("publish to region %s: %w", e.state.RegionID, err)
	}

	logger.DebugKV(ctx, "Entity published", logger.Actor("entity", e.id), "seq", seq, logger.Joules("output", output))

	return nil
}

// SetRegion re-targets the entity's publishes and persists the change.
func (e *Entity) SetRegion(ctx context.Context, regionID string) error {
	if err := e.requireState(); err != nil {
		return err
	}

	e.state.RegionID = regionID

	return e.persist(ctx)
}

func (e *Entity) farm() (*energy.FarmAttributes, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}

	if e.state.Kind != energy.KindFarm {
		return nil, fmt.Errorf("entity %s (%s): %w", e.id, e.state.Kind, errNotFarm)
	}

	return e.state.Farm, nil
}

// FoodOutput returns a farm's net food energy for this tick with ±20% variation.
func (e *Entity) FoodOutput() (float64, error) {
	f, err := e.farm()
	if err != nil {
		return 0, err
	}

	return e.foodJitter.Apply(f.NetFood()), nil
}

// EnergyReturnOnInvestment returns a farm's net food energy over its operational energy.
func (e *Entity) EnergyReturnOnInvestment() (float64, error) {
	f, err := e.farm()
	if err != nil {
		return 0, err
	}

	return f.EnergyReturnOnInvestment(), nil
}
