package simulation

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oshokin/energy-sim/internal/channel"
	"github.com/oshokin/energy-sim/internal/domain/energy"
	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/repository/state"
	"github.com/oshokin/energy-sim/internal/sink"
)

// Reasons a collected contribution is not counted.
const (
	dropStale    = "stale"
	dropExcluded = "excluded"
)

// Aggregator is the actor of a region or a nation.
type Aggregator struct {
	// id is the actor identity.
	id string
	// level is fixed per registry.
	level energy.Level
	// sys gives access to the channel, store and child registries.
	sys *System
	// repo persists state under the level's namespace.
	repo *state.Repository[energy.AggregatorState]
	// state is created with defaults on first activation.
	state *energy.AggregatorState
	// sub receives contributions addressed to this aggregator.
	sub *channel.Subscription[Contribution]
	// total is the last emitted total.
	total float64
	// last is the outcome of the latest tick.
	last *TickResult
}

// activateAggregator loads persisted state or creates and persists the default.
func (s *System) activateAggregator(ctx context.Context, level energy.Level, id string) (*Aggregator, error) {
	a := &Aggregator{
		id:    id,
		level: level,
		sys:   s,
		repo:  state.NewRepository[energy.AggregatorState](s.store, string(level)),
	}

	loaded, err := a.repo.Load(ctx, id)

	switch {
	case err == nil:
		if loaded.Level != level {
			return nil, fmt.Errorf("%w: %s %s is persisted as %q", ErrInvalidState, level, id, loaded.Level)
		}

		loaded.Normalize()
		a.state = loaded
	case errors.Is(err, state.ErrNotFound):
		a.state = energy.NewAggregatorState(id, level)
		if err = a.persist(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("load %s %s: %w", level, id, err)
	}

	a.sub, err = s.hub.Subscribe(inbox(level, id))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s %s: %w", level, id, err)
	}

	return a, nil
}

// deactivateAggregator persists state and stops receiving contributions.
func (s *System) deactivateAggregator(ctx context.Context, a *Aggregator) error {
	a.sub.Close()

	return a.persist(ctx)
}

func (a *Aggregator) persist(ctx context.Context) error {
	if err := a.repo.Save(ctx, a.id, a.state); err != nil {
		a.sys.metrics.IncrementPersistenceError(string(a.level))

		return persistError(string(a.level)+" "+a.id, err)
	}

	return nil
}

// RegisterChild adds a child. Registering a present child is a no-op.
// A persistence failure leaves the child registered in memory.
func (a *Aggregator) RegisterChild(ctx context.Context, child string) error {
	if child == "" {
		return fmt.Errorf("%w: empty %s id", ErrInvalidState, a.level.ChildLevel())
	}

	if child == a.id {
		return fmt.Errorf("%w: %s %s cannot be its own child", ErrInvalidState, a.level, a.id)
	}

	if !a.state.AddChild(child) {
		return nil
	}

	return a.persist(ctx)
}

// UnregisterChild removes a child. Removing an absent child is a no-op.
func (a *Aggregator) UnregisterChild(ctx context.Context, child string) error {
	if !a.state.RemoveChild(child) {
		return nil
	}

	return a.persist(ctx)
}

// SetParent sets the aggregator receiving this one's totals.
func (a *Aggregator) SetParent(ctx context.Context, parent string) error {
	if parent == a.id {
		return fmt.Errorf("%w: %s %s cannot be its own parent", ErrInvalidState, a.level, a.id)
	}

	if a.state.ParentID == parent {
		return nil
	}

	a.state.ParentID = parent

	return a.persist(ctx)
}

// SetState replaces descriptive attributes, parent and children.
func (a *Aggregator) SetState(ctx context.Context, st *energy.AggregatorState) error {
	if st == nil {
		return fmt.Errorf("%w: %s state is nil", ErrInvalidState, a.level)
	}

	next := st.Clone()
	if next.ID == "" {
		next.ID = a.id
	}

	if next.Level == "" {
		next.Level = a.level
	}

	if next.ID != a.id || next.Level != a.level {
		return fmt.Errorf("%w: state %s %q does not match %s %q", ErrInvalidState, next.Level, next.ID, a.level, a.id)
	}

	next.Normalize()

	if err := next.Validate(); err != nil {
		return err
	}

	a.state = next

	return a.persist(ctx)
}

// State returns a copy of the aggregator's state.
func (a *Aggregator) State() *energy.AggregatorState {
	return a.state.Clone()
}

// Total returns the last emitted total.
func (a *Aggregator) Total() float64 {
	return a.total
}

// ChildCount returns the number of registered children.
func (a *Aggregator) ChildCount() int {
	return len(a.state.Children)
}

// LastResult returns the outcome of the latest tick, nil before the first one.
func (a *Aggregator) LastResult() *TickResult {
	return a.last.Clone()
}

// PerCapita returns the last total divided by the population, zero without population.
func (a *Aggregator) PerCapita() float64 {
	return perCapita(a.total, a.state.Population)
}

// Breakdown returns per-child values of the latest tick.
func (a *Aggregator) Breakdown() map[string]float64 {
	if a.last == nil {
		return map[string]float64{}
	}

	return maps.Clone(a.last.Breakdown)
}

// depth is the call depth of this aggregator's children.
func (a *Aggregator) depth() int {
	if a.level == energy.LevelNation {
		return 1
	}

	return 0
}

// childCall ticks one child of this aggregator for seq.
func (a *Aggregator) childCall(seq uint64) childCall {
	if a.level == energy.LevelNation {
		return func(ctx context.Context, id string) error {
			return a.sys.regions.Call(ctx, id, func(ctx context.Context, r *Aggregator) error {
				_, err := r.Tick(ctx, seq)

				return err
			})
		}
	}

	return func(ctx context.Context, id string) error {
		return a.sys.entities.Call(ctx, id, func(ctx context.Context, e *Entity) error {
			return e.Tick(ctx, seq)
		})
	}
}

// Tick runs one fan-out/fan-in round. It snapshots the children, ticks them
// concurrently, waits until every call has returned, counts only contributions
// for seq from children that succeeded and emits the sum upward. Failed
// children are excluded and make the result partial.
func (a *Aggregator) Tick(ctx context.Context, seq uint64) (*TickResult, error) {
	start := time.Now()

	ctx, span := a.sys.tracer.Start(ctx, string(a.level)+".tick", trace.WithAttributes(
		attribute.String("aggregator.id", a.id),
		attribute.Int64("tick.seq", int64(seq)), //nolint:gosec // Sequence numbers stay far below the limit.
	))
	defer span.End()

	ctx = logger.WithActor(ctx, string(a.level), a.id)

	children := slices.Clone(a.state.Children)
	failed := a.sys.fanOut(ctx, children, a.depth(), a.childCall(seq))

	result := &TickResult{
		AggregatorID: a.id,
		Level:        a.level,
		Seq:          seq,
		Breakdown:    make(map[string]float64, len(children)),
	}

	counted := make(map[string]Contribution, len(children))

	for _, c := range a.sub.Drain() {
		_, registered := slices.BinarySearch(children, c.Source)

		switch {
		case c.Seq != seq:
			result.Stale++
		case !registered || failed[c.Source] != nil:
			result.Excluded++
		default:
			counted[c.Source] = c
		}
	}

	for _, child := range children {
		if f, ok := failed[child]; ok {
			result.Failures = append(result.Failures, f)
			a.sys.metrics.IncrementChildFailure(string(a.level), f.Timeout())
			logger.WarnKV(ctx, "Child excluded from tick", "child_id", child, "seq", seq, "error", f)

			continue
		}

		c, ok := counted[child]
		if !ok {
			result.Missing++

			continue
		}

		result.Total += c.Value
		result.Population += c.Population
		result.Breakdown[child] = c.Value
	}

	result.Contributors = len(result.Breakdown)
	result.Partial = len(result.Failures) > 0

	a.sys.metrics.AddDropped(string(a.level), dropStale, result.Stale)
	a.sys.metrics.AddDropped(string(a.level), dropExcluded, result.Excluded)

	if a.state.Population != result.Population {
		a.state.Population = result.Population
		if err := a.persist(ctx); err != nil {
			logger.WarnKV(ctx, "Failed to persist population", "error", err)
		}
	}

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(start)

	if err := a.emit(ctx, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	a.total = result.Total
	a.last = result

	a.sys.metrics.ObserveTick(string(a.level), start, result.Partial)
	span.SetAttributes(
		attribute.Float64("tick.total", result.Total),
		attribute.Int("tick.contributors", result.Contributors),
		attribute.Bool("tick.partial", result.Partial),
	)

	logger.DebugKV(ctx, "Aggregator ticked",
		"seq", seq,
		logger.Joules("total", result.Total),
		"contributors", result.Contributors,
		"partial", result.Partial,
	)

	return result.Clone(), nil
}

// emit hands a region's total to its nation, or a nation's report to the sink.
func (a *Aggregator) emit(ctx context.Context, result *TickResult) error {
	if a.level == energy.LevelNation {
		a.sys.metrics.SetNationTotal(a.id, result.Total)

		report := sink.Report{
			NationID:       a.id,
			Name:           a.state.Name,
			Seq:            result.Seq,
			Total:          result.Total,
			Population:     result.Population,
			PerCapita:      perCapita(result.Total, result.Population),
			Breakdown:      maps.Clone(result.Breakdown),
			Partial:        result.Partial,
			FailedChildren: result.FailedChildren(),
			At:             result.CompletedAt,
		}

		if err := a.sys.sink.Publish(ctx, report); err != nil {
			logger.WarnKV(ctx, "Failed to publish nation report", "seq", result.Seq, "error", err)
		}

		return nil
	}

	if a.state.ParentID == "" {
		return nil
	}

	contribution := Contribution{
		Source:     a.id,
		Seq:        result.Seq,
		Value:      result.Total,
		Population: result.Population,
		At:         result.CompletedAt,
	}

	if err := a.sys.hub.Publish(ctx, inbox(energy.LevelNation, a.state.ParentID), contribution); err != nil {
		return fmt.Errorf("publish to nation %s: %w", a.state.ParentID, err)
	}

	return nil
}

func perCapita(total float64, population int64) float64 {
	if population <= 0 {
		return 0
	}

	return total / float64(population)
}
