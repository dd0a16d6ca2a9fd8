package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/oshokin/energy-sim/internal/actor"
	"github.com/oshokin/energy-sim/internal/channel"
	"github.com/oshokin/energy-sim/internal/domain/energy"
	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/metrics"
	"github.com/oshokin/energy-sim/internal/repository/state"
	"github.com/oshokin/energy-sim/internal/sink"
	"github.com/oshokin/energy-sim/internal/trigger"
)

// tracerName identifies spans produced by the tick pipeline.
const tracerName = "github.com/oshokin/energy-sim/internal/simulation"

// Deps are the collaborators of a System.
type Deps struct {
	// Store persists actor state. Required.
	Store state.Store
	// Scheduler drives the clock; defaults to a trigger service on Store.
	Scheduler trigger.Scheduler
	// Sink receives nation reports; defaults to the log sink.
	Sink sink.Sink
	// Metrics defaults to a fresh registry.
	Metrics *metrics.Metrics
}

// System hosts every actor of the simulation and addresses them by identity.
type System struct {
	store     state.Store
	scheduler trigger.Scheduler
	sink      sink.Sink
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	opts      Options

	hub          *channel.Hub[Contribution]
	entities     *actor.Registry[*Entity]
	regions      *actor.Registry[*Aggregator]
	nations      *actor.Registry[*Aggregator]
	coordinators *actor.Registry[*Coordinator]

	// firing serializes coordinator firings.
	firing   *semaphore.Weighted
	lastTick atomic.Pointer[ClockTick]
}

// New creates a System. Actors are activated on first use.
func New(deps Deps, opts Options) (*System, error) {
	if deps.Store == nil {
		return nil, errors.New("simulation: store is required")
	}

	s := &System{
		store:     deps.Store,
		scheduler: deps.Scheduler,
		sink:      deps.Sink,
		metrics:   deps.Metrics,
		tracer:    otel.Tracer(tracerName),
		opts:      opts.withDefaults(),
		hub:       channel.NewHub[Contribution](),
		firing:    semaphore.NewWeighted(1),
	}

	if s.scheduler == nil {
		s.scheduler = trigger.NewService(deps.Store)
	}

	if s.sink == nil {
		s.sink = sink.LogSink{}
	}

	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	capacity := s.opts.MailboxCapacity

	s.entities = actor.NewRegistry("entity", s.activateEntity,
		actor.WithDeactivate(s.deactivateEntity),
		actor.WithMailboxCapacity[*Entity](capacity),
	)
	s.regions = actor.NewRegistry("region",
		func(ctx context.Context, id string) (*Aggregator, error) {
			return s.activateAggregator(ctx, energy.LevelRegion, id)
		},
		actor.WithDeactivate(s.deactivateAggregator),
		actor.WithMailboxCapacity[*Aggregator](capacity),
	)
	s.nations = actor.NewRegistry("nation",
		func(ctx context.Context, id string) (*Aggregator, error) {
			return s.activateAggregator(ctx, energy.LevelNation, id)
		},
		actor.WithDeactivate(s.deactivateAggregator),
		actor.WithMailboxCapacity[*Aggregator](capacity),
	)
	s.coordinators = actor.NewRegistry("coordinator", s.activateCoordinator,
		actor.WithDeactivate(s.deactivateCoordinator),
	)

	s.metrics.RegisterActive("entity", s.entities.Active)
	s.metrics.RegisterActive("region", s.regions.Active)
	s.metrics.RegisterActive("nation", s.nations.Active)

	return s, nil
}

// Metrics returns the instruments the system records to.
func (s *System) Metrics() *metrics.Metrics {
	return s.metrics
}

// Entities addresses entity actors.
func (s *System) Entities() Entities {
	return Entities{sys: s}
}

// Regions addresses region actors.
func (s *System) Regions() Aggregators {
	return Aggregators{sys: s, level: energy.LevelRegion, registry: s.regions}
}

// Nations addresses nation actors.
func (s *System) Nations() Aggregators {
	return Aggregators{sys: s, level: energy.LevelNation, registry: s.nations}
}

// Aggregators returns the handle of level.
func (s *System) Aggregators(level energy.Level) (Aggregators, error) {
	switch level {
	case energy.LevelRegion:
		return s.Regions(), nil
	case energy.LevelNation:
		return s.Nations(), nil
	default:
		return Aggregators{}, fmt.Errorf("%w: unknown aggregator level %q", ErrInvalidState, level)
	}
}

// Clock addresses the coordinator.
func (s *System) Clock() Clock {
	return Clock{sys: s}
}

// Activate activates the coordinator, resuming the clock if it was running before a restart.
func (s *System) Activate(ctx context.Context) error {
	return s.coordinators.Activate(ctx, ClockID)
}

// AttachEntity sets an entity's state and registers it with its region.
func (s *System) AttachEntity(ctx context.Context, st *energy.EntityState) error {
	if st == nil {
		return fmt.Errorf("%w: entity state is nil", ErrInvalidState)
	}

	if err := s.Entities().SetState(ctx, st.ID, st); err != nil {
		return err
	}

	if st.RegionID == "" {
		return nil
	}

	return s.Regions().RegisterChild(ctx, st.RegionID, st.ID)
}

// AttachRegion links a region to its nation in both directions.
func (s *System) AttachRegion(ctx context.Context, regionID, nationID string) error {
	if err := s.Regions().SetParent(ctx, regionID, nationID); err != nil {
		return err
	}

	return s.Nations().RegisterChild(ctx, nationID, regionID)
}

// AttachNation makes a nation top-level so the clock ticks it.
func (s *System) AttachNation(ctx context.Context, nationID string) error {
	if err := s.nations.Activate(ctx, nationID); err != nil {
		return err
	}

	return s.Clock().RegisterTopLevel(ctx, nationID)
}

// Sweep deactivates entities and aggregators idle for at least idleAfter.
// The coordinator is never swept.
func (s *System) Sweep(ctx context.Context, idleAfter time.Duration) (int, error) {
	var (
		total int
		errs  []error
	)

	for _, sweep := range []func(context.Context, time.Duration) (int, error){
		s.entities.DeactivateIdle,
		s.regions.DeactivateIdle,
		s.nations.DeactivateIdle,
	} {
		n, err := sweep(ctx, idleAfter)
		total += n

		if err != nil {
			errs = append(errs, err)
		}
	}

	return total, errors.Join(errs...)
}

// RunSweeper calls Sweep every period until ctx is done.
func (s *System) RunSweeper(ctx context.Context, period, idleAfter time.Duration) {
	if period <= 0 || idleAfter <= 0 {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx, idleAfter)
			if err != nil {
				logger.WarnKV(ctx, "Idle sweep failed", "error", err)
			}

			if n > 0 {
				logger.DebugKV(ctx, "Idle actors deactivated", "count", n)
			}
		}
	}
}

// Close deactivates every actor, persisting its state, and closes the channel.
// Stop the scheduler first so no firing reactivates the clock.
func (s *System) Close(ctx context.Context) error {
	err := errors.Join(
		s.coordinators.DeactivateAll(ctx),
		s.nations.DeactivateAll(ctx),
		s.regions.DeactivateAll(ctx),
		s.entities.DeactivateAll(ctx),
	)

	s.hub.Close()

	return err
}
