package simulation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oshokin/energy-sim/internal/domain/energy"
	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/repository/state"
	"github.com/oshokin/energy-sim/internal/trigger"
)

const (
	// coordinatorNamespace is the store namespace of the clock state.
	coordinatorNamespace = "coordinator"
	// ClockID is the identity of the singleton coordinator.
	ClockID = "clock"
	// ClockTrigger names the durable trigger that drives the clock.
	ClockTrigger = coordinatorNamespace + "/" + ClockID
	// nationDepth is the call depth of top-level aggregators.
	nationDepth = 2
)

// ClockTick is the outcome of one coordinator firing.
type ClockTick struct {
	// Seq is the sequence number of the firing.
	Seq uint64
	// Nations is the number of top-level aggregators ticked.
	Nations int
	// Failures lists top-level aggregators whose tick failed.
	Failures []*ChildError
	// StartedAt is when the firing began.
	StartedAt time.Time
	// Duration is the wall time of the firing.
	Duration time.Duration
}

// Coordinator is the singleton actor owning the simulation clock.
type Coordinator struct {
	sys   *System
	repo  *state.Repository[energy.ClockState]
	state *energy.ClockState
}

// activateCoordinator restores the clock and re-arms its trigger if it was running.
func (s *System) activateCoordinator(ctx context.Context, id string) (*Coordinator, error) {
	c := &Coordinator{
		sys:  s,
		repo: state.NewRepository[energy.ClockState](s.store, coordinatorNamespace),
	}

	loaded, err := c.repo.Load(ctx, id)

	switch {
	case err == nil:
		c.state = loaded
	case errors.Is(err, state.ErrNotFound):
		c.state = &energy.ClockState{TopLevel: []string{}}
	default:
		return nil, fmt.Errorf("load coordinator: %w", err)
	}

	s.metrics.SetRunning(c.state.Running)

	if !c.state.Running {
		return c, nil
	}

	fire := s.scheduledFire(c.state.Epoch)

	resumed, err := s.scheduler.Resume(ctx, ClockTrigger, fire)
	if err != nil {
		return nil, fmt.Errorf("resume clock trigger: %w", err)
	}

	if !resumed {
		if err = s.scheduler.Arm(ctx, ClockTrigger, c.state.Interval, fire); err != nil {
			return nil, fmt.Errorf("arm clock trigger: %w", err)
		}
	}

	logger.InfoKV(ctx, "Clock resumed", "seq", c.state.Seq, "interval", c.state.Interval.String())

	return c, nil
}

func (s *System) deactivateCoordinator(ctx context.Context, c *Coordinator) error {
	return c.persist(ctx)
}

func (c *Coordinator) persist(ctx context.Context) error {
	if err := c.repo.Save(ctx, ClockID, c.state); err != nil {
		c.sys.metrics.IncrementPersistenceError(coordinatorNamespace)

		return persistError("coordinator", err)
	}

	return nil
}

func (c *Coordinator) start(ctx context.Context, interval time.Duration) error {
	if c.state.Running {
		return fmt.Errorf("%w: clock is already running", ErrCoordinatorState)
	}

	if interval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive, got %s", ErrInvalidState, interval)
	}

	// An immediate firing queues behind this call in the mailbox.
	// Nothing is persisted until the trigger is armed.
	previous := c.state.Clone()

	c.state.Running = true
	c.state.Epoch++
	c.state.TickRecord = energy.TickRecord{
		Interval:  interval,
		StartedAt: time.Now(),
	}

	if err := c.sys.scheduler.Arm(ctx, ClockTrigger, interval, c.sys.scheduledFire(c.state.Epoch)); err != nil {
		c.state = previous

		return fmt.Errorf("arm clock trigger: %w", err)
	}

	c.sys.metrics.SetRunning(true)
	logger.InfoKV(ctx, "Clock started", "interval", interval.String(), "epoch", c.state.Epoch)

	return c.persist(ctx)
}

func (c *Coordinator) stop(ctx context.Context) error {
	if !c.state.Running {
		return fmt.Errorf("%w: clock is not running", ErrCoordinatorState)
	}

	if err := c.sys.scheduler.Disarm(ctx, ClockTrigger); err != nil {
		return fmt.Errorf("disarm clock trigger: %w", err)
	}

	c.state.Running = false
	c.sys.metrics.SetRunning(false)
	logger.InfoKV(ctx, "Clock stopped", "seq", c.state.Seq)

	return c.persist(ctx)
}

// advance moves the clock one tick forward and snapshots the top-level aggregators.
// A non-zero epoch must match the current start.
func (c *Coordinator) advance(ctx context.Context, epoch uint64) (uint64, []string, error) {
	if !c.state.Running {
		return 0, nil, fmt.Errorf("%w: clock is not running", ErrCoordinatorState)
	}

	if epoch != 0 && epoch != c.state.Epoch {
		return 0, nil, fmt.Errorf("%w: firing of start %d, clock is at start %d",
			ErrCoordinatorState, epoch, c.state.Epoch)
	}

	c.state.Seq++

	if err := c.persist(ctx); err != nil {
		logger.WarnKV(ctx, "Failed to persist clock", "seq", c.state.Seq, "error", err)
	}

	return c.state.Seq, slices.Clone(c.state.TopLevel), nil
}

func (c *Coordinator) registerTopLevel(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty nation id", ErrInvalidState)
	}

	pos, found := slices.BinarySearch(c.state.TopLevel, id)
	if found {
		return nil
	}

	c.state.TopLevel = slices.Insert(c.state.TopLevel, pos, id)

	return c.persist(ctx)
}

func (c *Coordinator) unregisterTopLevel(ctx context.Context, id string) error {
	pos, found := slices.BinarySearch(c.state.TopLevel, id)
	if !found {
		return nil
	}

	c.state.TopLevel = slices.Delete(c.state.TopLevel, pos, pos+1)

	return c.persist(ctx)
}

// scheduledFire returns the trigger callback of one start. Firings that find
// the clock stopped or restarted are skipped.
func (s *System) scheduledFire(epoch uint64) trigger.FireFunc {
	return func(ctx context.Context) {
		_, err := s.fire(ctx, epoch)

		switch {
		case err == nil:
		case errors.Is(err, ErrCoordinatorState):
			logger.DebugKV(ctx, "Skipped firing", "epoch", epoch, "reason", err)
		default:
			logger.WarnKV(ctx, "Clock firing failed", "error", err)
		}
	}
}

// fire runs one firing for epoch, or for the current start when epoch is zero.
// Firings never overlap: the sequence advances inside the coordinator's mailbox
// and the fan-out to nations runs while holding firing. Waiting for a slot
// honors ctx.
func (s *System) fire(ctx context.Context, epoch uint64) (*ClockTick, error) {
	if err := s.firing.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	defer s.firing.Release(1)

	start := time.Now()

	var (
		seq     uint64
		nations []string
	)

	err := s.coordinators.Call(ctx, ClockID, func(ctx context.Context, c *Coordinator) error {
		var err error

		seq, nations, err = c.advance(ctx, epoch)

		return err
	})
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "coordinator.tick", trace.WithAttributes(
		attribute.Int64("tick.seq", int64(seq)), //nolint:gosec // Sequence numbers stay far below the limit.
		attribute.Int("tick.nations", len(nations)),
	))
	defer span.End()

	failed := s.fanOut(ctx, nations, nationDepth, func(ctx context.Context, id string) error {
		return s.nations.Call(ctx, id, func(ctx context.Context, n *Aggregator) error {
			_, err := n.Tick(ctx, seq)

			return err
		})
	})

	tick := &ClockTick{
		Seq:       seq,
		Nations:   len(nations),
		StartedAt: start,
	}

	for _, id := range nations {
		if f, ok := failed[id]; ok {
			tick.Failures = append(tick.Failures, f)
			s.metrics.IncrementChildFailure("coordinator", f.Timeout())
			logger.WarnKV(ctx, "Nation tick failed", "nation_id", id, "seq", seq, "error", f)
		}
	}

	tick.Duration = time.Since(start)

	s.metrics.IncrementCoordinatorTick(start)
	s.lastTick.Store(tick)

	logger.DebugKV(ctx, "Clock fired", "seq", seq, "nations", len(nations), "failures", len(tick.Failures))

	return tick, nil
}

// Clock addresses the singleton coordinator.
type Clock struct {
	sys *System
}

func (c Clock) call(ctx context.Context, fn func(ctx context.Context, co *Coordinator) error) error {
	return c.sys.coordinators.Call(ctx, ClockID, fn)
}

// Start resets the sequence to zero and arms the durable trigger, which fires
// once immediately and then every interval.
func (c Clock) Start(ctx context.Context, interval time.Duration) error {
	return c.call(ctx, func(ctx context.Context, co *Coordinator) error {
		return co.start(ctx, interval)
	})
}

// Stop disarms the trigger. A firing already in progress completes.
func (c Clock) Stop(ctx context.Context) error {
	return c.call(ctx, func(ctx context.Context, co *Coordinator) error {
		return co.stop(ctx)
	})
}

// ManualTick fires once outside the schedule. It fails with ErrCoordinatorState while stopped.
func (c Clock) ManualTick(ctx context.Context) (*ClockTick, error) {
	return c.sys.fire(ctx, 0)
}

// RegisterTopLevel adds a nation ticked on every firing.
func (c Clock) RegisterTopLevel(ctx context.Context, id string) error {
	return c.call(ctx, func(ctx context.Context, co *Coordinator) error {
		return co.registerTopLevel(ctx, id)
	})
}

// UnregisterTopLevel removes a nation from the firing set.
func (c Clock) UnregisterTopLevel(ctx context.Context, id string) error {
	return c.call(ctx, func(ctx context.Context, co *Coordinator) error {
		return co.unregisterTopLevel(ctx, id)
	})
}

// Status returns a copy of the clock state.
func (c Clock) Status(ctx context.Context) (*energy.ClockState, error) {
	var st *energy.ClockState

	err := c.call(ctx, func(_ context.Context, co *Coordinator) error {
		st = co.state.Clone()

		return nil
	})

	return st, err
}

// IsRunning reports whether the clock is started.
func (c Clock) IsRunning(ctx context.Context) (bool, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return false, err
	}

	return st.Running, nil
}

// TickCount returns the number of firings since the last start.
func (c Clock) TickCount(ctx context.Context) (uint64, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return 0, err
	}

	return st.Seq, nil
}

// Interval returns the configured period.
func (c Clock) Interval(ctx context.Context) (time.Duration, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return 0, err
	}

	return st.Interval, nil
}

// StartedAt returns the time of the last start.
func (c Clock) StartedAt(ctx context.Context) (time.Time, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return time.Time{}, err
	}

	return st.StartedAt, nil
}

// TopLevelCount returns the number of nations ticked on every firing.
func (c Clock) TopLevelCount(ctx context.Context) (int, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return 0, err
	}

	return len(st.TopLevel), nil
}

// LastTick returns the outcome of the latest firing, nil before the first.
func (c Clock) LastTick() *ClockTick {
	return c.sys.lastTick.Load()
}
