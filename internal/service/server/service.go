package server

import (
	"context"
	"time"

	"github.com/oshokin/energy-sim/internal/api/grpc/control"
	"github.com/oshokin/energy-sim/internal/domain/energy"
	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/simulation"
)

// service adapts a simulation System to the transport layers.
// It is unexported to keep the transports decoupled from the implementation.
type service struct {
	// sys hosts the actors.
	sys *simulation.System
}

var _ control.Service = (*service)(nil)

// newService wraps sys.
func newService(sys *simulation.System) *service {
	return &service{sys: sys}
}

// Start starts the simulation clock.
func (s *service) Start(ctx context.Context, interval time.Duration) error {
	if err := s.sys.Clock().Start(ctx, interval); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Clock started by request", "interval", interval.String())

	return nil
}

// Stop stops the simulation clock.
func (s *service) Stop(ctx context.Context) error {
	if err := s.sys.Clock().Stop(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Clock stopped by request")

	return nil
}

// ManualTick fires the clock once.
func (s *service) ManualTick(ctx context.Context) (*simulation.ClockTick, error) {
	return s.sys.Clock().ManualTick(ctx)
}

// Status returns the clock state and the latest firing.
func (s *service) Status(ctx context.Context) (*control.Status, error) {
	clock := s.sys.Clock()

	st, err := clock.Status(ctx)
	if err != nil {
		return nil, err
	}

	return &control.Status{
		Clock:    st,
		LastTick: clock.LastTick(),
	}, nil
}

// Aggregate returns an aggregator snapshot.
func (s *service) Aggregate(ctx context.Context, level energy.Level, id string) (*simulation.Snapshot, error) {
	aggregators, err := s.sys.Aggregators(level)
	if err != nil {
		return nil, err
	}

	return aggregators.Snapshot(ctx, id)
}
