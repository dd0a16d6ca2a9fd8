package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/energy-sim/internal/domain/energy"
	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/simulation"
)

// Status is the clock state together with its latest firing.
type Status struct {
	// Clock is a copy of the coordinator state.
	Clock *energy.ClockState
	// LastTick is nil before the first firing.
	LastTick *simulation.ClockTick
}

// Service abstracts the simulation operations the transport layer depends on.
type Service interface {
	Start(ctx context.Context, interval time.Duration) error
	Stop(ctx context.Context) error
	ManualTick(ctx context.Context) (*simulation.ClockTick, error)
	Status(ctx context.Context) (*Status, error)
	Aggregate(ctx context.Context, level energy.Level, id string) (*simulation.Snapshot, error)
}

// Server implements ControlServer.
type Server struct {
	// service provides the simulation operations.
	service Service
}

var _ ControlServer = (*Server)(nil)

// NewServer wires service into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Start starts the clock.
func (s *Server) Start(ctx context.Context, req *durationpb.Duration) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "interval is required")
	}

	if err := req.CheckValid(); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid interval: %v", err)
	}

	ctx = withCaller(ctx)

	if err := s.service.Start(ctx, req.AsDuration()); err != nil {
		return nil, toStatus(ctx, err)
	}

	return s.Status(ctx, nil)
}

// Stop stops the clock.
func (s *Server) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ctx = withCaller(ctx)

	if err := s.service.Stop(ctx); err != nil {
		return nil, toStatus(ctx, err)
	}

	return s.Status(ctx, nil)
}

// Status returns the clock state.
func (s *Server) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.service.Status(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return toStruct(statusFields(st))
}

// ManualTick fires the clock once and returns the firing's outcome.
func (s *Server) ManualTick(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ctx = withCaller(ctx)

	tick, err := s.service.ManualTick(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return toStruct(tickFields(tick))
}

// GetAggregate returns a region or nation snapshot.
func (s *Server) GetAggregate(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	level, id, err := ParseAggregateID(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	snap, err := s.service.Aggregate(ctx, level, id)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return toStruct(snapshotFields(snap))
}

var errEmptyAggregateID = errors.New("aggregate id is required")

// ParseAggregateID splits "region/<id>" or "nation/<id>". A bare id addresses a nation.
func ParseAggregateID(value string) (energy.Level, string, error) {
	value = strings.TrimSpace(value)

	level, id, found := strings.Cut(value, "/")
	if !found {
		level, id = string(energy.LevelNation), value
	}

	if id == "" {
		return "", "", errEmptyAggregateID
	}

	if !energy.Level(level).Valid() {
		return "", "", fmt.Errorf("unknown aggregator level %q", level)
	}

	return energy.Level(level), id, nil
}

// toStatus maps simulation errors to gRPC status codes.
func toStatus(ctx context.Context, err error) error {
	code := codes.Internal

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, simulation.ErrCoordinatorState), errors.Is(err, simulation.ErrUninitializedState):
		code = codes.FailedPrecondition
	case errors.Is(err, simulation.ErrInvalidState):
		code = codes.InvalidArgument
	case errors.Is(err, simulation.ErrPersistenceWrite):
		code = codes.Unavailable
	}

	if code == codes.Internal || code == codes.Unavailable {
		logger.ErrorKV(ctx, "Control call failed", "error", err)
	}

	return status.Error(code, err.Error())
}
