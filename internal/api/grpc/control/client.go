package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlClient is the client API of the control service.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient creates a client over cc.
func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) invoke(ctx context.Context, method string, in proto.Message, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)

	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// Start starts the clock with the given interval.
func (c *ControlClient) Start(ctx context.Context, in *durationpb.Duration, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodStart, in, opts)
}

// Stop stops the clock.
func (c *ControlClient) Stop(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodStop, in, opts)
}

// Status returns the clock state and the last firing.
func (c *ControlClient) Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodStatus, in, opts)
}

// ManualTick fires the clock once.
func (c *ControlClient) ManualTick(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodManualTick, in, opts)
}

// GetAggregate returns an aggregator snapshot. The id is "region/<id>", "nation/<id>" or a bare nation id.
func (c *ControlClient) GetAggregate(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetAggregate, in, opts)
}
