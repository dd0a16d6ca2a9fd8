package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "energysim.v1.Control"

// Method names.
const (
	MethodStart        = "Start"
	MethodStop         = "Stop"
	MethodStatus       = "Status"
	MethodManualTick   = "ManualTick"
	MethodGetAggregate = "GetAggregate"
)

// ControlServer is the server API of the control service.
type ControlServer interface {
	Start(ctx context.Context, interval *durationpb.Duration) (*structpb.Struct, error)
	Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error)
	Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error)
	ManualTick(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error)
	GetAggregate(ctx context.Context, id *wrapperspb.StringValue) (*structpb.Struct, error)
}

// ServiceDesc describes the control service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: MethodStart,
			Handler:    unary(MethodStart, newMessage[durationpb.Duration], ControlServer.Start),
		},
		{
			MethodName: MethodStop,
			Handler:    unary(MethodStop, newMessage[emptypb.Empty], ControlServer.Stop),
		},
		{
			MethodName: MethodStatus,
			Handler:    unary(MethodStatus, newMessage[emptypb.Empty], ControlServer.Status),
		},
		{
			MethodName: MethodManualTick,
			Handler:    unary(MethodManualTick, newMessage[emptypb.Empty], ControlServer.ManualTick),
		},
		{
			MethodName: MethodGetAggregate,
			Handler:    unary(MethodGetAggregate, newMessage[wrapperspb.StringValue], ControlServer.GetAggregate),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "energysim/v1/control.proto",
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// fullMethod returns the wire name of method.
func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// newMessage allocates an empty request.
func newMessage[T any]() *T {
	return new(T)
}

// unary adapts a typed server method to grpc.MethodHandler.
func unary[Req proto.Message](
	method string,
	newRequest func() Req,
	call func(ControlServer, context.Context, Req) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newRequest()
		if err := dec(in); err != nil {
			return nil, err
		}

		server, ok := srv.(ControlServer)
		if !ok {
			return nil, status.Errorf(codes.Internal, "%T does not implement %s", srv, ServiceName)
		}

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}

		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(Req)
			if !ok {
				return nil, status.Errorf(codes.InvalidArgument, "unexpected request type %T", req)
			}

			return call(server, ctx, typed)
		})
	}
}
