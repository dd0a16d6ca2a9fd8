//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/energy-sim/internal/api/grpc/control"
	"github.com/oshokin/energy-sim/internal/config"
)

// Client wraps the control service client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the simulator.
	conn *grpc.ClientConn
	// api is the control service client.
	api *control.ControlClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// caller is sent with every call for the server's audit log.
	caller string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithCaller identifies the calling user and host.
func WithCaller(caller string) Option {
	return func(c *Client) {
		c.caller = caller
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial creates a client of the simulator's control service.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial simulator: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         control.NewControlClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Start starts the clock.
func (c *Client) Start(ctx context.Context, interval time.Duration) (map[string]any, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Start(callCtx, durationpb.New(interval))
	if err != nil {
		return nil, fmt.Errorf("start clock: %w", err)
	}

	return resp.AsMap(), nil
}

// Stop stops the clock.
func (c *Client) Stop(ctx context.Context) (map[string]any, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Stop(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("stop clock: %w", err)
	}

	return resp.AsMap(), nil
}

// Status returns the clock state.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Status(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return resp.AsMap(), nil
}

// ManualTick fires the clock once.
func (c *Client) ManualTick(ctx context.Context) (map[string]any, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ManualTick(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("manual tick: %w", err)
	}

	return resp.AsMap(), nil
}

// Aggregate returns a region or nation snapshot.
func (c *Client) Aggregate(ctx context.Context, id string) (map[string]any, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetAggregate(callCtx, wrapperspb.String(id))
	if err != nil {
		return nil, fmt.Errorf("get aggregate %s: %w", id, err)
	}

	return resp.AsMap(), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The caller, if
// known, travels as metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.caller != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, control.CallerMetadataKey, c.caller)
	}

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
