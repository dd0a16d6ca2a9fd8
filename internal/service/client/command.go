package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/energy-sim/internal/config"
	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/service/common"
)

// Options configures a control command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// Out receives the rendered response; defaults to stdout.
	Out io.Writer
}

// Call performs one control call.
type Call func(ctx context.Context, client *common.Client) (map[string]any, error)

// Start starts the clock with interval.
func Start(interval time.Duration) Call {
	return func(ctx context.Context, client *common.Client) (map[string]any, error) {
		return client.Start(ctx, interval)
	}
}

// Stop stops the clock.
func Stop() Call {
	return func(ctx context.Context, client *common.Client) (map[string]any, error) {
		return client.Stop(ctx)
	}
}

// Status reads the clock state.
func Status() Call {
	return func(ctx context.Context, client *common.Client) (map[string]any, error) {
		return client.Status(ctx)
	}
}

// Tick fires the clock once.
func Tick() Call {
	return func(ctx context.Context, client *common.Client) (map[string]any, error) {
		return client.ManualTick(ctx)
	}
}

// Aggregate reads a region or nation snapshot.
func Aggregate(id string) Call {
	return func(ctx context.Context, client *common.Client) (map[string]any, error) {
		return client.Aggregate(ctx, id)
	}
}

// Run connects to the simulator, performs call and prints its response.
func Run(ctx context.Context, name string, opts *Options, call Call) error {
	ctx = logger.WithName(ctx, "energy-ctl")

	client, err := Connect(ctx, opts.ConfigPath, opts.ServerAddress)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	resp, err := call(ctx, client)
	if err != nil {
		logger.ErrorKV(ctx, "Control call failed", "command", name, "error", err)

		return err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return Render(out, resp)
}

// Connect loads settings and dials the simulator named by serverAddress or the config.
func Connect(ctx context.Context, configPath, serverAddress string) (*common.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if serverAddress == "" {
		serverAddress = cfg.ServerAddress
	}

	options := []common.Option{common.WithCallTimeout(cfg.Timeout)}

	if caller, err := common.DetectCaller(); err == nil {
		options = append(options, common.WithCaller(caller))
	} else {
		logger.WarnKV(ctx, "Unable to detect caller", "error", err)
	}

	client, err := common.Dial(ctx, serverAddress, options...)
	if err != nil {
		return nil, fmt.Errorf("dial server: %w", err)
	}

	return client, nil
}
