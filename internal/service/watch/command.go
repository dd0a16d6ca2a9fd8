package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/energy-sim/internal/domain/energy"
	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/service/client"
)

// Options controls the polling behavior.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between polls.
	PollInterval time.Duration
	// AggregateID names a region or nation to follow; empty follows the clock only.
	AggregateID string
	// Count stops after this many polls; zero polls until ctx is done.
	Count int
}

// DefaultPollInterval is used when Options.PollInterval is not positive.
const DefaultPollInterval = 5 * time.Second

// source is the part of the control client the loop needs.
type source interface {
	Status(ctx context.Context) (map[string]any, error)
	Aggregate(ctx context.Context, id string) (map[string]any, error)
}

// Run polls the simulator until ctx is done or Count polls were made.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "energy-watch")

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	c, err := client.Connect(ctx, opts.ConfigPath, opts.ServerAddress)
	if err != nil {
		return err
	}

	defer func() {
		_ = c.Close()
	}()

	logger.InfoKV(ctx, "Watching simulator",
		"interval", opts.PollInterval.String(),
		"aggregate", opts.AggregateID)

	return loop(ctx, c, opts)
}

func loop(ctx context.Context, src source, opts *Options) error {
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	polls := 0

	for {
		poll(ctx, src, opts.AggregateID)

		polls++
		if opts.Count > 0 && polls >= opts.Count {
			return nil
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Watch stopped")

			return nil
		case <-ticker.C:
		}
	}
}

// poll logs one status line. Errors are logged and the loop goes on.
func poll(ctx context.Context, src source, aggregateID string) {
	status, err := src.Status(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Status call failed", "error", err)

		return
	}

	kvs := []any{
		"running", status["running"],
		"seq", status["seq"],
	}

	if last, ok := status["last_tick"].(map[string]any); ok {
		failed, _ := last["failures"].([]any)
		kvs = append(kvs, "last_duration", last["duration"], "last_failures", len(failed))
	}

	if aggregateID != "" {
		agg, err := src.Aggregate(ctx, aggregateID)
		if err != nil {
			logger.WarnKV(ctx, "Aggregate call failed", "id", aggregateID, "error", err)
		} else {
			kvs = append(kvs, "aggregate", aggregateID, "total", joules(agg["total"]))
		}
	}

	logger.InfoKV(ctx, "Simulator status", kvs...)
}

func joules(v any) string {
	if f, ok := v.(float64); ok {
		return energy.FormatJoules(f)
	}

	return fmt.Sprint(v)
}
