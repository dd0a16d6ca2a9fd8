package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/energy-sim/internal/config"
	"github.com/oshokin/energy-sim/internal/service/client"
	"github.com/oshokin/energy-sim/internal/service/watch"
	"github.com/oshokin/energy-sim/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// serverAddress overrides the server address from the configuration file.
	serverAddress string

	// rootCmd represents the base command for controlling a simulator.
	rootCmd = &cobra.Command{
		Use:   "energy-ctl",
		Short: "Control a running energy simulator.",
		Long: `Controls the simulation clock and reads aggregates over gRPC.

Server address and timeout are loaded from the configuration file;
--server overrides the address.`,
		SilenceUsage: true,
	}
)

// Execute runs the energy-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runCall executes a one-shot control call with signal-aware context.
func runCall(cmd *cobra.Command, name string, call client.Call) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return client.Run(ctx, name, &client.Options{
		ConfigPath:    configPath,
		ServerAddress: serverAddress,
		Out:           cmd.OutOrStdout(),
	}, call)
}

func newStartCommand() *cobra.Command {
	var interval time.Duration

	c := &cobra.Command{
		Use:   "start",
		Short: "Start a stopped clock with the given interval.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCall(cmd, "start", client.Start(interval))
		},
	}

	c.Flags().DurationVarP(&interval, "interval", "i", config.DefaultTickInterval, "tick interval")

	return c
}

func newWatchCommand() *cobra.Command {
	opts := &watch.Options{}

	c := &cobra.Command{
		Use:   "watch [aggregate-id]",
		Short: "Poll the clock status and optionally one aggregate.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if len(args) > 0 {
				opts.AggregateID = args[0]
			}

			opts.ConfigPath = configPath
			opts.ServerAddress = serverAddress

			return watch.Run(ctx, opts)
		},
	}

	c.Flags().DurationVarP(&opts.PollInterval, "interval", "i", watch.DefaultPollInterval, "poll interval")
	c.Flags().IntVarP(&opts.Count, "count", "n", 0, "stop after this many polls")

	return c
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "simulator gRPC address")

	rootCmd.AddCommand(
		newStartCommand(),
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the clock.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCall(cmd, "stop", client.Stop())
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the clock state and the last tick.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCall(cmd, "status", client.Status())
			},
		},
		&cobra.Command{
			Use:   "tick",
			Short: "Fire one tick now; the clock must be running.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCall(cmd, "tick", client.Tick())
			},
		},
		&cobra.Command{
			Use:   "aggregate <[level/]id>",
			Short: "Show a region or nation snapshot; a bare id names a nation.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCall(cmd, "aggregate", client.Aggregate(args[0]))
			},
		},
		newWatchCommand(),
	)
}
