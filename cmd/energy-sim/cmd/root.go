package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/energy-sim/internal/config"
	"github.com/oshokin/energy-sim/internal/service/server"
	"github.com/oshokin/energy-sim/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// adminAddress overrides the admin HTTP listen address.
	adminAddress string
	// scenarioFile overrides the scenario applied at startup.
	scenarioFile string
	// autoStart starts the clock once the scenario is applied.
	autoStart bool

	// rootCmd represents the base command for running the simulator.
	rootCmd = &cobra.Command{
		Use:   "energy-sim [listen-address]",
		Short: "Run the energy consumption simulator.",
		Long: `Starts the simulator: entity, region and nation actors driven by a scheduled clock.

The gRPC control service listens on the port of ServerAddress from the configuration
file unless a listen address is given as argument (e.g., :9090, 0.0.0.0:50051).
An admin HTTP endpoint serves health, Prometheus metrics and aggregate snapshots.
Actor state is persisted in the configured store, so a restarted simulator resumes
its clock and totals where it stopped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				AdminAddress:  adminAddress,
				ScenarioFile:  scenarioFile,
				AutoStart:     autoStart,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the energy-sim CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&adminAddress, "admin", "a", "", "admin HTTP listen address")
	rootCmd.Flags().StringVarP(&scenarioFile, "scenario", "s", "", "scenario YAML applied at startup")
	rootCmd.Flags().BoolVar(&autoStart, "start", false, "start the clock after startup")
}
