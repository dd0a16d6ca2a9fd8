package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/energy-sim/internal/config"
	"github.com/oshokin/energy-sim/internal/domain/energy"
	"github.com/oshokin/energy-sim/internal/repository/state"
	"github.com/oshokin/energy-sim/internal/service/common"
	"github.com/oshokin/energy-sim/internal/simulation"
	"github.com/oshokin/energy-sim/internal/trigger"
)

const testScenario = `
nations:
  - id: n
    regions:
      - id: r
        entities:
          - id: p
            kind: person
            count: 2
`

// TestService_ClockAndAggregates verifies the adapter forwards to the simulation.
func TestService_ClockAndAggregates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	sys, err := simulation.New(simulation.Deps{
		Store:     state.NewMemoryStore(),
		Scheduler: trigger.NewManual(),
	}, simulation.Options{DisableJitter: true})
	require.NoError(t, err)

	require.NoError(t, sys.AttachRegion(ctx, "r", "n"))
	require.NoError(t, sys.AttachNation(ctx, "n"))

	s := newService(sys)

	require.ErrorIs(t, s.Stop(ctx), simulation.ErrCoordinatorState)
	require.NoError(t, s.Start(ctx, time.Second))

	tick, err := s.ManualTick(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), tick.Seq)

	st, err := s.Status(ctx)
	require.NoError(t, err)
	require.True(t, st.Clock.Running)
	require.Equal(t, uint64(1), st.LastTick.Seq)

	snap, err := s.Aggregate(ctx, energy.LevelNation, "n")
	require.NoError(t, err)
	require.Equal(t, []string{"r"}, snap.State.Children)

	_, err = s.Aggregate(ctx, energy.Level("planet"), "x")
	require.ErrorIs(t, err, simulation.ErrInvalidState)

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, sys.Close(ctx))
}

// TestResolveListenAddress covers overrides, port extraction and errors.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	address, err := resolveListenAddress("sim.example.com:50051", "")
	require.NoError(t, err)
	require.Equal(t, ":50051", address)

	address, err = resolveListenAddress("sim.example.com:50051", "127.0.0.1:0")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:0", address)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}

// TestRun starts the whole server on a file store, drives it over gRPC and
// verifies the clock state survives a restart.
func TestRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(testScenario), 0o600))

	settings := &config.Config{
		Storage: config.StorageConfig{Driver: config.StorageFile, Dir: filepath.Join(dir, "state")},
		Simulation: config.SimulationConfig{
			TickInterval:  time.Hour,
			DisableJitter: true,
			ScenarioFile:  scenarioPath,
			AutoStart:     true,
		},
	}

	configPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, config.Save(configPath, settings))

	run := func(check func(ctx context.Context, client *common.Client)) {
		ctx, cancel := context.WithCancel(context.Background())
		ready := make(chan string, 1)
		done := make(chan error, 1)

		go func() {
			done <- Run(ctx, &Options{
				ConfigPath:    configPath,
				ListenAddress: "127.0.0.1:0",
				Ready:         func(address string) { ready <- address },
			})
		}()

		var address string

		select {
		case address = <-ready:
		case err := <-done:
			cancel()
			require.NoError(t, err)
		}

		client, err := common.Dial(ctx, address, common.WithCallTimeout(5*time.Second), common.WithCaller("test@host"))
		require.NoError(t, err)

		check(ctx, client)

		require.NoError(t, client.Close())
		cancel()
		require.NoError(t, <-done)
	}

	run(func(ctx context.Context, client *common.Client) {
		// Auto-start fires once immediately; the hour-long period keeps it from firing again.
		require.Eventually(t, func() bool {
			status, err := client.Status(ctx)

			return err == nil && status["seq"] == float64(1)
		}, 5*time.Second, 10*time.Millisecond)

		tick, err := client.ManualTick(ctx)
		require.NoError(t, err)
		require.InDelta(t, 2.0, tick["seq"], 1e-9)

		aggregate, err := client.Aggregate(ctx, "n")
		require.NoError(t, err)
		require.InDelta(t, 2.0, aggregate["population"], 1e-9)
		require.Positive(t, aggregate["total"])
	})

	run(func(ctx context.Context, client *common.Client) {
		status, err := client.Status(ctx)
		require.NoError(t, err)
		require.Equal(t, true, status["running"])

		_, err = client.Start(ctx, time.Second)
		require.Error(t, err)

		_, err = client.Stop(ctx)
		require.NoError(t, err)
	})
}
