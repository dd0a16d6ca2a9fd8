package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/energy-sim/internal/api/grpc/control"
	"github.com/oshokin/energy-sim/internal/api/http/admin"
	"github.com/oshokin/energy-sim/internal/config"
	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/metrics"
	"github.com/oshokin/energy-sim/internal/repository/state"
	"github.com/oshokin/energy-sim/internal/scenario"
	"github.com/oshokin/energy-sim/internal/simulation"
	"github.com/oshokin/energy-sim/internal/sink"
	"github.com/oshokin/energy-sim/internal/telemetry"
	"github.com/oshokin/energy-sim/internal/trigger"
	"github.com/oshokin/energy-sim/internal/version"
)

// Options controls the energy-sim process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the gRPC listen address.
	ListenAddress string
	// AdminAddress overrides the admin HTTP listen address.
	AdminAddress string
	// ScenarioFile overrides the scenario applied at startup.
	ScenarioFile string
	// AutoStart starts the clock after startup even if the config does not ask for it.
	AutoStart bool
	// Ready, if set, receives the bound gRPC address once the server accepts calls.
	Ready func(address string)
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the simulation with its gRPC and admin servers and blocks until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "energy-sim")
	defer logger.Sync()

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)

	if !logger.Configure(settings.LogLevel) {
		logger.WarnKV(ctx, "Unknown log level, keeping the default", "log_level", settings.LogLevel)
	}

	logger.InfoKV(ctx, "Starting energy-sim", version.KV()...)

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	shutdownTracing, err := telemetry.Setup(ctx, settings.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.WarnKV(ctx, "Failed to flush traces", "error", err)
		}
	}()

	rt, err := newApp(ctx, settings)
	if err != nil {
		return err
	}

	defer rt.close(context.WithoutCancel(ctx))

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	control.RegisterControlServer(grpcServer, control.NewServer(rt.service))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	var adminServer *http.Server

	if settings.AdminAddress != "" {
		adminServer = &http.Server{
			Addr:              settings.AdminAddress,
			Handler:           admin.New(rt.service, rt.metrics.Registry).Router(),
			ReadHeaderTimeout: settings.Timeout,
		}

		g.Go(func() error {
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve admin: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		rt.sys.RunSweeper(gctx, settings.Simulation.IdleAfter/2, settings.Simulation.IdleAfter)

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down servers")
		grpcServer.GracefulStop()

		if adminServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.Timeout)
			defer cancel()

			if err := adminServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown admin: %w", err)
			}
		}

		return nil
	})

	logger.InfoKV(ctx, "Energy simulator listening",
		"listen_address", lis.Addr().String(),
		"admin_address", settings.AdminAddress,
		"storage", settings.Storage.Driver,
		"sink", settings.Sink.Driver,
	)

	if opts.Ready != nil {
		opts.Ready(lis.Addr().String())
	}

	if err = g.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Energy simulator stopped")

	return nil
}

// applyOverrides copies command-line values over the loaded settings.
func applyOverrides(settings *config.Config, opts *Options) {
	if opts.AdminAddress != "" {
		settings.AdminAddress = opts.AdminAddress
	}

	if opts.ScenarioFile != "" {
		settings.Simulation.ScenarioFile = opts.ScenarioFile
	}

	if opts.AutoStart {
		settings.Simulation.AutoStart = true
	}
}

// app owns the simulation and the resources it was built from.
type app struct {
	store     state.Store
	sink      sink.Sink
	scheduler *trigger.Service
	metrics   *metrics.Metrics
	sys       *simulation.System
	service   *service
}

// newApp opens storage and sink, restores the actors and applies the scenario.
func newApp(ctx context.Context, settings *config.Config) (*app, error) {
	store, err := state.Open(ctx, settings.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	reports, err := sink.Open(settings.Sink)
	if err != nil {
		_ = store.Close()

		return nil, fmt.Errorf("open sink: %w", err)
	}

	rt := &app{
		store:     store,
		sink:      reports,
		scheduler: trigger.NewService(store),
		metrics:   metrics.New(),
	}

	rt.sys, err = simulation.New(simulation.Deps{
		Store:     store,
		Scheduler: rt.scheduler,
		Sink:      reports,
		Metrics:   rt.metrics,
	}, simulation.OptionsFromConfig(settings.Simulation))
	if err != nil {
		rt.close(ctx)

		return nil, fmt.Errorf("create simulation: %w", err)
	}

	rt.service = newService(rt.sys)

	if err = rt.bootstrap(ctx, settings.Simulation); err != nil {
		rt.close(ctx)

		return nil, err
	}

	return rt, nil
}

// bootstrap resumes a running clock, applies the scenario and auto-starts.
func (rt *app) bootstrap(ctx context.Context, cfg config.SimulationConfig) error {
	if err := rt.sys.Activate(ctx); err != nil {
		return fmt.Errorf("activate clock: %w", err)
	}

	if cfg.ScenarioFile != "" {
		sc, err := scenario.Load(cfg.ScenarioFile)
		if err != nil {
			return err
		}

		if err = scenario.Apply(ctx, rt.sys, sc); err != nil {
			return fmt.Errorf("apply scenario: %w", err)
		}
	}

	if !cfg.AutoStart {
		return nil
	}

	running, err := rt.sys.Clock().IsRunning(ctx)
	if err != nil {
		return fmt.Errorf("clock status: %w", err)
	}

	if running {
		return nil
	}

	if err = rt.sys.Clock().Start(ctx, cfg.TickInterval); err != nil {
		return fmt.Errorf("start clock: %w", err)
	}

	return nil
}

// close stops the trigger loops first so no firing reactivates the clock,
// then persists every actor and releases sink and store.
func (rt *app) close(ctx context.Context) {
	rt.scheduler.Close()

	if rt.sys != nil {
		if err := rt.sys.Close(ctx); err != nil {
			logger.WarnKV(ctx, "Failed to persist actors on shutdown", "error", err)
		}
	}

	if err := rt.sink.Close(); err != nil {
		logger.WarnKV(ctx, "Failed to close sink", "error", err)
	}

	if err := rt.store.Close(); err != nil {
		logger.WarnKV(ctx, "Failed to close storage", "error", err)
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// An override is used as is; otherwise the port of configAddr is bound on all interfaces.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	return ":" + port, nil
}
