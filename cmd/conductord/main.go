// Command conductord serves the time-conductor engine over gRPC and exposes
// Prometheus metrics. Configuration comes from CONDUCTOR_* environment
// variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/time-conductor/internal/api"
	"github.com/signalsfoundry/time-conductor/internal/config"
	"github.com/signalsfoundry/time-conductor/internal/logging"
	"github.com/signalsfoundry/time-conductor/internal/observability"
	"github.com/signalsfoundry/time-conductor/model"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	if err := run(ctx, cfg, nil, nil); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled. Nil listeners are bound from cfg; a nil
// registry falls back to the global Prometheus registry.
func run(ctx context.Context, cfg *config.Config, grpcLis net.Listener, reg *prometheus.Registry) error {
	log := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	}).With(logging.String("service", "conductord"))

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("initialise tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}
	collector, err := observability.NewConductorCollector(registerer)
	if err != nil {
		return fmt.Errorf("initialise metrics collector: %w", err)
	}

	eng := newEngine(cfg, log, collector, time.Now)
	defer eng.Close()
	if err := applyStartup(ctx, eng, cfg); err != nil {
		return err
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			api.RequestIDUnaryServerInterceptor(log),
			api.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	api.Register(server, api.NewService(eng.view, log, api.WithLatestSources(eng.latest)))

	if grpcLis == nil {
		grpcLis, err = (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
		}
	}

	var metricsSrv *http.Server
	var metricsLis net.Listener
	if cfg.Server.MetricsAddr != "" {
		metricsLis, err = (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.Server.MetricsAddr)
		if err != nil {
			_ = grpcLis.Close()
			return fmt.Errorf("listen %s: %w", cfg.Server.MetricsAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(ctx, "starting conductor gRPC server", logging.String("addr", grpcLis.Addr().String()))
		if err := server.Serve(grpcLis); err != nil {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})

	if metricsSrv != nil {
		g.Go(func() error {
			log.Info(ctx, "serving Prometheus metrics", logging.String("addr", metricsLis.Addr().String()))
			if err := metricsSrv.Serve(metricsLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics serve: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info(ctx, "shutting down conductor server")
		server.GracefulStop()
		if metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				log.Warn(shutdownCtx, "metrics server shutdown failed", logging.Err(err))
			}
		}
		return nil
	})

	return g.Wait()
}

// applyStartup selects the configured mode, then the configured time system
// when the mode's fallback picked a different one.
func applyStartup(ctx context.Context, eng *engine, cfg *config.Config) error {
	mode, ok := model.ParseModeKey(cfg.Engine.Mode)
	if !ok {
		return fmt.Errorf("%w: engine.mode %q", config.ErrInvalidConfig, cfg.Engine.Mode)
	}
	if err := eng.view.SetMode(ctx, mode); err != nil {
		return fmt.Errorf("set mode %s: %w", mode, err)
	}
	st := eng.view.State()
	if st.TimeSystem == cfg.Engine.TimeSystem {
		return nil
	}
	if err := eng.view.SetTimeSystem(ctx, cfg.Engine.TimeSystem); err != nil {
		return fmt.Errorf("set time system %s: %w", cfg.Engine.TimeSystem, err)
	}
	return nil
}
