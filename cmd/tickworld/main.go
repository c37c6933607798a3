// Command tickworld runs a session world: clients connect over TCP, join as entities, and ping.
//
// Configuration is read from the environment. See the TICKWORLD_* and OTEL_* variables of the
// host, transport, and telemetry packages.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/argus-labs/tickworld/pkg/ecs"
	"github.com/argus-labs/tickworld/pkg/host"
	"github.com/argus-labs/tickworld/pkg/telemetry"
	"github.com/argus-labs/tickworld/pkg/transport"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	tel, err := telemetry.New(telemetry.Options{ServiceName: "tickworld"})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer tel.RecoverAndFlush(true)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, &tel)
	if err != nil {
		tel.CaptureException(ctx, err)
		tel.Logger.Error().Err(err).Msg("tickworld stopped with an error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := tel.Shutdown(shutdownCtx); shutdownErr != nil {
		tel.Logger.Error().Err(shutdownErr).Msg("telemetry shutdown error")
	}

	if err != nil {
		os.Exit(1) //nolint:gocritic // deferred calls have nothing left to do
	}
}

// run wires the world, scheduler, host, and transport, and runs them until ctx is cancelled.
func run(ctx context.Context, tel *telemetry.Telemetry) error {
	world := ecs.NewWorld()

	scheduler := ecs.NewScheduler(
		ecs.WithLogger(tel.GetLogger("scheduler")),
		ecs.WithTracer(tel.Tracer),
	)
	if err := scheduler.AddSystem(host.PingSystem{}); err != nil {
		return eris.Wrap(err, "failed to add ping system")
	}
	if err := scheduler.AddSystem(&host.PresenceSystem{Logger: tel.GetLogger("presence")}); err != nil {
		return eris.Wrap(err, "failed to add presence system")
	}
	if err := scheduler.Build(); err != nil {
		return eris.Wrap(err, "failed to build scheduler")
	}

	h, err := host.New(world, scheduler, host.Options{
		Applier:   host.NewSessionApplier(nil),
		Telemetry: tel,
	})
	if err != nil {
		return eris.Wrap(err, "failed to create host")
	}

	transportLogger := tel.GetLogger("transport")
	server, err := transport.NewServer(transport.ServerOptions{
		Handler: h.Submit,
		Logger:  &transportLogger,
	})
	if err != nil {
		return eris.Wrap(err, "failed to create transport")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := h.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return server.Serve(ctx)
	})
	return g.Wait()
}
