// Package host runs an ecs world in real time. A Host owns a world and a built scheduler, collects
// commands from any goroutine, and once per frame applies them to the world and runs a tick.
package host

import (
	"context"
	"time"

	"github.com/argus-labs/tickworld/pkg/config"
	"github.com/argus-labs/tickworld/pkg/ecs"
	"github.com/argus-labs/tickworld/pkg/telemetry"
	"github.com/argus-labs/tickworld/pkg/transport"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

var ErrTickPanicked = eris.New("tick panicked")

// CommandApplier turns commands into world mutations. It runs on the tick goroutine before the
// scheduler runs, so it has exclusive access to the world.
type CommandApplier interface {
	Apply(w *ecs.World, cmd transport.Command) error
}

// ApplierFunc adapts a function to CommandApplier.
type ApplierFunc func(w *ecs.World, cmd transport.Command) error

func (f ApplierFunc) Apply(w *ecs.World, cmd transport.Command) error { return f(w, cmd) }

// Host drives a world at a fixed tick rate.
type Host struct {
	world     *ecs.World
	scheduler *ecs.Scheduler
	inbox     *inbox
	pending   []transport.Command // Reused buffer for drained commands

	opts   Options
	tel    *telemetry.Telemetry
	logger zerolog.Logger
}

// New creates a host for a world and a built scheduler. Options are read from the environment and
// overridden by opts.
func New(world *ecs.World, scheduler *ecs.Scheduler, opts Options) (*Host, error) {
	if world == nil {
		return nil, eris.New("world cannot be nil")
	}
	if scheduler == nil || !scheduler.IsBuilt() {
		return nil, eris.New("scheduler must be built")
	}

	options, err := config.Load("host", opts)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if options.Telemetry != nil {
		logger = options.Telemetry.GetLogger("host")
	}

	return &Host{
		world:     world,
		scheduler: scheduler,
		inbox:     newInbox(options.InboxSize),
		pending:   make([]transport.Command, 0, options.InboxSize),
		opts:      options,
		tel:       options.Telemetry,
		logger:    logger,
	}, nil
}

// Submit queues a command for the next frame. Safe for concurrent use. Fails with ErrInboxFull
// when the inbox is at capacity.
func (h *Host) Submit(cmd transport.Command) error {
	return h.inbox.enqueue(cmd)
}

// Run runs a frame every 1/TickRate seconds until ctx is cancelled or a tick panics. Returns
// ctx.Err() after a cancellation.
func (h *Host) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / h.opts.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.logger.Info().
		Float64("tick_rate", h.opts.TickRate).
		Int("systems", h.scheduler.SystemCount()).
		Strs("order", h.scheduler.Order()).
		Msg("host started")

	for {
		select {
		case <-ticker.C:
			if err := h.Step(ctx); err != nil {
				return eris.Wrap(err, "failed to run frame")
			}
		case <-ctx.Done():
			h.logger.Info().Uint64("ticks", h.scheduler.Tick()).Msg("host stopped")
			return ctx.Err()
		}
	}
}

// Step runs one frame on the calling goroutine: it applies every queued command, runs one tick,
// and sweeps entities deleted during the frame. A panic during the frame aborts it and is returned
// as ErrTickPanicked. The aborted frame's ephemeral components and deleted entities are still
// cleared, so Step can be called again.
func (h *Host) Step(ctx context.Context) (err error) {
	tick := h.scheduler.Tick()
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			// Drop the aborted frame's transient state so the next frame starts clean.
			h.world.CleanEphemeralStorage()
			removed := h.world.CleanupDeletedEntities()

			err = eris.Wrapf(ErrTickPanicked, "tick %d: %v", tick, r)
			h.logger.Error().Err(err).Uint64("tick", tick).Int("removed", removed).Msg("frame aborted")
			if h.tel != nil {
				h.tel.CaptureException(ctx, err)
			}
		}
	}()

	h.pending = h.inbox.drain(h.pending[:0])
	rejected := 0
	for _, cmd := range h.pending {
		if err := h.opts.Applier.Apply(h.world, cmd); err != nil {
			rejected++
			h.logger.Warn().
				Err(err).
				Str("session", cmd.Session.String()).
				Str("op", cmd.Op).
				Msg("command rejected")
		}
	}

	h.scheduler.RunTickContext(ctx, h.world)
	removed := h.world.CleanupDeletedEntities()

	h.logger.Debug().
		Uint64("tick", tick).
		Int("commands", len(h.pending)).
		Int("rejected", rejected).
		Int("removed", removed).
		Int("entities", h.world.EntityCount()).
		Dur("duration", time.Since(startTime)).
		Msg("frame completed")
	return nil
}

