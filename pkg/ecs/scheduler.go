package ecs

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/argus-labs/tickworld/pkg/assert"
	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// phase is one of the three sweeps of a tick.
type phase string

const (
	phaseBeforeRun phase = "before_run"
	phaseRun       phase = "run"
	phaseAfterRun  phase = "after_run"
)

// systemMetadata contains the metadata for a registered system.
type systemMetadata struct {
	id     SystemID   // The type identity of the system
	system System     // The system itself
	deps   []SystemID // Systems that must run before this one
}

// Scheduler runs systems against a world, one tick at a time. Systems are added while the
// scheduler is unbuilt. Build resolves a single execution order from the declared dependencies,
// after which the scheduler can run ticks and no more systems can be added.
type Scheduler struct {
	systems  []systemMetadata // Systems in registration order
	registry map[SystemID]int // System ID -> index in systems
	order    []int            // Resolved execution order, set by Build
	tiers    [][]int          // Execution order grouped by dependency depth, set by Build
	built    bool
	tick     uint64 // Number of completed ticks

	logger          zerolog.Logger
	tracer          trace.Tracer
	concurrentReads bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the logger the scheduler reports builds and ticks to.
func WithLogger(logger zerolog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

// WithTracer sets the tracer used to record a span per tick and per phase.
func WithTracer(tracer trace.Tracer) SchedulerOption {
	return func(s *Scheduler) { s.tracer = tracer }
}

// WithConcurrentReadPhases lets the BeforeRun and AfterRun sweeps run systems concurrently.
// Systems still start only after every system they depend on has finished the same phase, and
// the Run sweep stays sequential.
func WithConcurrentReadPhases() SchedulerOption {
	return func(s *Scheduler) { s.concurrentReads = true }
}

// NewScheduler creates an unbuilt scheduler without systems.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		systems:  make([]systemMetadata, 0),
		registry: make(map[SystemID]int),
		logger:   zerolog.Nop(),
		tracer:   noop.NewTracerProvider().Tracer("tickworld/ecs"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddSystem registers a system. A system type can only be registered once. Fails once the
// scheduler is built.
func (s *Scheduler) AddSystem(system System, opts ...SystemOption) error {
	if system == nil {
		return eris.New("system cannot be nil")
	}
	id := SystemIDFor(system)
	if s.built {
		return eris.Wrapf(ErrSchedulerBuilt, "cannot add system %s", id)
	}
	if _, exists := s.registry[id]; exists {
		return eris.Wrapf(ErrDuplicateSystem, "system %s", id)
	}

	cfg := systemConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	deps := append(slices.Clone(system.Dependencies()), cfg.deps...)

	s.registry[id] = len(s.systems)
	s.systems = append(s.systems, systemMetadata{id: id, system: system, deps: deps})
	return nil
}

// Build resolves the execution order. The order is a topological sort of the dependency graph in
// which systems without an ordering constraint between them keep their registration order. Fails
// if a dependency was never registered or if the dependencies contain a cycle, in which case the
// scheduler stays unbuilt.
func (s *Scheduler) Build() error {
	if s.built {
		return ErrSchedulerBuilt
	}

	graph, indegree, err := s.buildDependencyGraph()
	if err != nil {
		return err
	}
	order, err := s.sortSystems(graph, indegree)
	if err != nil {
		return err
	}

	s.order = order
	s.tiers = buildTiers(order, graph)
	s.built = true

	s.logger.Debug().
		Int("total_systems", len(order)).
		Int("tiers", len(s.tiers)).
		Strs("order", s.Order()).
		Msg("scheduler built")
	return nil
}

// buildDependencyGraph resolves every declared dependency to a registered system. It returns the
// graph as an adjacency list (system -> systems that depend on it) and each system's number of
// distinct dependencies.
func (s *Scheduler) buildDependencyGraph() ([][]int, []int, error) {
	graph := make([][]int, len(s.systems))
	indegree := make([]int, len(s.systems))

	for systemID, meta := range s.systems {
		// A bitmap dedupes dependencies that are declared more than once.
		var deps bitmap.Bitmap
		for _, dep := range meta.deps {
			depID, exists := s.registry[dep]
			if !exists {
				return nil, nil, eris.Wrapf(ErrUnknownDependency, "%s depends on %s", meta.id, dep)
			}
			deps.Set(uint32(depID)) //nolint:gosec // bounded by the number of systems
		}
		deps.Range(func(depID uint32) {
			graph[depID] = append(graph[depID], systemID)
			indegree[systemID]++
		})
	}

	return graph, indegree, nil
}

// sortSystems runs Kahn's algorithm, always picking the ready system with the lowest registration
// index so ties keep registration order.
func (s *Scheduler) sortSystems(graph [][]int, indegree []int) ([]int, error) {
	remaining := slices.Clone(indegree)

	var ready bitmap.Bitmap
	for systemID, deps := range remaining {
		if deps == 0 {
			ready.Set(uint32(systemID)) //nolint:gosec // bounded by the number of systems
		}
	}

	order := make([]int, 0, len(s.systems))
	for {
		next, ok := ready.Min()
		if !ok {
			break
		}
		ready.Remove(next)
		order = append(order, int(next))

		for _, dependent := range graph[next] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				ready.Set(uint32(dependent)) //nolint:gosec // bounded by the number of systems
			}
		}
	}

	if len(order) != len(s.systems) {
		var cyclic []string
		for systemID, deps := range remaining {
			if deps > 0 {
				cyclic = append(cyclic, s.systems[systemID].id.String())
			}
		}
		return nil, eris.Wrapf(ErrDependencyCycle, "unresolved systems: %s", strings.Join(cyclic, ", "))
	}

	return order, nil
}

// buildTiers groups the execution order by dependency depth. Systems in the same tier have no
// dependency on each other, and every system is in a later tier than all of its dependencies.
// Within a tier systems keep their execution order.
func buildTiers(order []int, graph [][]int) [][]int {
	depth := make([]int, len(order))
	var tiers [][]int
	for _, systemID := range order {
		d := depth[systemID]
		if d == len(tiers) {
			tiers = append(tiers, nil)
		}
		tiers[d] = append(tiers[d], systemID)
		for _, dependent := range graph[systemID] {
			depth[dependent] = max(depth[dependent], d+1)
		}
	}
	return tiers
}

// RunTick runs one tick against the world: the BeforeRun sweep, the Run sweep, the AfterRun sweep,
// and finally the world's ephemeral components are cleared. Calling RunTick before a successful
// Build panics with ErrSchedulerNotBuilt. A panicking system aborts the rest of the tick. In a
// concurrent read phase the panic is re-raised as an error naming the system and phase.
func (s *Scheduler) RunTick(w *World) {
	s.RunTickContext(context.Background(), w)
}

// RunTickContext is RunTick with a parent context for the tick's trace span.
func (s *Scheduler) RunTickContext(ctx context.Context, w *World) {
	if !s.built {
		panic(eris.Wrap(ErrSchedulerNotBuilt, "RunTick called before Build"))
	}
	assert.That(w != nil, "RunTick called with a nil world")

	startTime := time.Now()
	ctx, span := s.tracer.Start(ctx, "tick",
		trace.WithAttributes(attribute.Int64("tick", int64(s.tick)))) //nolint:gosec // it's ok
	defer span.End()

	ro := w.ReadOnly()
	s.runReadPhase(ctx, phaseBeforeRun, func(sys System) { sys.BeforeRun(ro) })
	s.runSequential(ctx, phaseRun, func(sys System) { sys.Run(w) })
	s.runReadPhase(ctx, phaseAfterRun, func(sys System) { sys.AfterRun(ro) })

	w.CleanEphemeralStorage()
	s.tick++

	s.logger.Debug().
		Uint64("tick", s.tick).
		Int("entities", w.EntityCount()).
		Dur("duration", time.Since(startTime)).
		Msg("tick completed")
}

// runSequential calls fn for every system in execution order.
func (s *Scheduler) runSequential(ctx context.Context, p phase, fn func(System)) {
	_, span := s.tracer.Start(ctx, string(p))
	defer span.End()

	for _, systemID := range s.order {
		fn(s.systems[systemID].system)
	}
}

// runReadPhase calls fn for every system. Without concurrent read phases this is the same as
// runSequential. With them, every tier is run concurrently and the next tier starts once the
// whole tier has finished.
func (s *Scheduler) runReadPhase(ctx context.Context, p phase, fn func(System)) {
	if !s.concurrentReads {
		s.runSequential(ctx, p, fn)
		return
	}

	_, span := s.tracer.Start(ctx, string(p))
	defer span.End()

	for _, tier := range s.tiers {
		// Fast path: nothing to run concurrently.
		if len(tier) == 1 {
			fn(s.systems[tier[0]].system)
			continue
		}

		g := new(errgroup.Group)
		for _, systemID := range tier {
			meta := s.systems[systemID]
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = &systemPanic{system: meta.id, phase: p, value: r, stack: debug.Stack()}
					}
				}()
				fn(meta.system)
				return nil
			})
		}

		// Only a recovered panic can fail the group. Re-raise it on the ticking goroutine.
		if err := g.Wait(); err != nil {
			panic(err)
		}
	}
}

// systemPanic carries a panic out of a concurrently run system, along with the stack of the
// goroutine it was recovered on.
type systemPanic struct {
	system SystemID
	phase  phase
	value  any
	stack  []byte
}

func (p *systemPanic) Error() string {
	return fmt.Sprintf("system %s panicked in %s: %v\n%s", p.system, p.phase, p.value, p.stack)
}

// Unwrap exposes the panic value when it was an error.
func (p *systemPanic) Unwrap() error {
	err, _ := p.value.(error)
	return err
}

// SystemCount returns the number of registered systems.
func (s *Scheduler) SystemCount() int {
	return len(s.systems)
}

// IsBuilt reports whether Build has succeeded.
func (s *Scheduler) IsBuilt() bool {
	return s.built
}

// Order returns the system names in execution order, or nil before Build.
func (s *Scheduler) Order() []string {
	if !s.built {
		return nil
	}
	names := make([]string, len(s.order))
	for i, systemID := range s.order {
		names[i] = s.systems[systemID].id.String()
	}
	return names
}

// Tick returns the number of ticks completed so far.
func (s *Scheduler) Tick() uint64 {
	return s.tick
}
