package ecs

import "reflect"

// System is a unit of per-tick behavior. Every tick the scheduler calls BeforeRun on all systems,
// then Run on all systems, then AfterRun on all systems, each sweep in dependency order. Only Run
// receives a mutable world.
//
// Embed BaseSystem to get no-op phases and no dependencies, then override what the system needs:
//
//	type Regen struct{ ecs.BaseSystem }
//
//	func (Regen) Dependencies() []ecs.SystemID { return []ecs.SystemID{ecs.SystemIDOf[Combat]()} }
//
//	func (Regen) Run(w *ecs.World) {
//	    for eid := range w.Entities() {
//	        _, _ = ecs.UpdateComponent(w, eid, func(h Health) Health { h.HP++; return h })
//	    }
//	}
type System interface {
	// Dependencies lists the systems that must run before this one in every phase.
	Dependencies() []SystemID
	// BeforeRun prepares for the tick. Must not mutate the world.
	BeforeRun(r ReadOnly)
	// Run is the only phase that may mutate entities and components.
	Run(w *World)
	// AfterRun reports on the tick. Must not mutate the world.
	AfterRun(r ReadOnly)
}

// BaseSystem implements every System method as a no-op.
type BaseSystem struct{}

var _ System = BaseSystem{}

func (BaseSystem) Dependencies() []SystemID { return nil }
func (BaseSystem) BeforeRun(ReadOnly) {}
func (BaseSystem) Run(*World) {}
func (BaseSystem) AfterRun(ReadOnly) {}

// SystemID identifies a system by its type. A system registered as a pointer and a dependency
// declared on the value type refer to the same system.
type SystemID struct {
	typ reflect.Type
}

// SystemIDOf returns the ID of system type S.
func SystemIDOf[S System]() SystemID {
	return newSystemID(reflect.TypeFor[S]())
}

// SystemIDFor returns the ID of the given system.
func SystemIDFor(system System) SystemID {
	return newSystemID(reflect.TypeOf(system))
}

func newSystemID(typ reflect.Type) SystemID {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return SystemID{typ: typ}
}

// String returns the package qualified type name of the system.
func (id SystemID) String() string {
	if id.typ == nil {
		return "<nil>"
	}
	return id.typ.String()
}

// systemConfig holds the options a system was registered with.
type systemConfig struct {
	deps []SystemID // Dependencies declared at registration, on top of System.Dependencies
}

// SystemOption configures a system at registration.
type SystemOption func(*systemConfig)

// WithDependencies declares extra dependencies for the system being registered.
func WithDependencies(deps ...SystemID) SystemOption {
	return func(cfg *systemConfig) { cfg.deps = append(cfg.deps, deps...) }
}
