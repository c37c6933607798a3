package ecs

import "github.com/rotisserie/eris"

var (
	// ErrComponentAlreadyExists is returned by a non-overwriting insert when the entity already
	// holds a component of that type.
	ErrComponentAlreadyExists = eris.New("component already exists on entity")

	// ErrComponentNotFound is returned when an operation references a component or an entity that
	// is absent, deleted, or never existed.
	ErrComponentNotFound = eris.New("component not found")
)

// Scheduler configuration errors. These are only ever returned from AddSystem and Build.
var (
	ErrSchedulerBuilt    = eris.New("scheduler is already built")
	ErrDuplicateSystem   = eris.New("system is already registered")
	ErrUnknownDependency = eris.New("system depends on a system that is not registered")
	ErrDependencyCycle   = eris.New("system dependencies contain a cycle")
)

// ErrSchedulerNotBuilt is the panic value of RunTick on a scheduler without a successful Build.
var ErrSchedulerNotBuilt = eris.New("scheduler is not built")
