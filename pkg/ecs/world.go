package ecs

import (
	"iter"
)

// World owns every entity and component of a simulation. It is not safe for concurrent mutation;
// the scheduler guarantees only one system mutates it at a time.
type World struct {
	entities   entityManager    // Entity lifecycle
	components storageRegistry  // Regular component storages
	ephemeral  ephemeralOverlay // Components that only live until the end of the tick
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		entities:   newEntityManager(),
		components: newStorageRegistry(),
		ephemeral:  newEphemeralOverlay(),
	}
}

// Reader is implemented by *World and ReadOnly. Functions that only read component data accept a
// Reader so they can be used from every system phase.
type Reader interface {
	world() *World
}

var _ Reader = &World{}
var _ Reader = ReadOnly{}

func (w *World) world() *World { return w }

// ReadOnly is a view of a world that only exposes read operations. Systems receive it in their
// BeforeRun and AfterRun phases.
type ReadOnly struct {
	w *World
}

// ReadOnly returns a read-only view of the world.
func (w *World) ReadOnly() ReadOnly {
	return ReadOnly{w: w}
}

func (r ReadOnly) world() *World { return r.w }

// Entities iterates over the active entities of the viewed world.
func (r ReadOnly) Entities() iter.Seq[EntityID] { return r.w.Entities() }

// IsActive reports whether the entity is active in the viewed world.
func (r ReadOnly) IsActive(eid EntityID) bool { return r.w.IsActive(eid) }

// EntityCount returns the number of active entities in the viewed world.
func (r ReadOnly) EntityCount() int { return r.w.EntityCount() }

// -------------------------------------------------------------------------------------------------
// Entity lifecycle
// -------------------------------------------------------------------------------------------------

// SpawnEntity creates a new active entity without components.
func (w *World) SpawnEntity() EntityID {
	return w.entities.spawn()
}

// DeleteEntity marks an entity for deletion. From this point the entity is invisible to every
// component operation and to Entities, and its ephemeral components are unreachable. Its regular
// components stay in their storages until CleanupDeletedEntities runs. Deleting an entity that is
// not active is a no-op.
func (w *World) DeleteEntity(eid EntityID) {
	if !w.entities.markDeleted(eid) {
		return
	}
	w.ephemeral.forget(eid)
}

// CleanupDeletedEntities removes every entity marked for deletion from all regular storages and
// returns how many entities were removed. Afterwards those entities are indistinguishable from
// entities that never existed. Must not be called while iterating Entities.
func (w *World) CleanupDeletedEntities() int {
	return w.entities.sweep(func(eid EntityID) {
		w.components.removeEntity(eid)
	})
}

// IsActive reports whether the entity exists and is not marked for deletion.
func (w *World) IsActive(eid EntityID) bool {
	return w.entities.isActive(eid)
}

// EntityCount returns the number of active entities.
func (w *World) EntityCount() int {
	return w.entities.activeCount()
}

// Entities iterates over the active entities in spawn order. Entities spawned during iteration are
// visited, entities deleted during iteration are skipped once deleted.
func (w *World) Entities() iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		em := &w.entities
		for i := 0; i < len(em.order); i++ {
			eid := em.order[i]
			if !em.isActive(eid) {
				continue
			}
			if !yield(eid) {
				return
			}
		}
	}
}

// ComponentTypes returns the names of every component type that has a storage in this world,
// sorted by name.
func (w *World) ComponentTypes() []string {
	return w.components.names()
}
