package ecs

import (
	"sync/atomic"

	"github.com/argus-labs/tickworld/pkg/assert"
)

// EntityID is a unique identifier for an entity. IDs are never reused within a World, and zero is
// never issued so it can stand for "no entity".
type EntityID uint64

// entityAllocator issues entity IDs. It is the only piece of world state that is safe for
// concurrent use.
type entityAllocator struct {
	last atomic.Uint64
}

// allocate returns the next entity ID.
func (a *entityAllocator) allocate() EntityID {
	id := a.last.Add(1)
	assert.That(id != 0, "entity id space exhausted")
	return EntityID(id)
}

// entityState is the lifecycle state of a tracked entity. Removed entities are not tracked at all.
type entityState uint8

const (
	entityActive entityState = iota + 1
	entityPendingDeletion
)

// entityManager tracks every entity that was spawned and not yet swept by cleanup.
type entityManager struct {
	alloc   entityAllocator
	order   []EntityID               // Active and pending entities in spawn order
	state   map[EntityID]entityState // Lifecycle state of every entity in order
	pending []EntityID               // Entities deleted since the last cleanup
}

// newEntityManager creates an empty entity manager.
func newEntityManager() entityManager {
	return entityManager{
		order:   make([]EntityID, 0),
		state:   make(map[EntityID]entityState),
		pending: make([]EntityID, 0),
	}
}

// spawn allocates a new active entity.
func (em *entityManager) spawn() EntityID {
	id := em.alloc.allocate()
	em.order = append(em.order, id)
	em.state[id] = entityActive
	return id
}

// isActive reports whether the entity is spawned and not marked for deletion.
func (em *entityManager) isActive(id EntityID) bool {
	return em.state[id] == entityActive
}

// markDeleted moves an active entity to pending deletion. Returns false if the entity was not
// active.
func (em *entityManager) markDeleted(id EntityID) bool {
	if !em.isActive(id) {
		return false
	}
	em.state[id] = entityPendingDeletion
	em.pending = append(em.pending, id)
	return true
}

// sweep forgets every pending entity, calling drop for each of them first, and returns how many
// were removed.
func (em *entityManager) sweep(drop func(EntityID)) int {
	if len(em.pending) == 0 {
		return 0
	}

	for _, id := range em.pending {
		assert.That(em.state[id] == entityPendingDeletion, "entity %d swept while not pending", id)
		drop(id)
		delete(em.state, id)
	}
	removed := len(em.pending)
	em.pending = em.pending[:0]

	kept := make([]EntityID, 0, len(em.order)-removed)
	for _, id := range em.order {
		if _, tracked := em.state[id]; tracked {
			kept = append(kept, id)
		}
	}
	assert.That(len(kept) == len(em.state), "entity order and state out of sync")
	em.order = kept

	return removed
}

// activeCount returns the number of active entities.
func (em *entityManager) activeCount() int {
	return len(em.state) - len(em.pending)
}
