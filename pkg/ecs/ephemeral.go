package ecs

import "github.com/argus-labs/tickworld/pkg/assert"

// ephemeralOverlay stores components that only live until the end of the current tick. They are
// used by systems to signal each other within a tick. The reverse index answers existence checks
// without touching the storages.
type ephemeralOverlay struct {
	storages storageRegistry
	index    map[componentType]map[EntityID]struct{}
}

// newEphemeralOverlay creates an empty overlay.
func newEphemeralOverlay() ephemeralOverlay {
	return ephemeralOverlay{
		storages: newStorageRegistry(),
		index:    make(map[componentType]map[EntityID]struct{}),
	}
}

// has reports whether the reverse index has the entity under the given type.
func (o *ephemeralOverlay) has(key componentType, eid EntityID) bool {
	_, exists := o.index[key][eid]
	return exists
}

// mark records the entity under the given type in the reverse index.
func (o *ephemeralOverlay) mark(key componentType, eid EntityID) {
	entities, exists := o.index[key]
	if !exists {
		entities = make(map[EntityID]struct{})
		o.index[key] = entities
	}
	entities[eid] = struct{}{}
}

// forget removes the entity from the reverse index of every type. The storages keep the stale
// records until the overlay is cleared, but nothing can reach them anymore.
func (o *ephemeralOverlay) forget(eid EntityID) {
	for _, entities := range o.index {
		delete(entities, eid)
	}
}

// clear drops the whole overlay. The containers are replaced instead of emptied so the cost does
// not depend on how much was stored.
func (o *ephemeralOverlay) clear() {
	*o = newEphemeralOverlay()
}

// AddEphemeralComponent attaches an ephemeral component to an active entity, overwriting any
// ephemeral component of the same type it already has. Fails with ErrComponentNotFound if the
// entity is not active.
func AddEphemeralComponent[T Component](w *World, eid EntityID, component T) error {
	if !w.IsActive(eid) {
		return entityNotActive[T](eid)
	}
	getStorageMut[T](&w.ephemeral.storages).insertOrUpdate(eid, component)
	w.ephemeral.mark(typeOf[T](), eid)
	return nil
}

// GetEphemeralComponent returns the entity's ephemeral component of type T.
func GetEphemeralComponent[T Component](r Reader, eid EntityID) (T, bool) {
	var zero T
	w := r.world()
	if !w.IsActive(eid) || !w.ephemeral.has(typeOf[T](), eid) {
		return zero, false
	}
	s, exists := getStorage[T](&w.ephemeral.storages)
	assert.That(exists, "ephemeral index has %s but its storage does not exist", typeOf[T]())
	component, exists := s.get(eid)
	assert.That(exists, "ephemeral index has %s for entity %d but its storage does not", typeOf[T](), eid)
	return component, true
}

// HasEphemeralComponent reports whether the entity has an ephemeral component of type T. Answered
// from the reverse index alone.
func HasEphemeralComponent[T Component](r Reader, eid EntityID) bool {
	w := r.world()
	return w.IsActive(eid) && w.ephemeral.has(typeOf[T](), eid)
}

// CleanEphemeralStorage discards every ephemeral component at once. The scheduler calls it at the
// end of every tick.
func (w *World) CleanEphemeralStorage() {
	w.ephemeral.clear()
}
