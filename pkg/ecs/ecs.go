// Package ecs is an entity component system runtime. A World stores entities and their typed
// components, and a Scheduler runs Systems against a World once per tick in dependency order.
//
// Component operations are package functions because Go methods cannot have type parameters.
// Operations that only read take a Reader, which both *World and ReadOnly satisfy. Operations
// that mutate take a *World, which systems only receive in their Run phase.
package ecs

import "github.com/rotisserie/eris"

// AddComponent attaches a component to an active entity. Fails with ErrComponentNotFound if the
// entity is not active, and with ErrComponentAlreadyExists if it already has a component of this
// type, in which case the existing value is left untouched.
func AddComponent[T Component](w *World, eid EntityID, component T) error {
	if !w.IsActive(eid) {
		return entityNotActive[T](eid)
	}
	return getStorageMut[T](&w.components).insert(eid, component)
}

// GetComponent returns a copy of the entity's component of type T. Entities that are not active
// never have components, even if their data has not been swept yet.
func GetComponent[T Component](r Reader, eid EntityID) (T, bool) {
	var zero T
	w := r.world()
	if !w.IsActive(eid) {
		return zero, false
	}
	s, exists := getStorage[T](&w.components)
	if !exists {
		return zero, false
	}
	return s.get(eid)
}

// GetComponentMut returns a pointer to the entity's component of type T so it can be modified in
// place. The pointer is invalidated by the next add or remove of a T component on any entity.
func GetComponentMut[T Component](w *World, eid EntityID) (*T, bool) {
	if !w.IsActive(eid) {
		return nil, false
	}
	s, exists := getStorage[T](&w.components)
	if !exists {
		return nil, false
	}
	return s.getMut(eid)
}

// HasComponent reports whether an active entity has a component of type T.
func HasComponent[T Component](r Reader, eid EntityID) bool {
	w := r.world()
	if !w.IsActive(eid) {
		return false
	}
	s, exists := getStorage[T](&w.components)
	return exists && s.has(eid)
}

// RemoveComponent detaches the entity's component of type T and returns it.
func RemoveComponent[T Component](w *World, eid EntityID) (T, bool) {
	var zero T
	if !w.IsActive(eid) {
		return zero, false
	}
	s, exists := getStorage[T](&w.components)
	if !exists {
		return zero, false
	}
	return s.remove(eid)
}

// ReplaceComponent sets the entity's component of type T whether or not it already has one, and
// returns the previous value if there was one.
//
// Unlike AddComponent, ReplaceComponent does not check that the entity is active. A record
// written for a pending entity is dropped by the next cleanup. A record written for an id that
// has not been spawned yet is never swept: ids are handed out in order, so the entity later
// spawned with that id starts out holding the component.
func ReplaceComponent[T Component](w *World, eid EntityID, component T) (T, bool) {
	return getStorageMut[T](&w.components).insertOrUpdate(eid, component)
}

// UpdateComponent applies fn to the entity's component of type T, stores the result and returns
// it. Fails with ErrComponentNotFound if the entity is not active or has no such component, in
// which case fn is not called and nothing is created.
//
// The read-modify-write is not atomic. Only call it from a phase with exclusive access to the
// world.
func UpdateComponent[T Component](w *World, eid EntityID, fn func(T) T) (T, error) {
	current, exists := GetComponent[T](w, eid)
	if !exists {
		var zero T
		return zero, eris.Wrapf(ErrComponentNotFound, "entity %d has no %s", eid, typeOf[T]())
	}
	// fn may touch the same storage, so the result is written back by entity, not through a
	// pointer taken before the call.
	updated := fn(current)
	getStorageMut[T](&w.components).insertOrUpdate(eid, updated)
	return updated, nil
}

// entityNotActive is the error returned when a T operation targets an entity that is not active.
func entityNotActive[T Component](eid EntityID) error {
	return eris.Wrapf(ErrComponentNotFound, "entity %d is not active, cannot attach %s", eid, typeOf[T]())
}
