package ecs

import (
	"iter"

	"github.com/argus-labs/tickworld/pkg/assert"
	"github.com/rotisserie/eris"
)

// abstractStorage is the type-erased view of a storage. It is what the registry holds, and it is
// enough for the world to drop an entity's record without knowing the component type.
type abstractStorage interface {
	name() string
	len() int
	removeEntity(eid EntityID) bool
}

var _ abstractStorage = &storage[Component]{}

// storage maps entities to a single component type. Component data lives in a dense slice that
// is kept parallel to the entities slice, and rows maps an entity to its index in both. The
// storage does not know anything about entity lifecycle, that is the world's job.
type storage[T Component] struct {
	compName   string           // The name of the component stored here
	rows       map[EntityID]int // Entity -> index into entities and components
	entities   []EntityID       // Entity owning each row
	components []T              // Component data, one row per entity
}

// newStorage creates an empty storage for T.
func newStorage[T Component]() *storage[T] {
	var zero T
	const initialCapacity = 16
	return &storage[T]{
		compName:   zero.Name(),
		rows:       make(map[EntityID]int),
		entities:   make([]EntityID, 0, initialCapacity),
		components: make([]T, 0, initialCapacity),
	}
}

// insert stores the component for the entity. Fails with ErrComponentAlreadyExists if the entity
// already has one.
func (s *storage[T]) insert(eid EntityID, component T) error {
	if _, exists := s.rows[eid]; exists {
		return eris.Wrapf(ErrComponentAlreadyExists, "entity %d already has %s", eid, s.compName)
	}
	s.append(eid, component)
	return nil
}

// insertOrUpdate stores the component for the entity, overwriting any previous value. Returns the
// previous value if there was one.
func (s *storage[T]) insertOrUpdate(eid EntityID, component T) (T, bool) {
	if row, exists := s.rows[eid]; exists {
		prev := s.components[row]
		s.components[row] = component
		return prev, true
	}
	s.append(eid, component)
	var zero T
	return zero, false
}

// append adds a new row. Expects the caller to check the entity has no row yet.
func (s *storage[T]) append(eid EntityID, component T) {
	s.rows[eid] = len(s.entities)
	s.entities = append(s.entities, eid)
	s.components = append(s.components, component)
	assert.That(len(s.entities) == len(s.components), "storage %s columns out of sync", s.compName)
}

// remove removes the entity's component and returns it. The last row is swapped into the freed
// row so the slices stay dense.
func (s *storage[T]) remove(eid EntityID) (T, bool) {
	var zero T
	row, exists := s.rows[eid]
	if !exists {
		return zero, false
	}
	removed := s.components[row]

	lastIndex := len(s.entities) - 1
	if row != lastIndex {
		moved := s.entities[lastIndex]
		s.entities[row] = moved
		s.components[row] = s.components[lastIndex]
		s.rows[moved] = row
	}
	// Clear the vacated slot so the storage does not keep component data reachable.
	s.components[lastIndex] = zero
	s.entities = s.entities[:lastIndex]
	s.components = s.components[:lastIndex]
	delete(s.rows, eid)

	return removed, true
}

// get returns a copy of the entity's component.
func (s *storage[T]) get(eid EntityID) (T, bool) {
	row, exists := s.rows[eid]
	if !exists {
		var zero T
		return zero, false
	}
	return s.components[row], true
}

// getMut returns a pointer to the entity's component. The pointer is only valid until the next
// insert or remove on this storage.
func (s *storage[T]) getMut(eid EntityID) (*T, bool) {
	row, exists := s.rows[eid]
	if !exists {
		return nil, false
	}
	return &s.components[row], true
}

// has reports whether the entity has a row.
func (s *storage[T]) has(eid EntityID) bool {
	_, exists := s.rows[eid]
	return exists
}

// all iterates over every row in storage order.
func (s *storage[T]) all() iter.Seq2[EntityID, T] {
	return func(yield func(EntityID, T) bool) {
		for row, eid := range s.entities {
			if !yield(eid, s.components[row]) {
				return
			}
		}
	}
}

// name returns the name of the component type.
func (s *storage[T]) name() string {
	return s.compName
}

// len returns the number of stored components.
func (s *storage[T]) len() int {
	return len(s.entities)
}

// removeEntity drops the entity's record. Returns true if there was one.
func (s *storage[T]) removeEntity(eid EntityID) bool {
	_, removed := s.remove(eid)
	return removed
}
