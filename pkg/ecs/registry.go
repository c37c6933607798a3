package ecs

import (
	"slices"

	"github.com/argus-labs/tickworld/pkg/assert"
)

// storageRegistry holds one storage per component type, keyed by the component's Go type. Storages
// are created lazily on first mutable access and never removed, so a storage returned for a type
// stays the same instance for as long as the registry lives.
type storageRegistry struct {
	storages map[componentType]abstractStorage
}

// newStorageRegistry creates an empty registry.
func newStorageRegistry() storageRegistry {
	return storageRegistry{storages: make(map[componentType]abstractStorage)}
}

// getStorage returns the storage for T, or false if none was ever created.
func getStorage[T Component](reg *storageRegistry) (*storage[T], bool) {
	abstract, exists := reg.storages[typeOf[T]()]
	if !exists {
		return nil, false
	}
	return recoverStorage[T](abstract), true
}

// getStorageMut returns the storage for T, creating it on first access.
func getStorageMut[T Component](reg *storageRegistry) *storage[T] {
	key := typeOf[T]()
	abstract, exists := reg.storages[key]
	if !exists {
		created := newStorage[T]()
		reg.storages[key] = created
		return created
	}
	return recoverStorage[T](abstract)
}

// recoverStorage converts an abstract storage back to its concrete type. Every storage in a
// registry is created by getStorageMut under its own type key, so a mismatch here is a registry
// bug and not something a caller can cause.
func recoverStorage[T Component](abstract abstractStorage) *storage[T] {
	concrete, ok := abstract.(*storage[T])
	assert.That(ok, "storage for %s is %T, not %T", typeOf[T](), abstract, concrete)
	return concrete
}

// removeEntity drops the entity's record from every storage in the registry and returns how many
// records were removed.
func (reg *storageRegistry) removeEntity(eid EntityID) int {
	removed := 0
	for _, s := range reg.storages {
		if s.removeEntity(eid) {
			removed++
		}
	}
	return removed
}

// names returns the component names of every storage, sorted.
func (reg *storageRegistry) names() []string {
	names := make([]string, 0, len(reg.storages))
	for _, s := range reg.storages {
		names = append(names, s.name())
	}
	slices.Sort(names)
	return names
}

// len returns the number of storages.
func (reg *storageRegistry) len() int {
	return len(reg.storages)
}
