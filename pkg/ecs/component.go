package ecs

import "reflect"

// Component is implemented by every type that can be attached to an entity. Components are plain
// data and share no structure; Name is only a human readable label used in logs and
// introspection. Storages are keyed by the Go type, not by the name, so two component types may
// report the same name without colliding.
type Component interface { //nolint:iface // marker interface
	Name() string
}

// componentType is the type identity used to key storages.
type componentType = reflect.Type

// typeOf returns the type identity of T.
func typeOf[T Component]() componentType {
	return reflect.TypeFor[T]()
}
