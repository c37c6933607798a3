// Package config loads the options of tickworld's components. Each component declares its options
// as a struct whose env-tagged fields are read from the environment. Options set in code take
// precedence over the environment, and the merged result is validated before it is returned.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
)

// Options is implemented by a pointer to a component's options struct.
type Options[T any] interface {
	*T

	// Override copies the non-zero fields of explicit into the receiver.
	Override(explicit T)

	// Validate checks that all required options are set and valid.
	Validate() error
}

// Load reads T from the process environment, applies explicit on top of it and validates the
// result. component names the options in errors.
func Load[T any, P Options[T]](component string, explicit T) (T, error) {
	return load[T, P](component, explicit, nil)
}

// load is Load with the environment replaced by environ when it is non-nil.
func load[T any, P Options[T]](component string, explicit T, environ map[string]string) (T, error) {
	var opts T

	var err error
	if environ == nil {
		err = env.Parse(&opts)
	} else {
		err = env.ParseWithOptions(&opts, env.Options{Environment: environ})
	}
	if err != nil {
		return opts, eris.Wrapf(err, "failed to parse %s config", component)
	}

	P(&opts).Override(explicit)
	if err := P(&opts).Validate(); err != nil {
		return opts, eris.Wrapf(err, "invalid %s options", component)
	}
	return opts, nil
}
