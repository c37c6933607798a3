// Package testutils contains component types shared by the ecs tests.
package testutils

type Position struct{ X, Y int }

func (Position) Name() string { return "Position" }

type Velocity struct{ X, Y int }

func (Velocity) Name() string { return "Velocity" }

type Health struct {
	Value int `json:"value"`
}

func (Health) Name() string { return "Health" }

type Counter struct{ Value int }

func (Counter) Name() string { return "Counter" }

// Damaged is used as an ephemeral component: a hit registered during the current tick.
type Damaged struct{ Amount int }

func (Damaged) Name() string { return "Damaged" }

// Spawned is used as an ephemeral component marking entities created this tick.
type Spawned struct{}

func (Spawned) Name() string { return "Spawned" }
