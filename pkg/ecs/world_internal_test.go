package ecs

import (
	"slices"
	"testing"

	. "github.com/argus-labs/tickworld/pkg/ecs/internal/testutils"
	"github.com/argus-labs/tickworld/pkg/testutils"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------------------------------------------------------------------------------
// World lifecycle fuzz
// -------------------------------------------------------------------------------------------------
// Drives a world with a random mix of entity and component operations and checks it against a
// simple model: a map of active entities to their components, and a set of entities pending
// deletion. Cleanups and ephemeral clears happen at random "tick boundaries".
// -------------------------------------------------------------------------------------------------

type worldOp uint8

const (
	worldOpSpawn     worldOp = 15
	worldOpDelete    worldOp = 8
	worldOpCleanup   worldOp = 4
	worldOpAdd       worldOp = 14
	worldOpRemove    worldOp = 10
	worldOpUpdate    worldOp = 9
	worldOpGet       worldOp = 16
	worldOpEphemeral worldOp = 11
	worldOpEndTick   worldOp = 3
)

type worldModel struct {
	active    map[EntityID]*Counter // nil when the entity has no Counter
	pending   map[EntityID]struct{}
	ephemeral map[EntityID]Damaged
	order     []EntityID
}

func TestWorld_ModelFuzz(t *testing.T) {
	t.Parallel()
	prng := testutils.NewRand(t)

	const opsMax = 1 << 14
	ops := []worldOp{
		worldOpSpawn, worldOpDelete, worldOpCleanup, worldOpAdd, worldOpRemove,
		worldOpUpdate, worldOpGet, worldOpEphemeral, worldOpEndTick,
	}

	w := NewWorld()
	model := worldModel{
		active:    make(map[EntityID]*Counter),
		pending:   make(map[EntityID]struct{}),
		ephemeral: make(map[EntityID]Damaged),
	}
	everSpawned := make(map[EntityID]struct{})

	// pick returns an entity that may be active, pending, or removed.
	pick := func() EntityID {
		if len(model.order) == 0 || prng.IntN(10) == 0 {
			return EntityID(prng.IntN(1 << 20))
		}
		return model.order[prng.IntN(len(model.order))]
	}

	for range opsMax {
		switch testutils.RandWeightedOp(prng, ops) {
		case worldOpSpawn:
			eid := w.SpawnEntity()
			_, dup := everSpawned[eid]
			require.False(t, dup, "entity id %d reused", eid)
			everSpawned[eid] = struct{}{}
			model.active[eid] = nil
			model.order = append(model.order, eid)

		case worldOpDelete:
			eid := pick()
			w.DeleteEntity(eid)
			if _, ok := model.active[eid]; ok {
				delete(model.active, eid)
				delete(model.ephemeral, eid)
				model.pending[eid] = struct{}{}
			}

		case worldOpCleanup:
			removed := w.CleanupDeletedEntities()
			assert.Len(t, model.pending, removed)
			model.order = slices.DeleteFunc(model.order, func(eid EntityID) bool {
				_, ok := model.pending[eid]
				return ok
			})
			clear(model.pending)

		case worldOpAdd:
			eid := pick()
			value := Counter{Value: prng.IntN(100)}
			err := AddComponent(w, eid, value)
			current, active := model.active[eid]
			switch {
			case !active:
				assert.True(t, eris.Is(err, ErrComponentNotFound))
			case current != nil:
				assert.True(t, eris.Is(err, ErrComponentAlreadyExists))
			default:
				require.NoError(t, err)
				model.active[eid] = &value
			}

		case worldOpRemove:
			eid := pick()
			removed, ok := RemoveComponent[Counter](w, eid)
			current := model.active[eid]
			assert.Equal(t, current != nil, ok)
			if current != nil {
				assert.Equal(t, *current, removed)
				model.active[eid] = nil
			}

		case worldOpUpdate:
			eid := pick()
			delta := prng.IntN(10)
			updated, err := UpdateComponent(w, eid, func(c Counter) Counter {
				c.Value += delta
				return c
			})
			current := model.active[eid]
			if current == nil {
				assert.True(t, eris.Is(err, ErrComponentNotFound))
			} else {
				require.NoError(t, err)
				current.Value += delta
				assert.Equal(t, *current, updated)
			}

		case worldOpGet:
			eid := pick()
			got, ok := GetComponent[Counter](w, eid)
			current := model.active[eid]
			assert.Equal(t, current != nil, ok)
			assert.Equal(t, current != nil, HasComponent[Counter](w, eid))
			if current != nil {
				assert.Equal(t, *current, got)
			}

		case worldOpEphemeral:
			eid := pick()
			value := Damaged{Amount: prng.IntN(100)}
			err := AddEphemeralComponent(w, eid, value)
			if _, active := model.active[eid]; active {
				require.NoError(t, err)
				model.ephemeral[eid] = value
			} else {
				assert.True(t, eris.Is(err, ErrComponentNotFound))
			}

		case worldOpEndTick:
			w.CleanEphemeralStorage()
			clear(model.ephemeral)
		}

		// Ephemeral state always matches the model.
		eid := pick()
		want, wantOK := model.ephemeral[eid]
		got, ok := GetEphemeralComponent[Damaged](w, eid)
		require.Equal(t, wantOK, ok)
		require.Equal(t, wantOK, HasEphemeralComponent[Damaged](w, eid))
		require.Equal(t, want, got)
	}

	// Final property: iteration yields exactly the active entities in spawn order.
	var wantActive []EntityID
	for _, eid := range model.order {
		if _, ok := model.active[eid]; ok {
			wantActive = append(wantActive, eid)
		}
	}
	assert.Equal(t, wantActive, slices.Collect(w.Entities()))
	assert.Equal(t, len(wantActive), w.EntityCount())
}
