package ecs

import (
	"slices"
	"testing"

	. "github.com/argus-labs/tickworld/pkg/ecs/internal/testutils"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestECS_SpawnUniqueAcrossDeletion(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	seen := make(map[EntityID]struct{})
	for range 50 {
		eid := w.SpawnEntity()
		_, dup := seen[eid]
		require.False(t, dup, "entity %d reused", eid)
		seen[eid] = struct{}{}

		w.DeleteEntity(eid)
		w.CleanupDeletedEntities()
	}
	assert.Equal(t, 0, w.EntityCount())
}

func TestECS_AddGetRemove(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()

	require.NoError(t, AddComponent(w, e, Position{X: 1, Y: 2}))

	got, ok := GetComponent[Position](w, e)
	require.True(t, ok)
	assert.Equal(t, Position{X: 1, Y: 2}, got)
	assert.True(t, HasComponent[Position](w, e))

	removed, ok := RemoveComponent[Position](w, e)
	require.True(t, ok)
	assert.Equal(t, Position{X: 1, Y: 2}, removed)

	_, ok = GetComponent[Position](w, e)
	assert.False(t, ok)
	assert.False(t, HasComponent[Position](w, e))

	_, ok = RemoveComponent[Position](w, e)
	assert.False(t, ok, "remove returns the value exactly once")
}

func TestECS_AddComponent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(w *World) EntityID
		wantErr error
		want    Health
	}{
		{
			name:  "add to active entity",
			setup: func(w *World) EntityID { return w.SpawnEntity() },
			want:  Health{Value: 100},
		},
		{
			name: "add twice keeps the original",
			setup: func(w *World) EntityID {
				e := w.SpawnEntity()
				require.NoError(t, AddComponent(w, e, Health{Value: 1}))
				return e
			},
			wantErr: ErrComponentAlreadyExists,
			want:    Health{Value: 1},
		},
		{
			name: "add to deleted entity",
			setup: func(w *World) EntityID {
				e := w.SpawnEntity()
				w.DeleteEntity(e)
				return e
			},
			wantErr: ErrComponentNotFound,
		},
		{
			name: "add to removed entity",
			setup: func(w *World) EntityID {
				e := w.SpawnEntity()
				w.DeleteEntity(e)
				w.CleanupDeletedEntities()
				return e
			},
			wantErr: ErrComponentNotFound,
		},
		{
			name:    "add to entity that never existed",
			setup:   func(*World) EntityID { return 12345 },
			wantErr: ErrComponentNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := NewWorld()
			e := tt.setup(w)

			err := AddComponent(w, e, Health{Value: 100})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, eris.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
			}

			got, ok := GetComponent[Health](w, e)
			if tt.want == (Health{}) {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestECS_ReplaceComponent(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()

	prev, existed := ReplaceComponent(w, e, Counter{Value: 1})
	assert.False(t, existed)
	assert.Zero(t, prev)

	for i := 2; i <= 5; i++ {
		prev, existed = ReplaceComponent(w, e, Counter{Value: i})
		require.True(t, existed)
		assert.Equal(t, Counter{Value: i - 1}, prev)

		got, ok := GetComponent[Counter](w, e)
		require.True(t, ok)
		assert.Equal(t, Counter{Value: i}, got)
	}
}

func TestECS_ReplaceComponentDoesNotCheckActivity(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()
	require.NoError(t, AddComponent(w, e, Counter{Value: 1}))
	w.DeleteEntity(e)

	// Replace still reaches the storage of a pending entity and reports the stale value.
	prev, existed := ReplaceComponent(w, e, Counter{Value: 2})
	assert.True(t, existed)
	assert.Equal(t, Counter{Value: 1}, prev)

	// Reads stay hidden, and cleanup still removes the record.
	assert.False(t, HasComponent[Counter](w, e))
	w.CleanupDeletedEntities()
	s, _ := getStorage[Counter](&w.components)
	assert.False(t, s.has(e))
}

func TestECS_ReplaceComponentOnUnspawnedID(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	first := w.SpawnEntity()
	next := first + 1

	_, existed := ReplaceComponent(w, next, Counter{Value: 7})
	assert.False(t, existed)
	assert.False(t, HasComponent[Counter](w, next))
	w.CleanupDeletedEntities()

	// The record survives cleanup and belongs to the entity that is later spawned with the id.
	spawned := w.SpawnEntity()
	require.Equal(t, next, spawned)
	c, ok := GetComponent[Counter](w, spawned)
	require.True(t, ok)
	assert.Equal(t, Counter{Value: 7}, c)
}

func TestECS_UpdateComponent(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()

	calls := 0
	increment := func(c Counter) Counter {
		calls++
		c.Value += 5
		return c
	}

	_, err := UpdateComponent(w, e, increment)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrComponentNotFound))
	assert.Equal(t, 0, calls, "transform must not run on a missing component")
	assert.False(t, HasComponent[Counter](w, e), "update must not create a component")

	require.NoError(t, AddComponent(w, e, Counter{Value: 1}))
	updated, err := UpdateComponent(w, e, increment)
	require.NoError(t, err)
	assert.Equal(t, Counter{Value: 6}, updated)
	assert.Equal(t, 1, calls)

	got, _ := GetComponent[Counter](w, e)
	assert.Equal(t, Counter{Value: 6}, got)

	w.DeleteEntity(e)
	_, err = UpdateComponent(w, e, increment)
	assert.True(t, eris.Is(err, ErrComponentNotFound))
	assert.Equal(t, 1, calls)
}

func TestECS_GetComponentMut(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()
	require.NoError(t, AddComponent(w, e, Position{X: 1}))

	ptr, ok := GetComponentMut[Position](w, e)
	require.True(t, ok)
	ptr.Y = 9

	got, _ := GetComponent[Position](w, e)
	assert.Equal(t, Position{X: 1, Y: 9}, got)

	_, ok = GetComponentMut[Velocity](w, e)
	assert.False(t, ok)
}

func TestECS_DeletedEntityIsInvisible(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()
	other := w.SpawnEntity()
	require.NoError(t, AddComponent(w, e, Position{X: 1}))
	require.NoError(t, AddComponent(w, other, Position{X: 2}))

	w.DeleteEntity(e)

	// The stale record is still physically in the storage until cleanup.
	s, exists := getStorage[Position](&w.components)
	require.True(t, exists)
	assert.True(t, s.has(e))

	assert.False(t, w.IsActive(e))
	assert.False(t, HasComponent[Position](w, e))
	_, ok := GetComponent[Position](w, e)
	assert.False(t, ok)
	_, ok = GetComponentMut[Position](w, e)
	assert.False(t, ok)
	_, ok = RemoveComponent[Position](w, e)
	assert.False(t, ok)
	assert.NotContains(t, slices.Collect(w.Entities()), e)

	// Deleting again is a no-op.
	w.DeleteEntity(e)

	assert.Equal(t, 1, w.CleanupDeletedEntities())
	assert.False(t, s.has(e))
	assert.Equal(t, 1, s.len())

	got, ok := GetComponent[Position](w, other)
	require.True(t, ok, "entities that were not deleted are untouched")
	assert.Equal(t, Position{X: 2}, got)
}

func TestECS_CleanupSweepsEveryStorage(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()
	require.NoError(t, AddComponent(w, e, Position{}))
	require.NoError(t, AddComponent(w, e, Velocity{}))
	require.NoError(t, AddComponent(w, e, Health{}))

	w.DeleteEntity(e)
	assert.Equal(t, 1, w.CleanupDeletedEntities())

	for _, s := range w.components.storages {
		assert.Equal(t, 0, s.len(), "storage %s still holds the entity", s.name())
	}
	assert.Equal(t, []string{"Health", "Position", "Velocity"}, w.ComponentTypes(),
		"storages persist after being emptied")
}

func TestECS_Entities(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	ids := make([]EntityID, 5)
	for i := range ids {
		ids[i] = w.SpawnEntity()
	}
	w.DeleteEntity(ids[1])
	w.DeleteEntity(ids[3])

	want := []EntityID{ids[0], ids[2], ids[4]}
	assert.Equal(t, want, slices.Collect(w.Entities()))
	assert.Equal(t, want, slices.Collect(w.ReadOnly().Entities()), "read only view agrees")

	w.CleanupDeletedEntities()
	assert.Equal(t, want, slices.Collect(w.Entities()), "cleanup keeps order")
	assert.Equal(t, 3, w.EntityCount())
}

func TestECS_EntitiesDuringMutation(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	a, b := w.SpawnEntity(), w.SpawnEntity()

	var visited []EntityID
	var spawned EntityID
	for eid := range w.Entities() {
		visited = append(visited, eid)
		if eid == a {
			w.DeleteEntity(b)
			spawned = w.SpawnEntity()
		}
	}
	assert.Equal(t, []EntityID{a, spawned}, visited)
}

func TestECS_ReadOnlyView(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()
	require.NoError(t, AddComponent(w, e, Velocity{X: 3}))

	ro := w.ReadOnly()
	got, ok := GetComponent[Velocity](ro, e)
	require.True(t, ok)
	assert.Equal(t, Velocity{X: 3}, got)
	assert.True(t, HasComponent[Velocity](ro, e))
	assert.True(t, ro.IsActive(e))
	assert.Equal(t, 1, ro.EntityCount())
}

func TestECS_ConcreteScenario(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()
	require.NoError(t, AddComponent(w, e, Position{X: 1, Y: 2}))

	removed, ok := RemoveComponent[Position](w, e)
	require.True(t, ok)
	assert.Equal(t, Position{X: 1, Y: 2}, removed)

	_, ok = GetComponent[Position](w, e)
	assert.False(t, ok)
}
