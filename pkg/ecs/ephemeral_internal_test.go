package ecs

import (
	"testing"

	. "github.com/argus-labs/tickworld/pkg/ecs/internal/testutils"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEphemeral_AddAlwaysOverwrites(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()

	require.NoError(t, AddEphemeralComponent(w, e, Damaged{Amount: 1}))
	require.NoError(t, AddEphemeralComponent(w, e, Damaged{Amount: 7}))

	got, ok := GetEphemeralComponent[Damaged](w, e)
	require.True(t, ok)
	assert.Equal(t, Damaged{Amount: 7}, got)
	assert.True(t, HasEphemeralComponent[Damaged](w, e))
	assert.False(t, HasEphemeralComponent[Spawned](w, e))
}

func TestEphemeral_AddToInactiveEntity(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()
	w.DeleteEntity(e)

	err := AddEphemeralComponent(w, e, Damaged{Amount: 1})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrComponentNotFound))

	err = AddEphemeralComponent(w, EntityID(777), Damaged{Amount: 1})
	assert.True(t, eris.Is(err, ErrComponentNotFound))
}

func TestEphemeral_UnreachableImmediatelyAfterDelete(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()
	keep := w.SpawnEntity()
	require.NoError(t, AddEphemeralComponent(w, e, Damaged{Amount: 3}))
	require.NoError(t, AddEphemeralComponent(w, keep, Damaged{Amount: 4}))

	w.DeleteEntity(e)

	assert.False(t, HasEphemeralComponent[Damaged](w, e))
	_, ok := GetEphemeralComponent[Damaged](w, e)
	assert.False(t, ok)
	assert.False(t, w.ephemeral.has(typeOf[Damaged](), e), "reverse index forgets the entity")

	got, ok := GetEphemeralComponent[Damaged](w, keep)
	require.True(t, ok)
	assert.Equal(t, Damaged{Amount: 4}, got)
}

func TestEphemeral_CleanKeepsRegularComponents(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()
	require.NoError(t, AddComponent(w, e, Health{Value: 10}))
	require.NoError(t, AddEphemeralComponent(w, e, Damaged{Amount: 2}))
	require.NoError(t, AddEphemeralComponent(w, e, Spawned{}))

	w.CleanEphemeralStorage()

	assert.False(t, HasEphemeralComponent[Damaged](w, e))
	assert.False(t, HasEphemeralComponent[Spawned](w, e))
	_, ok := GetEphemeralComponent[Damaged](w, e)
	assert.False(t, ok)
	assert.Equal(t, 0, w.ephemeral.storages.len())
	assert.Empty(t, w.ephemeral.index)

	got, ok := GetComponent[Health](w, e)
	require.True(t, ok)
	assert.Equal(t, Health{Value: 10}, got)

	// The overlay is usable again after being cleared.
	require.NoError(t, AddEphemeralComponent(w, e, Damaged{Amount: 5}))
	assert.True(t, HasEphemeralComponent[Damaged](w, e))
}

func TestEphemeral_SeparateFromRegular(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()
	require.NoError(t, AddEphemeralComponent(w, e, Counter{Value: 1}))

	assert.False(t, HasComponent[Counter](w, e), "ephemeral components are not regular components")
	require.NoError(t, AddComponent(w, e, Counter{Value: 2}))

	eph, _ := GetEphemeralComponent[Counter](w, e)
	reg, _ := GetComponent[Counter](w, e)
	assert.Equal(t, 1, eph.Value)
	assert.Equal(t, 2, reg.Value)
}

func TestEphemeral_ReadOnlyView(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	e := w.SpawnEntity()
	require.NoError(t, AddEphemeralComponent(w, e, Damaged{Amount: 9}))

	ro := w.ReadOnly()
	assert.True(t, HasEphemeralComponent[Damaged](ro, e))
	got, ok := GetEphemeralComponent[Damaged](ro, e)
	require.True(t, ok)
	assert.Equal(t, 9, got.Amount)
}
