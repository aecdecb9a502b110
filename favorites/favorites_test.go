package favorites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/bookapp/store"
)

func TestAddThenIsFavorite(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemory())

	fav, err := m.IsFavorite(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.False(t, fav)

	require.NoError(t, m.Add(ctx, "u1", "b1"))
	fav, err = m.IsFavorite(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.True(t, fav)

	// Membership is per user.
	fav, err = m.IsFavorite(ctx, "u2", "b1")
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemory())

	require.NoError(t, m.Add(ctx, "u1", "b1"))
	require.NoError(t, m.Remove(ctx, "u1", "b1"))
	fav, err := m.IsFavorite(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.False(t, fav)

	// Removing an absent entry is a no-op success.
	require.NoError(t, m.Remove(ctx, "u1", "never-favorited"))
}

func TestAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemory())

	require.NoError(t, m.Add(ctx, "u1", "b1"))
	require.NoError(t, m.Add(ctx, "u1", "b1"))

	ids, err := m.ListBookIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, ids)
}

func TestUnauthenticated(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemory())

	assert.ErrorIs(t, m.Add(ctx, "", "b1"), store.ErrUnauthenticated)
	assert.ErrorIs(t, m.Remove(ctx, "", "b1"), store.ErrUnauthenticated)
	_, err := m.IsFavorite(ctx, "", "b1")
	assert.ErrorIs(t, err, store.ErrUnauthenticated)
	_, err = m.Watch(ctx, "", "b1", func(bool) {}, func(error) {})
	assert.ErrorIs(t, err, store.ErrUnauthenticated)
}

func TestWatchReflectsChanges(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	m := NewManager(mem)

	var states []bool
	sub, err := m.Watch(ctx, "u1", "b1", func(fav bool) { states = append(states, fav) }, func(error) {})
	require.NoError(t, err)

	require.NoError(t, m.Add(ctx, "u1", "b1"))
	require.NoError(t, m.Remove(ctx, "u1", "b1"))

	assert.Equal(t, []bool{false, true, false}, states)

	require.NoError(t, sub.Close())
	require.NoError(t, m.Add(ctx, "u1", "b1"))
	assert.Len(t, states, 3, "no deliveries after Close")
}

func TestListBookIDs(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemory())

	require.NoError(t, m.Add(ctx, "u1", "b1"))
	require.NoError(t, m.Add(ctx, "u1", "b2"))
	require.NoError(t, m.Add(ctx, "u2", "b3"))

	ids, err := m.ListBookIDs(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b1", "b2"}, ids)
}
