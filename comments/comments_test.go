package comments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/bookapp/models"
	"github.com/openshelf/bookapp/store"
)

func TestAddAssignsUniqueID(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory())

	first, err := s.Add(ctx, "u1", "b1", "great book")
	require.NoError(t, err)
	second, err := s.Add(ctx, "u1", "b1", "still great")
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, "u1", first.ID, "comment id is not the author uid")

	// Both comments from the same user survive.
	list, err := s.ListForBook(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAddRequiresIdentity(t *testing.T) {
	s := NewService(store.NewMemory())
	_, err := s.Add(context.Background(), "", "b1", "anonymous")
	assert.ErrorIs(t, err, store.ErrUnauthenticated)
}

func TestListForBookFiltersByBook(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory())

	_, err := s.Add(ctx, "u1", "b1", "on b1")
	require.NoError(t, err)
	_, err = s.Add(ctx, "u1", "b2", "on b2")
	require.NoError(t, err)

	list, err := s.ListForBook(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "on b1", list[0].Text)
	assert.Equal(t, "b1", list[0].BookID)
	assert.Equal(t, "u1", list[0].UID)

	empty, err := s.ListForBook(ctx, "no-comments")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWatchDeliversChanges(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory())

	var sizes []int
	sub, err := s.Watch(ctx, "b1", func(list []models.Comment) { sizes = append(sizes, len(list)) }, func(error) {})
	require.NoError(t, err)

	_, err = s.Add(ctx, "u1", "b1", "first")
	require.NoError(t, err)
	_, err = s.Add(ctx, "u2", "b1", "second")
	require.NoError(t, err)
	_, err = s.Add(ctx, "u1", "b2", "other book")
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, sizes, "only this book's thread is delivered")

	require.NoError(t, sub.Close())
	_, err = s.Add(ctx, "u3", "b1", "after close")
	require.NoError(t, err)
	assert.Len(t, sizes, 3, "no deliveries after Close")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory())

	c, err := s.Add(ctx, "u1", "b1", "to be removed")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "u1", c.ID, false))

	list, err := s.ListForBook(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, list)

	// Absent comment, delete still succeeds.
	assert.NoError(t, s.Delete(ctx, "u1", c.ID, false))

	assert.ErrorIs(t, s.Delete(ctx, "", c.ID, false), store.ErrUnauthenticated)
}

func TestDeleteRejectsNonAuthor(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory())

	c, err := s.Add(ctx, "author", "b1", "mine")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(ctx, "someone-else", c.ID, false), ErrNotOwner)

	// The comment survives the rejected delete.
	list, err := s.ListForBook(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}

func TestDeleteByAdmin(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory())

	c, err := s.Add(ctx, "author", "b1", "spam")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "moderator", c.ID, true))

	list, err := s.ListForBook(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
