package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/bookapp/models"
	"github.com/openshelf/bookapp/store"
)

func bookFields(title, categoryID string, views, downloads int64) map[string]any {
	return map[string]any{
		"uid":            "admin-1",
		"title":          title,
		"description":    "",
		"categoryId":     categoryID,
		"timestamp":      int64(1),
		"viewsCount":     views,
		"downloadsCount": downloads,
	}
}

func titles(books []models.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestProjectionFullReplace(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Write(ctx, store.Books, "1", bookFields("First", "c1", 0, 0)))
	require.NoError(t, mem.Write(ctx, store.Books, "2", bookFields("Second", "c1", 0, 0)))

	p := NewProjection(mem, AllBooks())
	var snapshots [][]models.Book
	p.OnUpdate(func(books []models.Book) { snapshots = append(snapshots, books) })
	require.NoError(t, p.Start(ctx))
	defer p.Close()

	require.Len(t, snapshots, 1)
	assert.Equal(t, []string{"First", "Second"}, titles(snapshots[0]))

	// A later snapshot wins completely: no merge artifacts from the first.
	require.NoError(t, mem.Delete(ctx, store.Books, "1"))
	require.NoError(t, mem.Write(ctx, store.Books, "3", bookFields("Third", "c2", 0, 0)))

	last := snapshots[len(snapshots)-1]
	assert.Equal(t, []string{"Second", "Third"}, titles(last))
	assert.Equal(t, []string{"Second", "Third"}, titles(p.Books()))
}

func TestProjectionTopByMetric(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	views := map[string]int64{"1": 7, "2": 2, "3": 9, "4": 5}
	for id, v := range views {
		require.NoError(t, mem.Write(ctx, store.Books, id, bookFields("Book "+id, "c1", v, 0)))
	}

	p := NewProjection(mem, TopByMetric(MetricViews, 2))
	require.NoError(t, p.Start(ctx))
	defer p.Close()

	got := p.Books()
	require.Len(t, got, 2)
	// Ascending by the metric, holding only the highest values.
	assert.Equal(t, int64(7), got[0].ViewsCount)
	assert.Equal(t, int64(9), got[1].ViewsCount)

	// Every returned metric value dominates every excluded one.
	returned := map[string]bool{}
	minReturned := got[0].ViewsCount
	for _, b := range got {
		returned[b.ID] = true
		if b.ViewsCount < minReturned {
			minReturned = b.ViewsCount
		}
	}
	for id, v := range views {
		if !returned[id] {
			assert.LessOrEqual(t, v, minReturned)
		}
	}
}

func TestProjectionByCategory(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Write(ctx, store.Books, "1", bookFields("A", "history", 0, 0)))
	require.NoError(t, mem.Write(ctx, store.Books, "2", bookFields("B", "science", 0, 0)))
	require.NoError(t, mem.Write(ctx, store.Books, "3", bookFields("C", "history", 0, 0)))

	p := NewProjection(mem, ByCategory("history"))
	require.NoError(t, p.Start(ctx))
	defer p.Close()
	assert.Equal(t, []string{"A", "C"}, titles(p.Books()))

	// An id matching nothing yields an empty list, not an error.
	empty := NewProjection(mem, ByCategory("no-such-category"))
	require.NoError(t, empty.Start(ctx))
	defer empty.Close()
	assert.Empty(t, empty.Books())
}

func TestProjectionSkipsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Write(ctx, store.Books, "1", bookFields("Good", "c1", 0, 0)))
	require.NoError(t, mem.Write(ctx, store.Books, "2", map[string]any{"categoryId": "c1"})) // no title
	require.NoError(t, mem.Write(ctx, store.Books, "3", map[string]any{
		"title":      "Bad counter",
		"viewsCount": "not-a-number-type",
	}))

	p := NewProjection(mem, AllBooks())
	require.NoError(t, p.Start(ctx))
	defer p.Close()

	assert.Equal(t, []string{"Good"}, titles(p.Books()))
}

func TestProjectionSyncLostKeepsLastGoodList(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Write(ctx, store.Books, "1", bookFields("Kept", "c1", 0, 0)))

	p := NewProjection(mem, AllBooks())
	var lost error
	p.OnSyncLost(func(err error) { lost = err })
	require.NoError(t, p.Start(ctx))
	defer p.Close()

	mem.FailSubscriptions(store.Books, errors.New("connection reset"))

	require.Error(t, lost)
	assert.ErrorIs(t, lost, store.ErrSyncLost)
	assert.Equal(t, []string{"Kept"}, titles(p.Books()), "list survives a lost subscription")
}

func TestProjectionCloseStopsCallbacks(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Write(ctx, store.Books, "1", bookFields("One", "c1", 0, 0)))

	p := NewProjection(mem, AllBooks())
	calls := 0
	p.OnUpdate(func([]models.Book) { calls++ })
	require.NoError(t, p.Start(ctx))
	require.Equal(t, 1, calls)

	require.NoError(t, p.Close())
	require.NoError(t, mem.Write(ctx, store.Books, "2", bookFields("Two", "c1", 0, 0)))
	assert.Equal(t, 1, calls, "no deliveries after Close")
}

func TestDecodeBookCounters(t *testing.T) {
	doc := store.Document{ID: "1", Fields: map[string]any{"title": "T"}}
	book, err := DecodeBook(doc)
	require.NoError(t, err)
	assert.Zero(t, book.ViewsCount)
	assert.Zero(t, book.DownloadsCount)

	doc.Fields["viewsCount"] = int32(4)
	doc.Fields["downloadsCount"] = float64(2)
	book, err = DecodeBook(doc)
	require.NoError(t, err)
	assert.Equal(t, int64(4), book.ViewsCount)
	assert.Equal(t, int64(2), book.DownloadsCount)
}
