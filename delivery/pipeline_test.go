package delivery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/bookapp/counter"
	"github.com/openshelf/bookapp/models"
	"github.com/openshelf/bookapp/store"
)

func TestFormatSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{2097152, "2.00 MB"},
		{1536, "1.50 KB"},
		{512, "512.00 bytes"},
		{0, "0.00 bytes"},
		{1024, "1.00 KB"},
		{1048576, "1.00 MB"},
		{3407872, "3.25 MB"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatSize(c.bytes), "FormatSize(%d)", c.bytes)
	}
}

func newTestPipeline(t *testing.T, maxBytes int64) (*Pipeline, *store.Memory, *store.MemoryBlob, string) {
	t.Helper()
	mem := store.NewMemory()
	blob := store.NewMemoryBlob()
	dir := t.TempDir()
	u := counter.New(mem)
	return NewPipeline(blob, u, maxBytes, dir), mem, blob, dir
}

func downloadsCount(t *testing.T, mem *store.Memory, id string) int64 {
	t.Helper()
	doc, err := mem.ReadOnce(context.Background(), store.Books, id)
	require.NoError(t, err)
	n, _ := doc.Fields[models.FieldDownloadsCount].(int64)
	return n
}

func TestFetchSize(t *testing.T) {
	p, _, blob, _ := newTestPipeline(t, 0)
	blob.Store("books/a.pdf", make([]byte, 1536))

	size, err := p.FetchSize(context.Background(), "books/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "1.50 KB", size)
}

func TestContentURLResolvedPerCall(t *testing.T) {
	p, _, blob, _ := newTestPipeline(t, 0)
	blob.Store("books/a.pdf", []byte("%PDF"))

	url, err := p.ContentURL(context.Background(), "books/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "mem://books/a.pdf", url)

	_, err = p.ContentURL(context.Background(), "books/missing.pdf")
	assert.Error(t, err)
}

func TestFetchFullDocumentEnforcesCeiling(t *testing.T) {
	p, _, blob, _ := newTestPipeline(t, 16)
	blob.Store("books/big.pdf", make([]byte, 17))

	_, err := p.FetchFullDocument(context.Background(), "books/big.pdf")
	assert.ErrorIs(t, err, store.ErrSizeExceeded)

	blob.Store("books/ok.pdf", make([]byte, 16))
	data, err := p.FetchFullDocument(context.Background(), "books/ok.pdf")
	require.NoError(t, err)
	assert.Len(t, data, 16)
}

func TestFetchFirstPagePreviewRejectsGarbage(t *testing.T) {
	p, _, blob, _ := newTestPipeline(t, 0)
	blob.Store("books/junk.pdf", []byte("this is not a pdf"))

	_, err := p.FetchFirstPagePreview(context.Background(), "books/junk.pdf")
	assert.Error(t, err, "decode failure is reported per call")
}

func TestDownloadAndPersist(t *testing.T) {
	ctx := context.Background()
	p, mem, blob, dir := newTestPipeline(t, 0)
	content := []byte("%PDF-fake-content")
	blob.Store("books/b1.pdf", content)
	require.NoError(t, mem.Write(ctx, store.Books, "b1", map[string]any{
		"title":                    "T",
		models.FieldDownloadsCount: int64(4),
	}))

	path, err := p.DownloadAndPersist(ctx, "books/b1.pdf", "b1")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".pdf"))
	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, saved)

	assert.Equal(t, int64(5), downloadsCount(t, mem, "b1"), "incremented after the write landed")
}

func TestDownloadSizeExceededLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	p, mem, blob, dir := newTestPipeline(t, 8)
	blob.Store("books/big.pdf", make([]byte, 9))
	require.NoError(t, mem.Write(ctx, store.Books, "b1", map[string]any{
		"title":                    "T",
		models.FieldDownloadsCount: int64(4),
	}))

	_, err := p.DownloadAndPersist(ctx, "books/big.pdf", "b1")
	assert.ErrorIs(t, err, store.ErrSizeExceeded)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no file created")
	assert.Equal(t, int64(4), downloadsCount(t, mem, "b1"), "counter untouched")
}

func TestDownloadPersistFailureSkipsIncrement(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	blob := store.NewMemoryBlob()
	blob.Store("books/b1.pdf", []byte("content"))
	require.NoError(t, mem.Write(ctx, store.Books, "b1", map[string]any{
		"title":                    "T",
		models.FieldDownloadsCount: int64(4),
	}))

	// A regular file where the downloads directory should be makes the
	// directory creation fail.
	blocked := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))
	p := NewPipeline(blob, counter.New(mem), 0, blocked)

	_, err := p.DownloadAndPersist(ctx, "books/b1.pdf", "b1")
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.Equal(t, int64(4), downloadsCount(t, mem, "b1"), "counter untouched")
}

func TestReadingSession(t *testing.T) {
	s := NewReadingSession(10)
	current, total := s.Position()
	assert.Equal(t, 1, current)
	assert.Equal(t, 10, total)

	s.PageChanged(4)
	current, _ = s.Position()
	assert.Equal(t, 5, current)

	s.PageChanged(99)
	current, _ = s.Position()
	assert.Equal(t, 10, current, "clamped to the last page")

	s.PageChanged(-3)
	current, _ = s.Position()
	assert.Equal(t, 1, current)
}
