package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/openshelf/bookapp/models"
	"github.com/openshelf/bookapp/store"
)

// Uploader creates catalog entries: PDF bytes go to the blob store, and only
// then is the book document written with zeroed counters. Each step chains on
// the previous one completing; nothing polls for completion. The record holds
// the stable blob ref only; content URLs expire and are resolved per request.
type Uploader struct {
	remote store.Remote
	blob   store.Blob
}

func NewUploader(remote store.Remote, blob store.Blob) *Uploader {
	return &Uploader{remote: remote, blob: blob}
}

// UploadBook stores the content and writes the catalog entry. The book id
// is its creation time in millis, matching every other id in the catalog.
func (u *Uploader) UploadBook(ctx context.Context, uid, title, description, categoryID string, content io.Reader) (models.Book, error) {
	if uid == "" {
		return models.Book{}, fmt.Errorf("upload book: %w", store.ErrUnauthenticated)
	}
	ref, err := u.blob.Put(ctx, "books/", title+".pdf", content, "application/pdf")
	if err != nil {
		return models.Book{}, fmt.Errorf("upload book content: %w", err)
	}

	now := time.Now().UnixMilli()
	book := models.Book{
		ID:          strconv.FormatInt(now, 10),
		UploaderID:  uid,
		Title:       title,
		Description: description,
		CategoryID:  categoryID,
		BlobRef:     ref,
		CreatedAt:   now,
	}
	fields := map[string]any{
		"uid":            book.UploaderID,
		"title":          book.Title,
		"description":    book.Description,
		"categoryId":     book.CategoryID,
		"blobRef":        book.BlobRef,
		"timestamp":      book.CreatedAt,
		"viewsCount":     int64(0),
		"downloadsCount": int64(0),
	}
	if err := u.remote.Write(ctx, store.Books, book.ID, fields); err != nil {
		u.cleanupBlob(ref)
		return models.Book{}, fmt.Errorf("write book record: %w", err)
	}
	return book, nil
}

// DeleteBook removes content first, then the catalog entry, so a half-done
// delete leaves a listed book rather than a dangling reference.
func (u *Uploader) DeleteBook(ctx context.Context, uid, bookID, blobRef string) error {
	if uid == "" {
		return fmt.Errorf("delete book: %w", store.ErrUnauthenticated)
	}
	if blobRef != "" {
		if err := u.blob.Delete(ctx, blobRef); err != nil {
			return fmt.Errorf("delete book content: %w", err)
		}
	}
	if err := u.remote.Delete(ctx, store.Books, bookID); err != nil {
		return fmt.Errorf("delete book record: %w", err)
	}
	return nil
}

// cleanupBlob removes an orphaned upload after a later step failed.
func (u *Uploader) cleanupBlob(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := u.blob.Delete(ctx, ref); err != nil {
		log.Printf("upload: orphaned blob %s not cleaned up: %v", ref, err)
	}
}
