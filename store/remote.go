package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// Collection names used by the application.
const (
	Books      = "books"
	Categories = "categories"
	Users      = "users"
	Comments   = "comments"
	Favorites  = "favorites"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrSyncLost        = errors.New("subscription lost")
	ErrRecordMalformed = errors.New("record malformed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrSizeExceeded    = errors.New("content exceeds size limit")
	ErrWriteFailed     = errors.New("remote write failed")
)

// Document is a record as delivered by the remote store: an opaque id plus
// loosely-typed fields. Callers decode the fields they need and treat a
// decode failure as record-level, never batch-level.
type Document struct {
	ID     string
	Fields map[string]any
}

// Query is one of the three shapes the remote store supports: all documents,
// equality on a named field, or ascending order by a numeric field truncated
// to the last (highest-valued) N records.
type Query struct {
	EqualField string
	EqualValue any

	OrderBy     string
	LimitToLast int
}

// Subscription is a live handle on a continuous query. Close stops delivery;
// no callback runs after Close returns.
type Subscription interface {
	Close() error
}

// Remote is the document-store surface the core components consume. All
// implementations deliver every snapshot as a complete ordered list, never
// a delta, and deliver snapshots for one subscription in order.
type Remote interface {
	// Subscribe registers a continuous query. onSnapshot receives the full
	// ordered result on the initial read and after every change; onError
	// receives a terminal subscription failure (wrapped ErrSyncLost).
	Subscribe(ctx context.Context, collection string, q Query, onSnapshot func([]Document), onError func(error)) (Subscription, error)

	// ReadOnce is a single-shot point read. Returns ErrNotFound for a
	// missing document.
	ReadOnce(ctx context.Context, collection, id string) (Document, error)

	// QueryOnce is a single-shot shaped read.
	QueryOnce(ctx context.Context, collection string, q Query) ([]Document, error)

	// Write replaces (or creates) the whole document.
	Write(ctx context.Context, collection, id string, fields map[string]any) error

	// UpdateFields merges only the given fields into an existing document.
	UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes the document; deleting an absent document is a no-op.
	Delete(ctx context.Context, collection, id string) error
}

// BlobInfo is object metadata from the blob store, fetched without reading
// the content itself.
type BlobInfo struct {
	SizeBytes   int64
	ContentType string
}

// Blob is the binary-object surface: size-capped fetches, uploads, and
// download URLs for PDF content.
type Blob interface {
	Metadata(ctx context.Context, ref string) (BlobInfo, error)

	// GetBytes fetches the full object, failing with ErrSizeExceeded when
	// the stored object is larger than maxBytes.
	GetBytes(ctx context.Context, ref string, maxBytes int64) ([]byte, error)

	// Put stores the object under prefix with a collision-free key derived
	// from the original filename. Returns the object key.
	Put(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error)

	DownloadURL(ctx context.Context, ref string, expiry time.Duration) (string, error)

	Delete(ctx context.Context, ref string) error
}
