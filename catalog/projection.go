// Package catalog keeps a locally materialized view of the remote books
// collection in sync with server-pushed snapshots, and filters it.
package catalog

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/openshelf/bookapp/models"
	"github.com/openshelf/bookapp/store"
)

// Metric is a numeric book field a top-N view can order by.
type Metric string

const (
	MetricViews     Metric = models.FieldViewsCount
	MetricDownloads Metric = models.FieldDownloadsCount
)

type viewKind int

const (
	viewAll viewKind = iota
	viewTopByMetric
	viewByCategory
)

// ViewSpec names which snapshot of the books collection a projection
// subscribes to. It is fixed for the lifetime of the subscription.
type ViewSpec struct {
	kind       viewKind
	metric     Metric
	limit      int
	categoryID string
}

// AllBooks selects every book.
func AllBooks() ViewSpec {
	return ViewSpec{kind: viewAll}
}

// TopByMetric selects the limit highest-valued books by the metric,
// delivered ascending so the best record arrives last.
func TopByMetric(m Metric, limit int) ViewSpec {
	return ViewSpec{kind: viewTopByMetric, metric: m, limit: limit}
}

// ByCategory selects books whose categoryId equals id, exact match only.
func ByCategory(id string) ViewSpec {
	return ViewSpec{kind: viewByCategory, categoryID: id}
}

// Query is the remote query shape this view subscribes with.
func (v ViewSpec) Query() store.Query {
	switch v.kind {
	case viewTopByMetric:
		return store.Query{OrderBy: string(v.metric), LimitToLast: v.limit}
	case viewByCategory:
		return store.Query{EqualField: "categoryId", EqualValue: v.categoryID}
	default:
		return store.Query{}
	}
}

// Projection subscribes to one view of the books collection and keeps an
// ordered local list current. Every snapshot replaces the whole list;
// partial merges are never attempted. On a subscription failure the
// last-known-good list is retained and observers get the error instead.
type Projection struct {
	remote store.Remote
	spec   ViewSpec

	mu         sync.Mutex
	books      []models.Book
	onUpdate   []func([]models.Book)
	onSyncLost []func(error)
	sub        store.Subscription
	closed     bool
}

func NewProjection(remote store.Remote, spec ViewSpec) *Projection {
	return &Projection{remote: remote, spec: spec}
}

// OnUpdate registers an observer called with the complete new list after
// every replacement. Register observers before Start.
func (p *Projection) OnUpdate(fn func([]models.Book)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = append(p.onUpdate, fn)
}

// OnSyncLost registers an observer for subscription failures. The
// projection does not retry; that is the caller's decision.
func (p *Projection) OnSyncLost(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSyncLost = append(p.onSyncLost, fn)
}

// Start establishes the continuous subscription. The initial snapshot is
// delivered before Start returns.
func (p *Projection) Start(ctx context.Context) error {
	sub, err := p.remote.Subscribe(ctx, store.Books, p.spec.Query(), p.applySnapshot, p.reportSyncLost)
	if err != nil {
		return fmt.Errorf("catalog subscribe: %w", err)
	}
	p.mu.Lock()
	p.sub = sub
	if p.closed {
		// Closed while subscribing; tear the new subscription down too.
		p.mu.Unlock()
		sub.Close()
		return nil
	}
	p.mu.Unlock()
	return nil
}

// Books returns a copy of the current list.
func (p *Projection) Books() []models.Book {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Book, len(p.books))
	copy(out, p.books)
	return out
}

// Close tears the subscription down. No observer runs after Close returns.
func (p *Projection) Close() error {
	p.mu.Lock()
	p.closed = true
	sub := p.sub
	p.mu.Unlock()
	if sub != nil {
		return sub.Close()
	}
	return nil
}

// applySnapshot replaces the whole list with the snapshot's contents,
// preserving server order. Malformed records are skipped, never fatal.
func (p *Projection) applySnapshot(docs []store.Document) {
	books := make([]models.Book, 0, len(docs))
	for _, doc := range docs {
		book, err := DecodeBook(doc)
		if err != nil {
			log.Printf("catalog: skipping record %s: %v", doc.ID, err)
			continue
		}
		books = append(books, book)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.books = books
	observers := make([]func([]models.Book), len(p.onUpdate))
	copy(observers, p.onUpdate)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(books)
	}
}

func (p *Projection) reportSyncLost(err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	// Keep p.books as-is: stale data beats no data until the caller
	// re-establishes the subscription.
	observers := make([]func(error), len(p.onSyncLost))
	copy(observers, p.onSyncLost)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(err)
	}
}

// DecodeBook decodes one remote document into a Book. A missing or
// malformed mandatory field fails this record only; callers skip it and
// continue with the rest of the snapshot.
func DecodeBook(doc store.Document) (models.Book, error) {
	if doc.ID == "" {
		return models.Book{}, fmt.Errorf("%w: empty id", store.ErrRecordMalformed)
	}
	title, ok := doc.Fields["title"].(string)
	if !ok || title == "" {
		return models.Book{}, fmt.Errorf("%w: book %s has no title", store.ErrRecordMalformed, doc.ID)
	}
	views, err := countField(doc.Fields, models.FieldViewsCount)
	if err != nil {
		return models.Book{}, fmt.Errorf("%w: book %s: %v", store.ErrRecordMalformed, doc.ID, err)
	}
	downloads, err := countField(doc.Fields, models.FieldDownloadsCount)
	if err != nil {
		return models.Book{}, fmt.Errorf("%w: book %s: %v", store.ErrRecordMalformed, doc.ID, err)
	}
	return models.Book{
		ID:             doc.ID,
		UploaderID:     stringField(doc.Fields, "uid"),
		Title:          title,
		Description:    stringField(doc.Fields, "description"),
		CategoryID:     stringField(doc.Fields, "categoryId"),
		BlobRef:        stringField(doc.Fields, "blobRef"),
		CreatedAt:      int64Field(doc.Fields, "timestamp"),
		ViewsCount:     views,
		DownloadsCount: downloads,
	}, nil
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func int64Field(fields map[string]any, key string) int64 {
	n, _ := asInt64(fields[key])
	return n
}

// countField reads a counter value. Absent or nil counts as 0; a present
// non-numeric value is malformed.
func countField(fields map[string]any, key string) (int64, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := asInt64(v)
	if !ok {
		return 0, fmt.Errorf("field %s is not a number", key)
	}
	return n, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
