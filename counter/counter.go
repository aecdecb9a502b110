// Package counter implements the read-then-increment-then-write protocol
// for the per-book views and downloads counts.
//
// The protocol is deliberately not transactional: two clients that read the
// same old value will both write the same new value and one increment is
// lost. That matches the weak consistency the system accepts; the server's
// value is the source of truth and only moves forward. Within one process,
// increments for the same book are serialized so the local race cannot
// happen here, but nothing protects against other processes.
package counter

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/openshelf/bookapp/models"
	"github.com/openshelf/bookapp/store"
)

type Updater struct {
	remote store.Remote

	mu       sync.Mutex
	inflight map[string]*sync.Mutex // one lock per book id
}

func New(remote store.Remote) *Updater {
	return &Updater{remote: remote, inflight: make(map[string]*sync.Mutex)}
}

// IncrementViews adds one view to the book. One call per detail-page open.
func (u *Updater) IncrementViews(ctx context.Context, bookID string) error {
	return u.increment(ctx, bookID, models.FieldViewsCount)
}

// IncrementDownloads adds one download to the book. Called only after a
// download has been persisted.
func (u *Updater) IncrementDownloads(ctx context.Context, bookID string) error {
	return u.increment(ctx, bookID, models.FieldDownloadsCount)
}

func (u *Updater) increment(ctx context.Context, bookID, field string) error {
	lock := u.bookLock(bookID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := u.remote.ReadOnce(ctx, store.Books, bookID)
	if err != nil {
		// A failed read aborts the increment; no retry, no error to the
		// caller. The count is best-effort.
		log.Printf("counter: read %s for %s failed: %v", bookID, field, err)
		return nil
	}
	old := parseCount(doc.Fields[field])
	update := map[string]any{field: old + 1}
	if err := u.remote.UpdateFields(ctx, store.Books, bookID, update); err != nil {
		return fmt.Errorf("increment %s for book %s: %w", field, bookID, err)
	}
	return nil
}

func (u *Updater) bookLock(bookID string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	lock, ok := u.inflight[bookID]
	if !ok {
		lock = &sync.Mutex{}
		u.inflight[bookID] = lock
	}
	return lock
}

// parseCount treats a missing, null, or unparsable counter as 0.
func parseCount(v any) int64 {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
