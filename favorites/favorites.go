// Package favorites tracks each user's set of favorited books.
package favorites

import (
	"context"
	"fmt"
	"time"

	"github.com/openshelf/bookapp/store"
)

// Manager reads and writes favorite entries. Membership is the existence of
// the entry and nothing else, so both Add and Remove are idempotent.
type Manager struct {
	remote store.Remote
}

func NewManager(remote store.Remote) *Manager {
	return &Manager{remote: remote}
}

// entryID keys a favorite by owner and book, so re-adding overwrites the
// existing entry in place.
func entryID(uid, bookID string) string {
	return uid + ":" + bookID
}

// Add marks the book as favorited for the user. Re-adding an existing
// favorite overwrites it with a fresh timestamp.
func (m *Manager) Add(ctx context.Context, uid, bookID string) error {
	if uid == "" {
		return fmt.Errorf("add favorite: %w", store.ErrUnauthenticated)
	}
	fields := map[string]any{
		"uid":       uid,
		"bookId":    bookID,
		"timestamp": time.Now().UnixMilli(),
	}
	if err := m.remote.Write(ctx, store.Favorites, entryID(uid, bookID), fields); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// Remove unmarks the book. Removing an absent entry is a no-op success.
func (m *Manager) Remove(ctx context.Context, uid, bookID string) error {
	if uid == "" {
		return fmt.Errorf("remove favorite: %w", store.ErrUnauthenticated)
	}
	if err := m.remote.Delete(ctx, store.Favorites, entryID(uid, bookID)); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// IsFavorite is a one-shot membership check.
func (m *Manager) IsFavorite(ctx context.Context, uid, bookID string) (bool, error) {
	if uid == "" {
		return false, fmt.Errorf("check favorite: %w", store.ErrUnauthenticated)
	}
	_, err := m.remote.ReadOnce(ctx, store.Favorites, entryID(uid, bookID))
	if err == store.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Watch delivers the current membership state and every later change, so a
// detail view updates when the same user favorites or unfavorites the book
// from another device. Close the returned subscription on teardown.
func (m *Manager) Watch(ctx context.Context, uid, bookID string, onChange func(bool), onError func(error)) (store.Subscription, error) {
	if uid == "" {
		return nil, fmt.Errorf("watch favorite: %w", store.ErrUnauthenticated)
	}
	q := store.Query{EqualField: "_id", EqualValue: entryID(uid, bookID)}
	return m.remote.Subscribe(ctx, store.Favorites, q, func(docs []store.Document) {
		onChange(len(docs) > 0)
	}, onError)
}

// ListBookIDs returns the ids of every book the user has favorited.
func (m *Manager) ListBookIDs(ctx context.Context, uid string) ([]string, error) {
	if uid == "" {
		return nil, fmt.Errorf("list favorites: %w", store.ErrUnauthenticated)
	}
	docs, err := m.remote.QueryOnce(ctx, store.Favorites, store.Query{EqualField: "uid", EqualValue: uid})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if id, _ := doc.Fields["bookId"].(string); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
