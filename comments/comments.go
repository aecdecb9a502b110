// Package comments attaches user comments to books.
package comments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/bookapp/models"
	"github.com/openshelf/bookapp/store"
)

// ErrNotOwner is returned when a caller tries to delete a comment they did
// not write.
var ErrNotOwner = errors.New("comment belongs to another user")

type Service struct {
	remote store.Remote
}

func NewService(remote store.Remote) *Service {
	return &Service{remote: remote}
}

// Add stores a new comment on the book. Each comment gets its own unique
// id, separate from the author's uid, so one user can comment repeatedly.
func (s *Service) Add(ctx context.Context, uid, bookID, text string) (models.Comment, error) {
	if uid == "" {
		return models.Comment{}, fmt.Errorf("add comment: %w", store.ErrUnauthenticated)
	}
	c := models.Comment{
		ID:        uuid.NewString(),
		BookID:    bookID,
		UID:       uid,
		Text:      text,
		CreatedAt: time.Now().UnixMilli(),
	}
	fields := map[string]any{
		"bookId":    c.BookID,
		"uid":       c.UID,
		"comment":   c.Text,
		"timestamp": c.CreatedAt,
	}
	if err := s.remote.Write(ctx, store.Comments, c.ID, fields); err != nil {
		return models.Comment{}, fmt.Errorf("add comment: %w", err)
	}
	return c, nil
}

// ListForBook returns every comment on the book, single-shot.
func (s *Service) ListForBook(ctx context.Context, bookID string) ([]models.Comment, error) {
	docs, err := s.remote.QueryOnce(ctx, store.Comments, store.Query{EqualField: "bookId", EqualValue: bookID})
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	out := make([]models.Comment, 0, len(docs))
	for _, doc := range docs {
		out = append(out, decodeComment(doc))
	}
	return out, nil
}

// Watch keeps a comment thread live while a detail screen is open. Close
// the returned subscription on teardown.
func (s *Service) Watch(ctx context.Context, bookID string, onChange func([]models.Comment), onError func(error)) (store.Subscription, error) {
	q := store.Query{EqualField: "bookId", EqualValue: bookID}
	return s.remote.Subscribe(ctx, store.Comments, q, func(docs []store.Document) {
		out := make([]models.Comment, 0, len(docs))
		for _, doc := range docs {
			out = append(out, decodeComment(doc))
		}
		onChange(out)
	}, onError)
}

// Delete removes one comment. Only the author may delete their own comment
// unless the caller is an admin. Deleting an absent comment succeeds.
func (s *Service) Delete(ctx context.Context, uid, commentID string, admin bool) error {
	if uid == "" {
		return fmt.Errorf("delete comment: %w", store.ErrUnauthenticated)
	}
	doc, err := s.remote.ReadOnce(ctx, store.Comments, commentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if !admin && decodeComment(doc).UID != uid {
		return fmt.Errorf("delete comment %s: %w", commentID, ErrNotOwner)
	}
	if err := s.remote.Delete(ctx, store.Comments, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func decodeComment(doc store.Document) models.Comment {
	c := models.Comment{ID: doc.ID}
	c.BookID, _ = doc.Fields["bookId"].(string)
	c.UID, _ = doc.Fields["uid"].(string)
	c.Text, _ = doc.Fields["comment"].(string)
	if ts, ok := doc.Fields["timestamp"].(int64); ok {
		c.CreatedAt = ts
	}
	return c
}
