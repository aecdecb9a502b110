package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openshelf/bookapp/models"
	"github.com/openshelf/bookapp/store"
)

const categoryCacheTTL = 10 * time.Minute

// Categories resolves category display names by id, with an optional Redis
// cache in front of the store. Category names are immutable after creation
// so a short TTL is plenty.
type Categories struct {
	remote store.Remote
	cache  *redis.Client // nil disables caching
}

func NewCategories(remote store.Remote, cache *redis.Client) *Categories {
	return &Categories{remote: remote, cache: cache}
}

// Name returns the display name for the category id.
func (c *Categories) Name(ctx context.Context, id string) (string, error) {
	key := "category:" + id
	if c.cache != nil {
		if name, err := c.cache.Get(ctx, key).Result(); err == nil {
			return name, nil
		} else if err != redis.Nil {
			log.Printf("categories: cache read failed: %v", err)
		}
	}
	doc, err := c.remote.ReadOnce(ctx, store.Categories, id)
	if err != nil {
		return "", fmt.Errorf("category %s: %w", id, err)
	}
	name, _ := doc.Fields["category"].(string)
	if c.cache != nil && name != "" {
		if err := c.cache.Set(ctx, key, name, categoryCacheTTL).Err(); err != nil {
			log.Printf("categories: cache write failed: %v", err)
		}
	}
	return name, nil
}

// List returns every category.
func (c *Categories) List(ctx context.Context) ([]models.Category, error) {
	docs, err := c.remote.QueryOnce(ctx, store.Categories, store.Query{})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]models.Category, 0, len(docs))
	for _, doc := range docs {
		cat := models.Category{ID: doc.ID}
		cat.Name, _ = doc.Fields["category"].(string)
		cat.UID, _ = doc.Fields["uid"].(string)
		if ts, ok := doc.Fields["timestamp"].(int64); ok {
			cat.CreatedAt = ts
		}
		out = append(out, cat)
	}
	return out, nil
}

// Create adds a category; admin only, enforced by the caller.
func (c *Categories) Create(ctx context.Context, uid, name string) (models.Category, error) {
	if uid == "" {
		return models.Category{}, fmt.Errorf("create category: %w", store.ErrUnauthenticated)
	}
	now := time.Now().UnixMilli()
	cat := models.Category{
		ID:        fmt.Sprintf("%d", now),
		Name:      name,
		UID:       uid,
		CreatedAt: now,
	}
	fields := map[string]any{
		"category":  cat.Name,
		"uid":       cat.UID,
		"timestamp": cat.CreatedAt,
	}
	if err := c.remote.Write(ctx, store.Categories, cat.ID, fields); err != nil {
		return models.Category{}, fmt.Errorf("create category: %w", err)
	}
	return cat, nil
}
