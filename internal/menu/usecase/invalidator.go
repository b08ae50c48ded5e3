package usecase

import (
	"context"

	"github.com/fekuna/omnipos-qrmenu/internal/cache"
	"github.com/fekuna/omnipos-qrmenu/internal/events"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
)

// CacheInvalidator drops the cached menu whenever a category or product
// changes. Table events are ignored; table menus resolve the table live.
type CacheInvalidator struct {
	cache *cache.RedisClient
}

func NewCacheInvalidator(redis *cache.RedisClient) *CacheInvalidator {
	return &CacheInvalidator{cache: redis}
}

func (c *CacheInvalidator) Publish(ctx context.Context, e events.Event) error {
	if c.cache == nil {
		return nil
	}
	switch ordering.Kind(e.Kind) {
	case ordering.KindCategory, ordering.KindProduct:
		return c.cache.Delete(ctx, CacheKey)
	}
	return nil
}
