package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/car-marketplace/internal/core/domain/listing"
	"github.com/avatarctic/car-marketplace/internal/core/ports"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/cache"
)

// Cache key layout. The list prefixes are cleared wholesale on every write.
const (
	listingKeyPrefix   = "listing:id:"
	listingsPagePrefix = "listings:page:"
	filterOptionsKey   = "filters:options"

	listingsInvalidation = "listings:"
	filtersInvalidation  = "filters:"
)

func listingKey(id uuid.UUID) string { return listingKeyPrefix + id.String() }

// cacheSetSilently stores v and only logs failures; the cache never fails a read path.
func cacheSetSilently(c ports.Cache, ctx context.Context, logger *logrus.Logger, key string, v any) {
	if c == nil {
		return
	}
	if err := c.Set(ctx, key, v); err != nil && logger != nil {
		logger.WithField("key", key).WithError(err).Error("failed to cache value")
	}
}

// loadWithSingleflight serves key from the cache, otherwise coalesces
// concurrent loads of the same key and caches the loader's result.
// Callers that shared a load each get their own copy, so they may mutate it.
func loadWithSingleflight[T any](sf *singleflight.Group, c ports.Cache, ctx context.Context, logger *logrus.Logger, key string, loader func() (T, error)) (T, error) {
	if v, ok := cachedValue[T](c, ctx, logger, key); ok {
		return v, nil
	}
	res, err, shared := sf.Do(key, func() (any, error) {
		if v, ok := cachedValue[T](c, ctx, logger, key); ok {
			return v, nil
		}
		v, err := loader()
		if err != nil {
			return nil, err
		}
		cacheSetSilently(c, ctx, logger, key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected type from singleflight result")
	}
	if shared {
		return cloneValue(v)
	}
	return v, nil
}

// cloneValue deep-copies v through the same JSON form the cache stores.
func cloneValue[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("failed to copy loaded value: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to copy loaded value: %w", err)
	}
	return out, nil
}

func cachedValue[T any](c ports.Cache, ctx context.Context, logger *logrus.Logger, key string) (T, bool) {
	v, ok, err := cache.GetJSON[T](ctx, c, key)
	if err != nil {
		if logger != nil {
			logger.WithField("key", key).WithError(err).Warn("discarding undecodable cache entry")
		}
		return v, false
	}
	return v, ok
}

// CachingListingRepository decorates a ListingRepository with cache-aside.
type CachingListingRepository struct {
	inner  ports.ListingRepository
	cache  ports.Cache
	logger *logrus.Logger
	sf     singleflight.Group
}

func NewCachingListingRepository(inner ports.ListingRepository, c ports.Cache, logger *logrus.Logger) ports.ListingRepository {
	return &CachingListingRepository{inner: inner, cache: c, logger: logger}
}

func (c *CachingListingRepository) invalidateLists(ctx context.Context) {
	if c.cache == nil {
		return
	}
	c.cache.Clear(ctx, listingsInvalidation)
	c.cache.Clear(ctx, filtersInvalidation)
}

func (c *CachingListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	if err := c.inner.Create(ctx, l); err != nil {
		return err
	}
	cacheSetSilently(c.cache, ctx, c.logger, listingKey(l.ID), l)
	c.invalidateLists(ctx)
	return nil
}

func (c *CachingListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	return loadWithSingleflight(&c.sf, c.cache, ctx, c.logger, listingKey(id), func() (*listing.Listing, error) {
		return c.inner.GetByID(ctx, id)
	})
}

func (c *CachingListingRepository) Update(ctx context.Context, l *listing.Listing) error {
	if err := c.inner.Update(ctx, l); err != nil {
		return err
	}
	// Overwrite cache
	cacheSetSilently(c.cache, ctx, c.logger, listingKey(l.ID), l)
	c.invalidateLists(ctx)
	return nil
}

func (c *CachingListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.Clear(ctx, listingKey(id))
	}
	c.invalidateLists(ctx)
	return nil
}

func (c *CachingListingRepository) Search(ctx context.Context, f *listing.Filter) (*listing.Page, error) {
	return loadWithSingleflight(&c.sf, c.cache, ctx, c.logger, listingsPagePrefix+f.CacheKey(), func() (*listing.Page, error) {
		return c.inner.Search(ctx, f)
	})
}

func (c *CachingListingRepository) FilterOptions(ctx context.Context) (*listing.FilterOptions, error) {
	return loadWithSingleflight(&c.sf, c.cache, ctx, c.logger, filterOptionsKey, func() (*listing.FilterOptions, error) {
		return c.inner.FilterOptions(ctx)
	})
}
