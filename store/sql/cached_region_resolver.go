package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-mailbox/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const regionCacheKeyPrefix = "go-mailbox::region::v1"

// CachedRegionResolver fronts a resolver with a read-through cache. Every
// delivery resolves its region, so lookups are kept off the database.
type CachedRegionResolver struct {
	base  core.DestinationResolver
	cache repositorycache.CacheService
}

func NewCachedRegionResolver(
	base core.DestinationResolver,
	cacheService repositorycache.CacheService,
) (*CachedRegionResolver, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base region resolver is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: region cache service is required")
	}
	return &CachedRegionResolver{base: base, cache: cacheService}, nil
}

// RegionCacheKey returns go-mailbox::region::v1::<name> with the name
// URL-path escaped.
func RegionCacheKey(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("sqlstore: %w: region name is required", core.ErrInvalidInput)
	}
	return regionCacheKeyPrefix + "::" + url.PathEscape(name), nil
}

func (r *CachedRegionResolver) ResolveRegion(ctx context.Context, name string) (core.Region, error) {
	if r == nil || r.base == nil || r.cache == nil {
		return core.Region{}, fmt.Errorf("sqlstore: cached region resolver is not configured")
	}
	cacheKey, err := RegionCacheKey(name)
	if err != nil {
		return core.Region{}, err
	}
	name = strings.TrimSpace(name)
	return repositorycache.GetOrFetch(ctx, r.cache, cacheKey, func(ctx context.Context) (core.Region, error) {
		return r.base.ResolveRegion(ctx, name)
	})
}

// Upsert writes through to the base resolver and drops the cached entry so
// the next delivery sees the new address.
func (r *CachedRegionResolver) Upsert(ctx context.Context, region core.Region) (core.Region, error) {
	if r == nil || r.base == nil || r.cache == nil {
		return core.Region{}, fmt.Errorf("sqlstore: cached region resolver is not configured")
	}
	writer, ok := r.base.(interface {
		Upsert(ctx context.Context, region core.Region) (core.Region, error)
	})
	if !ok {
		return core.Region{}, fmt.Errorf("sqlstore: base region resolver %T does not accept upserts", r.base)
	}
	saved, err := writer.Upsert(ctx, region)
	if err != nil {
		return core.Region{}, err
	}
	if err := r.Invalidate(ctx, saved.Name); err != nil {
		return saved, fmt.Errorf("sqlstore: invalidate region %q: %w", saved.Name, err)
	}
	return saved, nil
}

// Invalidate drops a cached region.
func (r *CachedRegionResolver) Invalidate(ctx context.Context, name string) error {
	if r == nil || r.cache == nil {
		return fmt.Errorf("sqlstore: cached region resolver is not configured")
	}
	cacheKey, err := RegionCacheKey(name)
	if err != nil {
		return err
	}
	return r.cache.Delete(ctx, cacheKey)
}
