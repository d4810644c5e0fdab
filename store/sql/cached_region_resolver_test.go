package sqlstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-mailbox/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type countingRegionResolver struct {
	mu      sync.Mutex
	calls   int
	regions map[string]core.Region
}

func (r *countingRegionResolver) ResolveRegion(_ context.Context, name string) (core.Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	region, ok := r.regions[name]
	if !ok {
		return core.Region{}, core.ErrRegionNotFound
	}
	return region, nil
}

func (r *countingRegionResolver) set(region core.Region) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regions[region.Name] = region
}

func (r *countingRegionResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestCachedRegionResolver_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	base := &countingRegionResolver{regions: map[string]core.Region{
		"us": {Name: "us", Address: "http://us.example.test"},
	}}
	resolver, err := NewCachedRegionResolver(base, newTestRegionCacheService(t))
	if err != nil {
		t.Fatalf("new cached resolver: %v", err)
	}

	for i := 0; i < 3; i++ {
		region, err := resolver.ResolveRegion(ctx, "us")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if region.Address != "http://us.example.test" {
			t.Fatalf("unexpected region %#v", region)
		}
	}
	if base.callCount() != 1 {
		t.Fatalf("expected one base lookup, got %d", base.callCount())
	}

	base.set(core.Region{Name: "us", Address: "http://us2.example.test"})
	if err := resolver.Invalidate(ctx, "us"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	region, err := resolver.ResolveRegion(ctx, "us")
	if err != nil {
		t.Fatalf("resolve after invalidate: %v", err)
	}
	if region.Address != "http://us2.example.test" {
		t.Fatalf("expected refreshed region, got %#v", region)
	}
	if base.callCount() != 2 {
		t.Fatalf("expected a second base lookup, got %d", base.callCount())
	}
}

func TestCachedRegionResolver_PropagatesBaseErrors(t *testing.T) {
	base := &countingRegionResolver{regions: map[string]core.Region{}}
	resolver, err := NewCachedRegionResolver(base, newTestRegionCacheService(t))
	if err != nil {
		t.Fatalf("new cached resolver: %v", err)
	}
	_, err = resolver.ResolveRegion(context.Background(), "eu")
	if !errors.Is(err, core.ErrRegionNotFound) {
		t.Fatalf("expected base error propagation, got %v", err)
	}
	if _, err := resolver.ResolveRegion(context.Background(), " "); err == nil {
		t.Fatalf("expected blank region name to fail")
	}
}

func TestRegionCacheKey_EscapesName(t *testing.T) {
	key, err := RegionCacheKey("eu/west 1")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if !strings.HasPrefix(key, "go-mailbox::region::v1::") {
		t.Fatalf("unexpected key prefix %q", key)
	}
	if strings.Contains(key, "/") || strings.Contains(key, " ") {
		t.Fatalf("expected escaped key, got %q", key)
	}
}

func TestNewCachedRegionResolver_RequiresDependencies(t *testing.T) {
	if _, err := NewCachedRegionResolver(nil, newTestRegionCacheService(t)); err == nil {
		t.Fatalf("expected missing base resolver to fail")
	}
	if _, err := NewCachedRegionResolver(&countingRegionResolver{}, nil); err == nil {
		t.Fatalf("expected missing cache service to fail")
	}
}

func newTestRegionCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}
