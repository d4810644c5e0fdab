package sqlstore

import (
	"context"
	"fmt"

	"github.com/goliatone/go-mailbox/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

// RegionDirectory resolves region names and accepts upserts.
type RegionDirectory interface {
	core.DestinationResolver
	Upsert(ctx context.Context, region core.Region) (core.Region, error)
}

type RepositoryFactory struct {
	db *bun.DB

	regionCache repositorycache.CacheService

	payloadStore *PayloadStore
	regionStore  *RegionStore
	regions      RegionDirectory
}

type FactoryOption func(*RepositoryFactory)

// WithRegionCache fronts region lookups with a read-through cache. Upserts
// through Regions invalidate the cached entry.
func WithRegionCache(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.regionCache = cacheService
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.payloadStore != nil && f.regionStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) PayloadStore() core.PayloadStore {
	if f == nil || f.payloadStore == nil {
		return nil
	}
	return f.payloadStore
}

// SQLPayloadStore exposes the concrete store for callers that need Count.
func (f *RepositoryFactory) SQLPayloadStore() *PayloadStore {
	if f == nil {
		return nil
	}
	return f.payloadStore
}

func (f *RepositoryFactory) RegionStore() *RegionStore {
	if f == nil {
		return nil
	}
	return f.regionStore
}

// Regions returns the region directory the service should resolve and
// upsert through: the cached resolver when a cache is configured, otherwise
// the region store.
func (f *RepositoryFactory) Regions() RegionDirectory {
	if f == nil || f.regions == nil {
		return nil
	}
	return f.regions
}

func (f *RepositoryFactory) RegionResolver() core.DestinationResolver {
	regions := f.Regions()
	if regions == nil {
		return nil
	}
	return regions
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	payloadStore, err := NewPayloadStore(f.db)
	if err != nil {
		return err
	}
	f.payloadStore = payloadStore
	regionStore, err := NewRegionStore(f.db)
	if err != nil {
		return err
	}
	f.regionStore = regionStore
	f.regions = regionStore
	if f.regionCache != nil {
		cached, err := NewCachedRegionResolver(regionStore, f.regionCache)
		if err != nil {
			return err
		}
		f.regions = cached
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
