package sqlstore

import "github.com/goliatone/go-mailbox/core"

var (
	_ core.PayloadStore           = (*PayloadStore)(nil)
	_ RegionDirectory             = (*RegionStore)(nil)
	_ RegionDirectory             = (*CachedRegionResolver)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
	_ core.RegionResolverProvider = (*RepositoryFactory)(nil)
)
