package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-mailbox/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegionStore keeps the region name to base address directory that the
// executor resolves destinations against.
type RegionStore struct {
	db   *bun.DB
	repo repository.Repository[*regionRecord]
}

func NewRegionStore(db *bun.DB) (*RegionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*regionRecord](db, regionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid region repository wiring: %w", err)
		}
	}
	return &RegionStore{db: db, repo: repo}, nil
}

func (s *RegionStore) Upsert(ctx context.Context, region core.Region) (core.Region, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.Region{}, fmt.Errorf("sqlstore: region store is not configured")
	}
	if err := validateRegion(region); err != nil {
		return core.Region{}, err
	}
	now := time.Now().UTC()
	record := newRegionRecord(region, now)

	existing, err := s.find(ctx, record.Name)
	switch {
	case err == nil:
		_, err = s.db.NewUpdate().
			Model((*regionRecord)(nil)).
			Set("address = ?", record.Address).
			Set("category = ?", record.Category).
			Set("updated_at = ?", now).
			Where("id = ?", existing.ID).
			Exec(ctx)
		if err != nil {
			return core.Region{}, err
		}
	case errors.Is(err, core.ErrRegionNotFound):
		record.ID = uuid.NewString()
		if _, err := s.repo.Create(ctx, record); err != nil {
			return core.Region{}, err
		}
	default:
		return core.Region{}, err
	}
	return record.toDomain(), nil
}

func (s *RegionStore) Get(ctx context.Context, name string) (core.Region, error) {
	if s == nil || s.db == nil {
		return core.Region{}, fmt.Errorf("sqlstore: region store is not configured")
	}
	record, err := s.find(ctx, strings.TrimSpace(name))
	if err != nil {
		return core.Region{}, err
	}
	return record.toDomain(), nil
}

func (s *RegionStore) List(ctx context.Context) ([]core.Region, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: region store is not configured")
	}
	var records []regionRecord
	if err := s.db.NewSelect().Model(&records).OrderExpr("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	regions := make([]core.Region, 0, len(records))
	for i := range records {
		regions = append(regions, records[i].toDomain())
	}
	return regions, nil
}

func (s *RegionStore) ResolveRegion(ctx context.Context, name string) (core.Region, error) {
	return s.Get(ctx, name)
}

func (s *RegionStore) find(ctx context.Context, name string) (*regionRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("sqlstore: %w: region name is required", core.ErrInvalidInput)
	}
	record := &regionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", core.ErrRegionNotFound, name)
		}
		return nil, err
	}
	return record, nil
}

func validateRegion(region core.Region) error {
	if strings.TrimSpace(region.Name) == "" {
		return fmt.Errorf("sqlstore: %w: region name is required", core.ErrInvalidInput)
	}
	if strings.TrimSpace(region.Address) == "" {
		return fmt.Errorf("sqlstore: %w: region address is required", core.ErrInvalidInput)
	}
	return nil
}
