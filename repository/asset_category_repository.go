package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/assetforge/code-allocator/models"
	"gorm.io/gorm"
)

// AssetCategoryRepositoryImpl implements AssetCategoryRepository interface
type AssetCategoryRepositoryImpl struct {
	*BaseRepository[models.AssetCategory, models.AssetCategoryFilter]
}

// NewAssetCategoryRepository creates a new asset category repository
func NewAssetCategoryRepository(db *gorm.DB) AssetCategoryRepository {
	return &AssetCategoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AssetCategory, models.AssetCategoryFilter](db),
	}
}

// ByUUID retrieves a category by UUID
func (r *AssetCategoryRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.AssetCategory, error) {
	db := r.getDB(ctx)

	var row models.AssetCategory
	if err := db.Where("uuid = ?", uuid).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find category by UUID %s: %w", uuid, err)
	}
	return &row, nil
}

// ByShortCode retrieves a category by its short code
func (r *AssetCategoryRepositoryImpl) ByShortCode(ctx context.Context, shortCode string) (*models.AssetCategory, error) {
	db := r.getDB(ctx)

	var row models.AssetCategory
	if err := db.Where("short_code = ?", shortCode).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find category by short code %s: %w", shortCode, err)
	}
	return &row, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *AssetCategoryRepositoryImpl) applyFilter(query *gorm.DB, filter models.AssetCategoryFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.ShortCode != nil {
		query = query.Where("short_code = ?", *filter.ShortCode)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves categories based on filter criteria
func (r *AssetCategoryRepositoryImpl) ByFilter(ctx context.Context, filter models.AssetCategoryFilter, orderBy string, limit, offset int) ([]*models.AssetCategory, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.AssetCategory{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.AssetCategory
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find categories by filter: %w", err)
	}
	return rows, nil
}

// Count returns the number of categories matching the filter
func (r *AssetCategoryRepositoryImpl) Count(ctx context.Context, filter models.AssetCategoryFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.AssetCategory{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return count, nil
}

// Exists checks if any category matching the filter exists
func (r *AssetCategoryRepositoryImpl) Exists(ctx context.Context, filter models.AssetCategoryFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
