package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assetforge/code-allocator/models"
	"github.com/assetforge/code-allocator/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CodeReservationRepositoryImpl implements CodeReservationRepository interface
type CodeReservationRepositoryImpl struct {
	*BaseRepository[models.CodeReservation, models.CodeReservationFilter]
}

// NewCodeReservationRepository creates a new code reservation repository
func NewCodeReservationRepository(db *gorm.DB) CodeReservationRepository {
	return &CodeReservationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CodeReservation, models.CodeReservationFilter](db),
	}
}

// Save inserts a new reservation. A unique violation on the code column is
// reported as ErrDuplicateCode so the flow can roll the whole reserve
// transaction back, sequence increment included.
func (r *CodeReservationRepositoryImpl) Save(ctx context.Context, reservation *models.CodeReservation) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Create(reservation).Error
	if err != nil {
		if isSQLState(err, pgUniqueViolation) {
			err = fmt.Errorf("%w: %s", ErrDuplicateCode, reservation.Code)
			return err
		}
		err = fmt.Errorf("failed to save code reservation: %w", err)
		return err
	}

	return nil
}

// ByUUID retrieves a reservation by its public identifier
func (r *CodeReservationRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.CodeReservation, error) {
	db := r.getDB(ctx)

	var row models.CodeReservation
	if err := db.Where("uuid = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find reservation by UUID %s: %w", id, err)
	}
	return &row, nil
}

// ByCode retrieves a reservation by its display code
func (r *CodeReservationRepositoryImpl) ByCode(ctx context.Context, code string) (*models.CodeReservation, error) {
	db := r.getDB(ctx)

	var row models.CodeReservation
	if err := db.Where("code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find reservation by code %s: %w", code, err)
	}
	return &row, nil
}

// Confirm flips the reservation to confirmed and binds the record id. The
// WHERE clause only matches unconfirmed rows, so a concurrent confirm race
// has exactly one winner; losers get ErrNotPending and must re-read to
// classify what happened.
func (r *CodeReservationRepositoryImpl) Confirm(ctx context.Context, id uint, linkedRecordID int64) error {
	db := r.getDB(ctx)

	res := db.Model(&models.CodeReservation{}).
		Where("id = ? AND confirmed = ?", id, false).
		Updates(map[string]any{
			"confirmed":        true,
			"linked_record_id": linkedRecordID,
			"updated_at":       utils.UTCNow(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to confirm reservation %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

// DeleteExpiredUnconfirmed purges reservations whose TTL lapsed without
// confirmation. Confirmed rows are untouchable here regardless of expires_at.
func (r *CodeReservationRepositoryImpl) DeleteExpiredUnconfirmed(ctx context.Context, now time.Time) (int64, error) {
	db := r.getDB(ctx)

	res := db.Where("confirmed = ? AND expires_at < ?", false, now).
		Delete(&models.CodeReservation{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired reservations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *CodeReservationRepositoryImpl) applyFilter(query *gorm.DB, filter models.CodeReservationFilter) *gorm.DB {
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Code != nil {
		query = query.Where("code = ?", *filter.Code)
	}
	if filter.Confirmed != nil {
		query = query.Where("confirmed = ?", *filter.Confirmed)
	}
	if filter.RequestedBy != nil {
		query = query.Where("requested_by = ?", *filter.RequestedBy)
	}
	if filter.ExpiresAfter != nil {
		query = query.Where("expires_at > ?", *filter.ExpiresAfter)
	}
	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at < ?", *filter.ExpiresBefore)
	}
	return query
}

// ByFilter retrieves reservations based on filter criteria
func (r *CodeReservationRepositoryImpl) ByFilter(ctx context.Context, filter models.CodeReservationFilter, orderBy string, limit, offset int) ([]*models.CodeReservation, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CodeReservation{}), filter)

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

	var rows []*models.CodeReservation
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find reservations by filter: %w", err)
	}
	return rows, nil
}

// Count returns the number of reservations matching the filter
func (r *CodeReservationRepositoryImpl) Count(ctx context.Context, filter models.CodeReservationFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CodeReservation{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

// Exists checks if any reservation matching the filter exists
func (r *CodeReservationRepositoryImpl) Exists(ctx context.Context, filter models.CodeReservationFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
