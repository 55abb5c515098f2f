package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assetforge/code-allocator/models"
	"github.com/assetforge/code-allocator/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLockTimeout bounds the wait for the counter row lock when no
// explicit timeout is configured.
const DefaultLockTimeout = 3 * time.Second

// SequenceCounterRepositoryImpl implements SequenceCounterRepository
type SequenceCounterRepositoryImpl struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewSequenceCounterRepository creates a new sequence counter repository
func NewSequenceCounterRepository(db *gorm.DB, lockTimeout time.Duration) SequenceCounterRepository {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &SequenceCounterRepositoryImpl{db: db, lockTimeout: lockTimeout}
}

func (r *SequenceCounterRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// Get returns the counter row for the pair, or nil when absent.
func (r *SequenceCounterRepositoryImpl) Get(ctx context.Context, tenantID, categoryID uint) (*models.SequenceCounter, error) {
	db := r.getDB(ctx)

	var row models.SequenceCounter
	err := db.Where("tenant_id = ? AND category_id = ?", tenantID, categoryID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load sequence counter (%d, %d): %w", tenantID, categoryID, err)
	}

	return &row, nil
}

// GetOrCreate returns the existing row or creates one with NextNumber = 1.
// The insert is ON CONFLICT DO NOTHING, so two callers racing on first use
// both end up observing the same single row.
func (r *SequenceCounterRepositoryImpl) GetOrCreate(ctx context.Context, tenantID, categoryID uint) (*models.SequenceCounter, error) {
	db := r.getDB(ctx)

	counter := models.SequenceCounter{
		TenantID:   tenantID,
		CategoryID: categoryID,
		NextNumber: 1,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
		return nil, fmt.Errorf("failed to create sequence counter (%d, %d): %w", tenantID, categoryID, err)
	}

	row, err := r.Get(ctx, tenantID, categoryID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("sequence counter (%d, %d) missing after upsert", tenantID, categoryID)
	}
	return row, nil
}

// LockAndIncrement allocates the next number for the pair. It must run inside
// an ambient transaction: the exclusive row lock is what serializes
// concurrent reservations for the same pair, and it has to be held until the
// caller's reservation insert commits or rolls back together with the
// increment. Locks scope to one counter row, so different pairs never
// contend.
func (r *SequenceCounterRepositoryImpl) LockAndIncrement(ctx context.Context, tenantID, categoryID uint) (uint64, error) {
	tx, ok := ctx.Value(TxContextKey).(*gorm.DB)
	if !ok || tx == nil {
		return 0, ErrMissingTransaction
	}

	// Bound the lock wait. SET LOCAL scopes the setting to this transaction.
	if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())).Error; err != nil {
		return 0, fmt.Errorf("failed to set lock timeout: %w", err)
	}

	// Lazy creation on first allocation for the pair.
	counter := models.SequenceCounter{
		TenantID:   tenantID,
		CategoryID: categoryID,
		NextNumber: 1,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
		return 0, fmt.Errorf("failed to create sequence counter (%d, %d): %w", tenantID, categoryID, err)
	}

	var locked models.SequenceCounter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND category_id = ?", tenantID, categoryID).
		First(&locked).Error
	if err != nil {
		if isSQLState(err, pgLockNotAvailable) {
			return 0, ErrLockTimeout
		}
		return 0, fmt.Errorf("failed to lock sequence counter (%d, %d): %w", tenantID, categoryID, err)
	}

	allocated := locked.NextNumber
	err = tx.Model(&models.SequenceCounter{}).
		Where("tenant_id = ? AND category_id = ?", tenantID, categoryID).
		Updates(map[string]any{
			"next_number": gorm.Expr("next_number + 1"),
			"updated_at":  utils.UTCNow(),
		}).Error
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence counter (%d, %d): %w", tenantID, categoryID, err)
	}

	return allocated, nil
}
