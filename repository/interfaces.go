// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/assetforge/code-allocator/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// TenantRepository defines lookup operations for tenants. It backs the
// TenantLookup collaborator interface consumed by the allocation flow.
type TenantRepository interface {
	Repository[models.Tenant, models.TenantFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Tenant, error)
	ByShortCode(ctx context.Context, shortCode string) (*models.Tenant, error)
}

// AssetCategoryRepository defines lookup operations for asset categories.
type AssetCategoryRepository interface {
	Repository[models.AssetCategory, models.AssetCategoryFilter]
	ByUUID(ctx context.Context, uuid string) (*models.AssetCategory, error)
	ByShortCode(ctx context.Context, shortCode string) (*models.AssetCategory, error)
}

// SequenceCounterRepository defines operations for the per-(tenant, category)
// monotonic counters.
type SequenceCounterRepository interface {
	// Get returns the counter row, or nil when the pair has never allocated.
	Get(ctx context.Context, tenantID, categoryID uint) (*models.SequenceCounter, error)
	// GetOrCreate returns the existing row or atomically creates one with
	// NextNumber = 1. Safe under concurrent first use: the losing inserter
	// observes the winner's row.
	GetOrCreate(ctx context.Context, tenantID, categoryID uint) (*models.SequenceCounter, error)
	// LockAndIncrement allocates the next number for the pair under an
	// exclusive row lock. Requires an ambient transaction in ctx; returns
	// ErrMissingTransaction otherwise and ErrLockTimeout when the bounded
	// lock wait elapses.
	LockAndIncrement(ctx context.Context, tenantID, categoryID uint) (uint64, error)
}

// CodeReservationRepository defines operations for issued code reservations.
type CodeReservationRepository interface {
	Repository[models.CodeReservation, models.CodeReservationFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.CodeReservation, error)
	ByCode(ctx context.Context, code string) (*models.CodeReservation, error)
	// Confirm flips the row to confirmed and binds the record id. Only
	// unconfirmed rows are touched; ErrNotPending is returned when no row
	// was updated so the caller can re-read and classify the cause.
	Confirm(ctx context.Context, id uint, linkedRecordID int64) error
	// DeleteExpiredUnconfirmed removes rows whose TTL lapsed without
	// confirmation and returns the count. Confirmed rows are never deleted,
	// whatever their expires_at says.
	DeleteExpiredUnconfirmed(ctx context.Context, now time.Time) (int64, error)
}
