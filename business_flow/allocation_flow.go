// Package businessflow contains the core business logic for asset-code allocation workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assetforge/code-allocator/app/dto"
	"github.com/assetforge/code-allocator/config"
	"github.com/assetforge/code-allocator/models"
	"github.com/assetforge/code-allocator/repository"
	"github.com/assetforge/code-allocator/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// AllocationFlow handles the complete asset-code allocation business logic
type AllocationFlow interface {
	ReserveCode(ctx context.Context, req *dto.ReserveCodeRequest, metadata *ClientMetadata) (*dto.ReserveCodeResponse, error)
	ValidateCodeForUse(ctx context.Context, req *dto.ValidateCodeRequest, metadata *ClientMetadata) (*dto.ValidateCodeResponse, error)
	ConfirmReservation(ctx context.Context, req *dto.ConfirmReservationRequest, metadata *ClientMetadata) (*dto.ConfirmReservationResponse, error)
	CleanupExpired(ctx context.Context) (*dto.CleanupResponse, error)
}

// AllocationFlowImpl implements the allocation business flow. It holds no
// mutable state across calls; all serialization is delegated to the backing
// store's row locks, so instances can be replicated freely.
type AllocationFlowImpl struct {
	tenantRepo      repository.TenantRepository
	categoryRepo    repository.AssetCategoryRepository
	sequenceRepo    repository.SequenceCounterRepository
	reservationRepo repository.CodeReservationRepository
	db              *gorm.DB

	rc          *redis.Client
	cacheConfig *config.CacheConfig
	allocConfig config.AllocatorConfig
}

// NewAllocationFlow creates a new allocation flow instance
func NewAllocationFlow(
	tenantRepo repository.TenantRepository,
	categoryRepo repository.AssetCategoryRepository,
	sequenceRepo repository.SequenceCounterRepository,
	reservationRepo repository.CodeReservationRepository,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	allocConfig config.AllocatorConfig,
) AllocationFlow {
	return &AllocationFlowImpl{
		tenantRepo:      tenantRepo,
		categoryRepo:    categoryRepo,
		sequenceRepo:    sequenceRepo,
		reservationRepo: reservationRepo,
		db:              db,
		rc:              rc,
		cacheConfig:     cacheConfig,
		allocConfig:     allocConfig,
	}
}

// ReserveCode allocates the next sequence number for the (tenant, category)
// pair, formats the display code and records a pending reservation, all in
// one transaction. If the reservation insert fails, the increment rolls back
// with it, so a number is never burned without a surviving row inside our
// control; numbers lost to a crash after commit show up as gaps, which is
// accepted — uniqueness, not density, is the hard invariant.
func (f *AllocationFlowImpl) ReserveCode(ctx context.Context, req *dto.ReserveCodeRequest, metadata *ClientMetadata) (*dto.ReserveCodeResponse, error) {
	ttl, err := f.resolveTTL(req.TTLSeconds)
	if err != nil {
		return nil, NewBusinessError("RESERVE_CODE_FAILED", "Reserve code failed", err)
	}

	tenantCode, err := f.tenantShortCode(ctx, req.TenantID)
	if err != nil {
		return nil, NewBusinessError("RESERVE_CODE_FAILED", "Reserve code failed", err)
	}
	categoryCode, err := f.categoryShortCode(ctx, req.CategoryID)
	if err != nil {
		return nil, NewBusinessError("RESERVE_CODE_FAILED", "Reserve code failed", err)
	}

	var reservation *models.CodeReservation
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		sequenceNumber, err := f.sequenceRepo.LockAndIncrement(txCtx, req.TenantID, req.CategoryID)
		if err != nil {
			if errors.Is(err, repository.ErrLockTimeout) {
				allocationContentionTotal.Inc()
				return fmt.Errorf("%w: %v", ErrAllocationContention, err)
			}
			return err
		}

		code, err := utils.FormatAssetCode(tenantCode, categoryCode, sequenceNumber)
		if err != nil {
			return err
		}

		now := utils.UTCNow()
		reservation = &models.CodeReservation{
			UUID:           uuid.New(),
			Code:           code,
			TenantID:       req.TenantID,
			CategoryID:     req.CategoryID,
			SequenceNumber: sequenceNumber,
			ReservedAt:     now,
			ExpiresAt:      now.Add(ttl),
			RequestedBy:    req.RequestedBy,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := f.reservationRepo.Save(txCtx, reservation); err != nil {
			if errors.Is(err, repository.ErrDuplicateCode) {
				// Unreachable while sequencing is correct; kept as the last
				// line of defense. Aborting here also rolls the increment
				// back.
				return fmt.Errorf("%w: %s", ErrDuplicateAssetCode, code)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("RESERVE_CODE_FAILED", "Reserve code failed", err)
	}

	reservationsIssuedTotal.WithLabelValues(tenantCode, categoryCode).Inc()

	return &dto.ReserveCodeResponse{
		Code:           reservation.Code,
		SequenceNumber: reservation.SequenceNumber,
		ReservationID:  reservation.UUID.String(),
		ExpiresAt:      reservation.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// ValidateCodeForUse is the read-only check the inventory-creation flow runs
// before committing a new record. It fails closed with a distinct cause per
// condition so the caller can tell "not reserved" from "wrong tenant" from
// "expired" from "already used".
func (f *AllocationFlowImpl) ValidateCodeForUse(ctx context.Context, req *dto.ValidateCodeRequest, metadata *ClientMetadata) (*dto.ValidateCodeResponse, error) {
	row, err := f.reservationRepo.ByCode(ctx, req.Code)
	if err != nil {
		return nil, NewBusinessError("VALIDATE_CODE_FAILED", "Validate code failed", err)
	}
	if row == nil {
		return nil, NewBusinessError("VALIDATE_CODE_FAILED", "Validate code failed",
			fmt.Errorf("%w: %s", ErrCodeNotReserved, req.Code))
	}
	if row.TenantID != req.TenantID {
		return nil, NewBusinessError("VALIDATE_CODE_FAILED", "Validate code failed", ErrWrongTenant)
	}

	now := utils.UTCNow()
	switch row.State(now) {
	case models.ReservationConfirmed:
		return nil, NewBusinessError("VALIDATE_CODE_FAILED", "Validate code failed", ErrAlreadyConfirmed)
	case models.ReservationExpired:
		return nil, NewBusinessError("VALIDATE_CODE_FAILED", "Validate code failed", ErrReservationExpired)
	}

	if req.ReservationID != nil && *req.ReservationID != row.UUID.String() {
		return nil, NewBusinessError("VALIDATE_CODE_FAILED", "Validate code failed", ErrReservationMismatch)
	}

	return &dto.ValidateCodeResponse{
		Reservation: ToReservationDTO(*row, now),
	}, nil
}

// ConfirmReservation permanently binds a pending reservation to the created
// inventory record. It joins the caller's ambient transaction when one is in
// ctx, so "record created" and "code consumed" commit or roll back together.
// Confirming twice with the same record id succeeds silently to tolerate
// client retries; a different record id fails.
func (f *AllocationFlowImpl) ConfirmReservation(ctx context.Context, req *dto.ConfirmReservationRequest, metadata *ClientMetadata) (*dto.ConfirmReservationResponse, error) {
	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		return nil, NewBusinessError("CONFIRM_RESERVATION_FAILED", "Confirm reservation failed",
			fmt.Errorf("%w: %v", ErrReservationNotFound, err))
	}

	var confirmed *models.CodeReservation
	err = repository.WithinTransaction(ctx, f.db, func(txCtx context.Context) error {
		row, err := f.reservationRepo.ByUUID(txCtx, reservationID)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("%w: %s", ErrReservationNotFound, req.ReservationID)
		}

		now := utils.UTCNow()
		switch row.State(now) {
		case models.ReservationConfirmed:
			if row.IsLinkedTo(req.RecordID) {
				confirmed = row
				return nil
			}
			return ErrAlreadyConfirmed
		case models.ReservationExpired:
			return fmt.Errorf("%w: expired at %s", ErrReservationExpired, row.ExpiresAt.Format(time.RFC3339))
		}

		if err := f.reservationRepo.Confirm(txCtx, row.ID, req.RecordID); err != nil {
			if errors.Is(err, repository.ErrNotPending) {
				// Lost a confirm race between the read and the update.
				again, err2 := f.reservationRepo.ByUUID(txCtx, reservationID)
				if err2 != nil {
					return err2
				}
				if again != nil && again.IsLinkedTo(req.RecordID) {
					confirmed = again
					return nil
				}
				return ErrAlreadyConfirmed
			}
			return err
		}

		row.Confirmed = true
		row.LinkedRecordID = &req.RecordID
		confirmed = row
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CONFIRM_RESERVATION_FAILED", "Confirm reservation failed", err)
	}

	reservationsConfirmedTotal.Inc()

	return &dto.ConfirmReservationResponse{
		Code:           confirmed.Code,
		SequenceNumber: confirmed.SequenceNumber,
		ReservationID:  confirmed.UUID.String(),
		RecordID:       req.RecordID,
	}, nil
}

// CleanupExpired removes expired unconfirmed reservations. Advisory
// housekeeping only: uniqueness never depends on it, since the sequence
// counters never rewind.
func (f *AllocationFlowImpl) CleanupExpired(ctx context.Context) (*dto.CleanupResponse, error) {
	deleted, err := f.reservationRepo.DeleteExpiredUnconfirmed(ctx, utils.UTCNow())
	if err != nil {
		return nil, NewBusinessError("CLEANUP_FAILED", "Cleanup of expired reservations failed", err)
	}

	if deleted > 0 {
		reservationsSweptTotal.Add(float64(deleted))
	}

	return &dto.CleanupResponse{Deleted: deleted}, nil
}

// resolveTTL applies the default and clamps to the configured ceiling.
func (f *AllocationFlowImpl) resolveTTL(ttlSeconds *int64) (time.Duration, error) {
	if ttlSeconds == nil {
		return f.allocConfig.DefaultTTL, nil
	}
	if *ttlSeconds <= 0 {
		return 0, fmt.Errorf("%w: %d seconds", ErrInvalidTTL, *ttlSeconds)
	}
	ttl := time.Duration(*ttlSeconds) * time.Second
	if ttl > f.allocConfig.MaxTTL {
		ttl = f.allocConfig.MaxTTL
	}
	return ttl, nil
}

// tenantShortCode resolves and validates the tenant's short code, with a
// read-through cache in front of the store.
func (f *AllocationFlowImpl) tenantShortCode(ctx context.Context, tenantID uint) (string, error) {
	key := f.cacheKey(utils.TenantCodeCacheKey, tenantID)
	if code, ok := f.cachedShortCode(ctx, key); ok {
		return code, nil
	}

	tenant, err := f.tenantRepo.ByID(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if tenant == nil || !tenant.IsActive {
		return "", fmt.Errorf("%w: id %d", ErrTenantNotFound, tenantID)
	}
	if !tenant.HasShortCode() {
		return "", ErrTenantCodeMissing
	}

	f.cacheShortCode(ctx, key, *tenant.ShortCode)
	return *tenant.ShortCode, nil
}

// categoryShortCode resolves and validates the category's short code.
func (f *AllocationFlowImpl) categoryShortCode(ctx context.Context, categoryID uint) (string, error) {
	key := f.cacheKey(utils.CategoryCodeCacheKey, categoryID)
	if code, ok := f.cachedShortCode(ctx, key); ok {
		return code, nil
	}

	category, err := f.categoryRepo.ByID(ctx, categoryID)
	if err != nil {
		return "", err
	}
	if category == nil || !category.IsActive {
		return "", fmt.Errorf("%w: id %d", ErrCategoryNotFound, categoryID)
	}
	if !category.HasShortCode() {
		return "", ErrCategoryCodeMissing
	}

	f.cacheShortCode(ctx, key, *category.ShortCode)
	return *category.ShortCode, nil
}

func (f *AllocationFlowImpl) cacheKey(kind string, id uint) string {
	prefix := "allocator"
	if f.cacheConfig != nil && f.cacheConfig.KeyPrefix != "" {
		prefix = f.cacheConfig.KeyPrefix
	}
	return fmt.Sprintf("%s:%s:%d", prefix, kind, id)
}

// cachedShortCode reads the short-code cache. Cache errors degrade to a
// store lookup rather than failing the request.
func (f *AllocationFlowImpl) cachedShortCode(ctx context.Context, key string) (string, bool) {
	if f.rc == nil {
		return "", false
	}
	code, err := f.rc.Get(ctx, key).Result()
	if err != nil || code == "" {
		return "", false
	}
	return code, true
}

func (f *AllocationFlowImpl) cacheShortCode(ctx context.Context, key, code string) {
	if f.rc == nil {
		return
	}
	_ = f.rc.Set(ctx, key, code, utils.ShortCodeCacheTTL).Err()
}
