// Package businessflow contains the core business logic for asset-code allocation workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Tenant/category lookup errors
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrCategoryNotFound    = errors.New("asset category not found")
	ErrTenantCodeMissing   = errors.New("tenant has no short code assigned")
	ErrCategoryCodeMissing = errors.New("asset category has no short code assigned")

	// Input errors
	ErrInvalidTTL       = errors.New("reservation TTL is out of range")
	ErrInvalidAssetCode = errors.New("asset code is malformed")

	// Reservation lifecycle errors
	ErrDuplicateAssetCode   = errors.New("asset code already reserved")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrCodeNotReserved      = errors.New("code is not reserved")
	ErrWrongTenant          = errors.New("reservation belongs to a different tenant")
	ErrReservationExpired   = errors.New("reservation has expired")
	ErrAlreadyConfirmed     = errors.New("reservation is already confirmed")
	ErrReservationMismatch  = errors.New("reservation id does not match the reserved code")
	ErrAllocationContention = errors.New("allocation lock contention, retry")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsCategoryNotFound(err error) bool {
	return errors.Is(err, ErrCategoryNotFound)
}

func IsTenantCodeMissing(err error) bool {
	return errors.Is(err, ErrTenantCodeMissing)
}

func IsCategoryCodeMissing(err error) bool {
	return errors.Is(err, ErrCategoryCodeMissing)
}

func IsInvalidTTL(err error) bool {
	return errors.Is(err, ErrInvalidTTL)
}

func IsInvalidAssetCode(err error) bool {
	return errors.Is(err, ErrInvalidAssetCode)
}

func IsDuplicateAssetCode(err error) bool {
	return errors.Is(err, ErrDuplicateAssetCode)
}

func IsReservationNotFound(err error) bool {
	return errors.Is(err, ErrReservationNotFound)
}

func IsCodeNotReserved(err error) bool {
	return errors.Is(err, ErrCodeNotReserved)
}

func IsWrongTenant(err error) bool {
	return errors.Is(err, ErrWrongTenant)
}

func IsReservationExpired(err error) bool {
	return errors.Is(err, ErrReservationExpired)
}

func IsAlreadyConfirmed(err error) bool {
	return errors.Is(err, ErrAlreadyConfirmed)
}

func IsReservationMismatch(err error) bool {
	return errors.Is(err, ErrReservationMismatch)
}

func IsAllocationContention(err error) bool {
	return errors.Is(err, ErrAllocationContention)
}
