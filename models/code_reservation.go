package models

import (
	"time"

	"github.com/google/uuid"
)

// ReservationState is the logical state of a reservation at a given instant.
// It is derived from the stored fields rather than persisted, so the three
// states stay mutually exclusive by construction.
type ReservationState string

const (
	// ReservationPending means the code is held and may still be consumed.
	ReservationPending ReservationState = "pending"
	// ReservationExpired means the TTL lapsed before confirmation. The row
	// stays until the cleanup sweep removes it; the code is never reissued.
	ReservationExpired ReservationState = "expired"
	// ReservationConfirmed means the code is permanently bound to an
	// inventory record. Confirmed rows are immutable.
	ReservationConfirmed ReservationState = "confirmed"
)

// CodeReservation is a temporarily held, uniquely numbered asset code
// awaiting confirmation by the inventory record that will consume it.
type CodeReservation struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	// Code is the formatted display code, e.g. ACME-PC0007. The unique index
	// is the last line of defense against a sequencing bug.
	Code           string `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	TenantID       uint   `gorm:"not null;index:idx_code_reservations_pair" json:"tenant_id"`
	CategoryID     uint   `gorm:"not null;index:idx_code_reservations_pair" json:"category_id"`
	SequenceNumber uint64 `gorm:"not null" json:"sequence_number"`

	ReservedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"reserved_at"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`
	RequestedBy *string   `gorm:"type:varchar(255)" json:"requested_by,omitempty"`

	Confirmed      bool   `gorm:"not null;default:false;index" json:"confirmed"`
	LinkedRecordID *int64 `gorm:"index" json:"linked_record_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CodeReservation) TableName() string { return "code_reservations" }

// State derives the logical state at the given instant. Confirmation wins
// over expiry: a confirmed reservation stays confirmed forever regardless of
// its expires_at.
func (r *CodeReservation) State(now time.Time) ReservationState {
	if r.Confirmed {
		return ReservationConfirmed
	}
	if !now.Before(r.ExpiresAt) {
		return ReservationExpired
	}
	return ReservationPending
}

// IsLinkedTo reports whether the reservation is confirmed and bound to the
// given record.
func (r *CodeReservation) IsLinkedTo(recordID int64) bool {
	return r.Confirmed && r.LinkedRecordID != nil && *r.LinkedRecordID == recordID
}

// CodeReservationFilter defines filter criteria for reservation queries
type CodeReservationFilter struct {
	TenantID      *uint      `json:"tenant_id,omitempty"`
	CategoryID    *uint      `json:"category_id,omitempty"`
	Code          *string    `json:"code,omitempty"`
	Confirmed     *bool      `json:"confirmed,omitempty"`
	RequestedBy   *string    `json:"requested_by,omitempty"`
	ExpiresAfter  *time.Time `json:"expires_after,omitempty"`
	ExpiresBefore *time.Time `json:"expires_before,omitempty"`
}
