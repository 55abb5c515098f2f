package dto

// ReserveCodeRequest asks for the next asset code for a (tenant, category)
// pair. TTLSeconds overrides the default reservation window; omitted means
// the server default, values above the configured ceiling are clamped.
type ReserveCodeRequest struct {
	TenantID    uint    `json:"tenant_id" validate:"required,gt=0"`
	CategoryID  uint    `json:"category_id" validate:"required,gt=0"`
	RequestedBy *string `json:"requested_by,omitempty" validate:"omitempty,max=255"`
	TTLSeconds  *int64  `json:"ttl_seconds,omitempty" validate:"omitempty,gt=0"`
}

// ReserveCodeResponse carries the freshly reserved code and the reservation
// handle the client must present on confirm.
type ReserveCodeResponse struct {
	Code           string `json:"code"`
	SequenceNumber uint64 `json:"sequence_number"`
	ReservationID  string `json:"reservation_id"`
	ExpiresAt      string `json:"expires_at"`
}

// ValidateCodeRequest checks whether a code is usable by the given tenant.
// ReservationID is optional; when present the reservation must match it.
type ValidateCodeRequest struct {
	TenantID      uint    `json:"tenant_id" validate:"required,gt=0"`
	Code          string  `json:"code" validate:"required,max=64"`
	ReservationID *string `json:"reservation_id,omitempty" validate:"omitempty,uuid4"`
}

// ValidateCodeResponse reports the reservation backing a usable code.
type ValidateCodeResponse struct {
	Reservation ReservationDTO `json:"reservation"`
}

// ConfirmReservationRequest binds a reservation to the inventory record that
// consumed the code.
type ConfirmReservationRequest struct {
	ReservationID string `json:"reservation_id" validate:"required,uuid4"`
	RecordID      int64  `json:"record_id" validate:"required,gt=0"`
}

// ConfirmReservationResponse echoes the confirmed binding.
type ConfirmReservationResponse struct {
	Code           string `json:"code"`
	SequenceNumber uint64 `json:"sequence_number"`
	ReservationID  string `json:"reservation_id"`
	RecordID       int64  `json:"record_id"`
}

// CleanupResponse reports how many expired reservations a sweep removed.
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

// ReservationDTO is the API representation of a code reservation.
type ReservationDTO struct {
	ReservationID  string `json:"reservation_id"`
	Code           string `json:"code"`
	TenantID       uint   `json:"tenant_id"`
	CategoryID     uint   `json:"category_id"`
	SequenceNumber uint64 `json:"sequence_number"`
	State          string `json:"state"`
	ReservedAt     string `json:"reserved_at"`
	ExpiresAt      string `json:"expires_at"`
	LinkedRecordID *int64 `json:"linked_record_id,omitempty"`
}
