// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/assetforge/code-allocator/app/dto"
	"github.com/assetforge/code-allocator/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client-related information for audit logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToReservationDTO converts a reservation model to its API representation
func ToReservationDTO(r models.CodeReservation, now time.Time) dto.ReservationDTO {
	d := dto.ReservationDTO{
		ReservationID:  r.UUID.String(),
		Code:           r.Code,
		TenantID:       r.TenantID,
		CategoryID:     r.CategoryID,
		SequenceNumber: r.SequenceNumber,
		State:          string(r.State(now)),
		ReservedAt:     r.ReservedAt.Format(time.RFC3339),
		ExpiresAt:      r.ExpiresAt.Format(time.RFC3339),
	}
	if r.LinkedRecordID != nil {
		d.LinkedRecordID = r.LinkedRecordID
	}
	return d
}
