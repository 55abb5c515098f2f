package models

import "time"

// SequenceCounter is the durable monotonic counter for one (tenant, category)
// pair. NextNumber is the value the next reservation will receive. Rows are
// created lazily on the first allocation for a pair and are never deleted, so
// an issued number can never be handed out twice, even after its reservation
// has been reaped or the service restarted.
type SequenceCounter struct {
	TenantID   uint      `gorm:"primaryKey;autoIncrement:false" json:"tenant_id"`
	CategoryID uint      `gorm:"primaryKey;autoIncrement:false" json:"category_id"`
	NextNumber uint64    `gorm:"not null;default:1" json:"next_number"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SequenceCounter) TableName() string { return "sequence_counters" }

// SequenceCounterFilter defines filter criteria for counter queries
type SequenceCounterFilter struct {
	TenantID   *uint `json:"tenant_id,omitempty"`
	CategoryID *uint `json:"category_id,omitempty"`
}
