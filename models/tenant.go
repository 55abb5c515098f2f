package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents a company owning its own asset inventory namespace.
// Tenant CRUD lives in the inventory backend; the allocator only reads this
// table to resolve and validate short codes.
type Tenant struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	ShortCode *string   `gorm:"type:varchar(16);uniqueIndex" json:"short_code,omitempty"`
	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }

// HasShortCode reports whether a non-empty short code is assigned.
func (t *Tenant) HasShortCode() bool {
	return t.ShortCode != nil && *t.ShortCode != ""
}

// TenantFilter defines filter criteria for tenant queries
type TenantFilter struct {
	ID        *uint      `json:"id,omitempty"`
	UUID      *uuid.UUID `json:"uuid,omitempty"`
	Name      *string    `json:"name,omitempty"`
	ShortCode *string    `json:"short_code,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
}
