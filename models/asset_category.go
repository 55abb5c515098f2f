package models

import (
	"time"

	"github.com/google/uuid"
)

// AssetCategory is an asset classification (e.g. "PC", "Printer"). Each
// (tenant, category) pair scopes its own code sequence, so categories can be
// shared across tenants without numbering collisions.
type AssetCategory struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	ShortCode *string   `gorm:"type:varchar(16);uniqueIndex" json:"short_code,omitempty"`
	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AssetCategory) TableName() string { return "asset_categories" }

// HasShortCode reports whether a non-empty short code is assigned.
func (c *AssetCategory) HasShortCode() bool {
	return c.ShortCode != nil && *c.ShortCode != ""
}

// AssetCategoryFilter defines filter criteria for category queries
type AssetCategoryFilter struct {
	ID        *uint      `json:"id,omitempty"`
	UUID      *uuid.UUID `json:"uuid,omitempty"`
	Name      *string    `json:"name,omitempty"`
	ShortCode *string    `json:"short_code,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
}
