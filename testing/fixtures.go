// Package testing provides test utilities and database setup for testing the allocation service
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/assetforge/code-allocator/models"
	"github.com/assetforge/code-allocator/utils"
	"github.com/google/uuid"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestTenant creates an active tenant with the given short code
func (tf *TestFixtures) CreateTestTenant(shortCode string) (*models.Tenant, error) {
	tenant := &models.Tenant{
		UUID:      uuid.New(),
		Name:      fmt.Sprintf("Tenant %s %d", shortCode, rand.Intn(10000)),
		ShortCode: utils.ToPtr(shortCode),
		IsActive:  true,
	}

	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}

	return tenant, nil
}

// CreateTestCategory creates an active asset category with the given short code
func (tf *TestFixtures) CreateTestCategory(shortCode string) (*models.AssetCategory, error) {
	category := &models.AssetCategory{
		UUID:      uuid.New(),
		Name:      fmt.Sprintf("Category %s %d", shortCode, rand.Intn(10000)),
		ShortCode: utils.ToPtr(shortCode),
		IsActive:  true,
	}

	if err := tf.DB.DB.Create(category).Error; err != nil {
		return nil, fmt.Errorf("failed to create test category: %w", err)
	}

	return category, nil
}

// CreateTenantWithoutShortCode creates an active tenant that has no short code assigned
func (tf *TestFixtures) CreateTenantWithoutShortCode() (*models.Tenant, error) {
	tenant := &models.Tenant{
		UUID:     uuid.New(),
		Name:     fmt.Sprintf("Unprovisioned Tenant %d", rand.Intn(10000)),
		IsActive: true,
	}

	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}

	return tenant, nil
}

// CreateInactiveTenant creates a deactivated tenant
func (tf *TestFixtures) CreateInactiveTenant(shortCode string) (*models.Tenant, error) {
	tenant := &models.Tenant{
		UUID:      uuid.New(),
		Name:      fmt.Sprintf("Inactive Tenant %d", rand.Intn(10000)),
		ShortCode: utils.ToPtr(shortCode),
		IsActive:  false,
	}

	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}

	return tenant, nil
}

// CreateTestReservation creates a pending reservation with the given code and TTL
func (tf *TestFixtures) CreateTestReservation(tenantID, categoryID uint, code string, seq uint64, ttl time.Duration) (*models.CodeReservation, error) {
	now := utils.UTCNow()
	reservation := &models.CodeReservation{
		UUID:           uuid.New(),
		Code:           code,
		TenantID:       tenantID,
		CategoryID:     categoryID,
		SequenceNumber: seq,
		ReservedAt:     now,
		ExpiresAt:      now.Add(ttl),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := tf.DB.DB.Create(reservation).Error; err != nil {
		return nil, fmt.Errorf("failed to create test reservation: %w", err)
	}

	return reservation, nil
}
