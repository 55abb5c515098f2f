package tests

import (
	"sync"
	"testing"
	"time"

	"github.com/assetforge/code-allocator/app/dto"
	businessflow "github.com/assetforge/code-allocator/business_flow"
	"github.com/assetforge/code-allocator/config"
	"github.com/assetforge/code-allocator/models"
	"github.com/assetforge/code-allocator/repository"
	testingutil "github.com/assetforge/code-allocator/testing"
	"github.com/assetforge/code-allocator/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocationFlow(testDB *testingutil.TestDB) businessflow.AllocationFlow {
	return businessflow.NewAllocationFlow(
		repository.NewTenantRepository(testDB.DB),
		repository.NewAssetCategoryRepository(testDB.DB),
		repository.NewSequenceCounterRepository(testDB.DB, time.Second),
		repository.NewCodeReservationRepository(testDB.DB),
		testDB.DB,
		nil, // cache degrades to store lookups
		&config.CacheConfig{},
		config.AllocatorConfig{
			DefaultTTL:  15 * time.Minute,
			MaxTTL:      24 * time.Hour,
			LockTimeout: time.Second,
		},
	)
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("127.0.0.1", "test-agent")
}

func TestReserveCode(t *testing.T) {
	requirePostgres(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAllocationFlow(testDB)

		tenant, err := fixtures.CreateTestTenant("ACME")
		require.NoError(t, err)
		category, err := fixtures.CreateTestCategory("PC")
		require.NoError(t, err)

		t.Run("FirstCodesAreSequential", func(t *testing.T) {
			first, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: category.ID}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "ACME-PC0001", first.Code)
			assert.Equal(t, uint64(1), first.SequenceNumber)
			assert.NotEmpty(t, first.ReservationID)

			second, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: category.ID}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "ACME-PC0002", second.Code)
			assert.Equal(t, uint64(2), second.SequenceNumber)
		})

		t.Run("IndependentPairsDoNotShareCounters", func(t *testing.T) {
			monitor, err := fixtures.CreateTestCategory("MON")
			require.NoError(t, err)

			resp, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: monitor.ID}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "ACME-MON0001", resp.Code)
		})

		t.Run("CustomTTLSetsExpiry", func(t *testing.T) {
			ttl := int64(60)
			before := utils.UTCNow()
			resp, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: category.ID, TTLSeconds: &ttl}, testMetadata())
			require.NoError(t, err)

			expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
			require.NoError(t, err)
			assert.WithinDuration(t, before.Add(time.Minute), expiresAt, 10*time.Second)
		})

		t.Run("NonPositiveTTLRejected", func(t *testing.T) {
			ttl := int64(0)
			_, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: category.ID, TTLSeconds: &ttl}, testMetadata())
			assert.True(t, businessflow.IsInvalidTTL(err))
		})

		t.Run("OversizedTTLClampedToCeiling", func(t *testing.T) {
			ttl := int64(48 * 3600) // twice the configured ceiling
			before := utils.UTCNow()
			resp, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: category.ID, TTLSeconds: &ttl}, testMetadata())
			require.NoError(t, err)

			expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
			require.NoError(t, err)
			assert.WithinDuration(t, before.Add(24*time.Hour), expiresAt, 10*time.Second)
		})

		t.Run("UnknownTenant", func(t *testing.T) {
			_, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: 999999, CategoryID: category.ID}, testMetadata())
			assert.True(t, businessflow.IsTenantNotFound(err))
		})

		t.Run("InactiveTenant", func(t *testing.T) {
			inactive, err := fixtures.CreateInactiveTenant("IDLE")
			require.NoError(t, err)

			_, err = flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: inactive.ID, CategoryID: category.ID}, testMetadata())
			assert.True(t, businessflow.IsTenantNotFound(err))
		})

		t.Run("TenantWithoutShortCode", func(t *testing.T) {
			bare, err := fixtures.CreateTenantWithoutShortCode()
			require.NoError(t, err)

			_, err = flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: bare.ID, CategoryID: category.ID}, testMetadata())
			assert.True(t, businessflow.IsTenantCodeMissing(err))
		})

		t.Run("UnknownCategory", func(t *testing.T) {
			_, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: 999999}, testMetadata())
			assert.True(t, businessflow.IsCategoryNotFound(err))
		})

		t.Run("ConcurrentReservationsAreUnique", func(t *testing.T) {
			north, err := fixtures.CreateTestTenant("NORTH")
			require.NoError(t, err)

			const workers = 10
			var (
				mu    sync.Mutex
				codes = make(map[string]bool)
				wg    sync.WaitGroup
			)

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					resp, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: north.ID, CategoryID: category.ID}, testMetadata())
					if assert.NoError(t, err) {
						mu.Lock()
						codes[resp.Code] = true
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Len(t, codes, workers)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestValidateCodeForUse(t *testing.T) {
	requirePostgres(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAllocationFlow(testDB)

		tenant, err := fixtures.CreateTestTenant("ACME")
		require.NoError(t, err)
		other, err := fixtures.CreateTestTenant("BETA")
		require.NoError(t, err)
		category, err := fixtures.CreateTestCategory("PC")
		require.NoError(t, err)

		reserved, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: category.ID}, testMetadata())
		require.NoError(t, err)

		t.Run("PendingCodeIsUsable", func(t *testing.T) {
			resp, err := flow.ValidateCodeForUse(ctx, &dto.ValidateCodeRequest{TenantID: tenant.ID, Code: reserved.Code}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.ReservationPending), resp.Reservation.State)
			assert.Equal(t, reserved.ReservationID, resp.Reservation.ReservationID)
		})

		t.Run("MatchingReservationID", func(t *testing.T) {
			resp, err := flow.ValidateCodeForUse(ctx, &dto.ValidateCodeRequest{TenantID: tenant.ID, Code: reserved.Code, ReservationID: &reserved.ReservationID}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, reserved.Code, resp.Reservation.Code)
		})

		t.Run("MismatchedReservationID", func(t *testing.T) {
			wrong := uuid.New().String()
			_, err := flow.ValidateCodeForUse(ctx, &dto.ValidateCodeRequest{TenantID: tenant.ID, Code: reserved.Code, ReservationID: &wrong}, testMetadata())
			assert.True(t, businessflow.IsReservationMismatch(err))
		})

		t.Run("UnreservedCode", func(t *testing.T) {
			_, err := flow.ValidateCodeForUse(ctx, &dto.ValidateCodeRequest{TenantID: tenant.ID, Code: "ACME-PC9999"}, testMetadata())
			assert.True(t, businessflow.IsCodeNotReserved(err))
		})

		t.Run("WrongTenant", func(t *testing.T) {
			_, err := flow.ValidateCodeForUse(ctx, &dto.ValidateCodeRequest{TenantID: other.ID, Code: reserved.Code}, testMetadata())
			assert.True(t, businessflow.IsWrongTenant(err))
		})

		t.Run("ExpiredReservation", func(t *testing.T) {
			_, err := fixtures.CreateTestReservation(tenant.ID, category.ID, "ACME-PC0099", 99, -time.Minute)
			require.NoError(t, err)

			_, err = flow.ValidateCodeForUse(ctx, &dto.ValidateCodeRequest{TenantID: tenant.ID, Code: "ACME-PC0099"}, testMetadata())
			assert.True(t, businessflow.IsReservationExpired(err))
		})

		t.Run("ConfirmedCodeNotReusable", func(t *testing.T) {
			_, err := flow.ConfirmReservation(ctx, &dto.ConfirmReservationRequest{ReservationID: reserved.ReservationID, RecordID: 7}, testMetadata())
			require.NoError(t, err)

			_, err = flow.ValidateCodeForUse(ctx, &dto.ValidateCodeRequest{TenantID: tenant.ID, Code: reserved.Code}, testMetadata())
			assert.True(t, businessflow.IsAlreadyConfirmed(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestConfirmReservation(t *testing.T) {
	requirePostgres(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAllocationFlow(testDB)

		tenant, err := fixtures.CreateTestTenant("ACME")
		require.NoError(t, err)
		category, err := fixtures.CreateTestCategory("PC")
		require.NoError(t, err)

		reserved, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: category.ID}, testMetadata())
		require.NoError(t, err)

		t.Run("ConfirmPending", func(t *testing.T) {
			resp, err := flow.ConfirmReservation(ctx, &dto.ConfirmReservationRequest{ReservationID: reserved.ReservationID, RecordID: 42}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, reserved.Code, resp.Code)
			assert.Equal(t, int64(42), resp.RecordID)
		})

		t.Run("RetryWithSameRecordIsIdempotent", func(t *testing.T) {
			resp, err := flow.ConfirmReservation(ctx, &dto.ConfirmReservationRequest{ReservationID: reserved.ReservationID, RecordID: 42}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, reserved.Code, resp.Code)
		})

		t.Run("DifferentRecordRejected", func(t *testing.T) {
			_, err := flow.ConfirmReservation(ctx, &dto.ConfirmReservationRequest{ReservationID: reserved.ReservationID, RecordID: 43}, testMetadata())
			assert.True(t, businessflow.IsAlreadyConfirmed(err))
		})

		t.Run("ExpiredReservationRejected", func(t *testing.T) {
			expired, err := fixtures.CreateTestReservation(tenant.ID, category.ID, "ACME-PC0098", 98, -time.Minute)
			require.NoError(t, err)

			_, err = flow.ConfirmReservation(ctx, &dto.ConfirmReservationRequest{ReservationID: expired.UUID.String(), RecordID: 1}, testMetadata())
			assert.True(t, businessflow.IsReservationExpired(err))
		})

		t.Run("UnknownReservation", func(t *testing.T) {
			_, err := flow.ConfirmReservation(ctx, &dto.ConfirmReservationRequest{ReservationID: uuid.New().String(), RecordID: 1}, testMetadata())
			assert.True(t, businessflow.IsReservationNotFound(err))
		})

		t.Run("MalformedReservationID", func(t *testing.T) {
			_, err := flow.ConfirmReservation(ctx, &dto.ConfirmReservationRequest{ReservationID: "not-a-uuid", RecordID: 1}, testMetadata())
			assert.True(t, businessflow.IsReservationNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCleanupExpired(t *testing.T) {
	requirePostgres(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newTestAllocationFlow(testDB)

		tenant, err := fixtures.CreateTestTenant("ACME")
		require.NoError(t, err)
		category, err := fixtures.CreateTestCategory("PC")
		require.NoError(t, err)

		// Burn two sequence numbers, let both reservations lapse
		first, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: category.ID}, testMetadata())
		require.NoError(t, err)
		second, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: category.ID}, testMetadata())
		require.NoError(t, err)

		require.NoError(t, testDB.DB.Model(&models.CodeReservation{}).
			Where("code IN ?", []string{first.Code, second.Code}).
			Update("expires_at", utils.UTCNow().Add(-time.Minute)).Error)

		t.Run("SweepRemovesOnlyExpiredUnconfirmed", func(t *testing.T) {
			keeper, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: category.ID}, testMetadata())
			require.NoError(t, err)

			resp, err := flow.CleanupExpired(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), resp.Deleted)

			// The pending one survives
			_, err = flow.ValidateCodeForUse(ctx, &dto.ValidateCodeRequest{TenantID: tenant.ID, Code: keeper.Code}, testMetadata())
			assert.NoError(t, err)
		})

		t.Run("SweptCodesAreNeverReissued", func(t *testing.T) {
			resp, err := flow.ReserveCode(ctx, &dto.ReserveCodeRequest{TenantID: tenant.ID, CategoryID: category.ID}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "ACME-PC0004", resp.Code)
		})

		t.Run("IdleSweepDeletesNothing", func(t *testing.T) {
			resp, err := flow.CleanupExpired(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), resp.Deleted)
		})

		return nil
	})
	require.NoError(t, err)
}
