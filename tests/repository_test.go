package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/assetforge/code-allocator/models"
	"github.com/assetforge/code-allocator/repository"
	testingutil "github.com/assetforge/code-allocator/testing"
	"github.com/assetforge/code-allocator/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirePostgres(t *testing.T) {
	t.Helper()
	if !testingutil.CanConnect() {
		t.Skip("postgres is not reachable, skipping database-backed test")
	}
}

func TestSequenceCounterRepository(t *testing.T) {
	requirePostgres(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewSequenceCounterRepository(testDB.DB, time.Second)

		tenant, err := fixtures.CreateTestTenant("ACME")
		require.NoError(t, err)
		category, err := fixtures.CreateTestCategory("PC")
		require.NoError(t, err)

		t.Run("GetMissingPairReturnsNil", func(t *testing.T) {
			row, err := repo.Get(ctx, tenant.ID, category.ID)
			require.NoError(t, err)
			assert.Nil(t, row)
		})

		t.Run("GetOrCreateInitializesAtOne", func(t *testing.T) {
			row, err := repo.GetOrCreate(ctx, tenant.ID, category.ID)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), row.NextNumber)

			// Second call observes the same row instead of resetting it
			again, err := repo.GetOrCreate(ctx, tenant.ID, category.ID)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), again.NextNumber)
		})

		t.Run("LockAndIncrementRequiresTransaction", func(t *testing.T) {
			_, err := repo.LockAndIncrement(ctx, tenant.ID, category.ID)
			assert.ErrorIs(t, err, repository.ErrMissingTransaction)
		})

		t.Run("LockAndIncrementAllocatesMonotonically", func(t *testing.T) {
			for want := uint64(1); want <= 3; want++ {
				var got uint64
				err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
					n, err := repo.LockAndIncrement(txCtx, tenant.ID, 9999)
					got = n
					return err
				})
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			row, err := repo.Get(ctx, tenant.ID, 9999)
			require.NoError(t, err)
			assert.Equal(t, uint64(4), row.NextNumber)
		})

		t.Run("RollbackDoesNotBurnNumbers", func(t *testing.T) {
			boom := assert.AnError
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				if _, err := repo.LockAndIncrement(txCtx, tenant.ID, 8888); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			var got uint64
			err = repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				n, err := repo.LockAndIncrement(txCtx, tenant.ID, 8888)
				got = n
				return err
			})
			require.NoError(t, err)
			assert.Equal(t, uint64(1), got)
		})

		t.Run("ConcurrentAllocationsAreDistinct", func(t *testing.T) {
			const workers = 8
			var (
				mu        sync.Mutex
				allocated = make(map[uint64]bool)
				wg        sync.WaitGroup
			)

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
						n, err := repo.LockAndIncrement(txCtx, tenant.ID, 7777)
						if err != nil {
							return err
						}
						mu.Lock()
						allocated[n] = true
						mu.Unlock()
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			assert.Len(t, allocated, workers)
			for want := uint64(1); want <= workers; want++ {
				assert.True(t, allocated[want], "sequence number %d missing", want)
			}
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCodeReservationRepository(t *testing.T) {
	requirePostgres(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewCodeReservationRepository(testDB.DB)

		tenant, err := fixtures.CreateTestTenant("ACME")
		require.NoError(t, err)
		category, err := fixtures.CreateTestCategory("PC")
		require.NoError(t, err)

		t.Run("SaveAndLookup", func(t *testing.T) {
			now := utils.UTCNow()
			reservation := &models.CodeReservation{
				UUID:           uuid.New(),
				Code:           "ACME-PC0001",
				TenantID:       tenant.ID,
				CategoryID:     category.ID,
				SequenceNumber: 1,
				ReservedAt:     now,
				ExpiresAt:      now.Add(15 * time.Minute),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			require.NoError(t, repo.Save(ctx, reservation))
			assert.NotZero(t, reservation.ID)

			byCode, err := repo.ByCode(ctx, "ACME-PC0001")
			require.NoError(t, err)
			require.NotNil(t, byCode)
			assert.Equal(t, reservation.UUID, byCode.UUID)

			byUUID, err := repo.ByUUID(ctx, reservation.UUID)
			require.NoError(t, err)
			require.NotNil(t, byUUID)
			assert.Equal(t, "ACME-PC0001", byUUID.Code)
		})

		t.Run("LookupMissingReturnsNil", func(t *testing.T) {
			row, err := repo.ByCode(ctx, "ACME-PC9999")
			require.NoError(t, err)
			assert.Nil(t, row)

			row, err = repo.ByUUID(ctx, uuid.New())
			require.NoError(t, err)
			assert.Nil(t, row)
		})

		t.Run("DuplicateCodeRejected", func(t *testing.T) {
			now := utils.UTCNow()
			duplicate := &models.CodeReservation{
				UUID:           uuid.New(),
				Code:           "ACME-PC0001",
				TenantID:       tenant.ID,
				CategoryID:     category.ID,
				SequenceNumber: 1,
				ReservedAt:     now,
				ExpiresAt:      now.Add(15 * time.Minute),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			err := repo.Save(ctx, duplicate)
			assert.ErrorIs(t, err, repository.ErrDuplicateCode)
		})

		t.Run("ConfirmOnlyTouchesPendingRows", func(t *testing.T) {
			reservation, err := fixtures.CreateTestReservation(tenant.ID, category.ID, "ACME-PC0002", 2, 15*time.Minute)
			require.NoError(t, err)

			require.NoError(t, repo.Confirm(ctx, reservation.ID, 42))

			row, err := repo.ByUUID(ctx, reservation.UUID)
			require.NoError(t, err)
			assert.True(t, row.Confirmed)
			require.NotNil(t, row.LinkedRecordID)
			assert.Equal(t, int64(42), *row.LinkedRecordID)

			// Confirming again matches no unconfirmed row
			err = repo.Confirm(ctx, reservation.ID, 43)
			assert.ErrorIs(t, err, repository.ErrNotPending)
		})

		t.Run("DeleteExpiredUnconfirmed", func(t *testing.T) {
			expired, err := fixtures.CreateTestReservation(tenant.ID, category.ID, "ACME-PC0003", 3, -time.Hour)
			require.NoError(t, err)
			pending, err := fixtures.CreateTestReservation(tenant.ID, category.ID, "ACME-PC0004", 4, time.Hour)
			require.NoError(t, err)

			// Confirmed past its deadline; must survive the sweep
			confirmedExpired, err := fixtures.CreateTestReservation(tenant.ID, category.ID, "ACME-PC0005", 5, -time.Hour)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.CodeReservation{}).
				Where("id = ?", confirmedExpired.ID).
				Updates(map[string]any{"confirmed": true, "linked_record_id": int64(7)}).Error)

			deleted, err := repo.DeleteExpiredUnconfirmed(ctx, utils.UTCNow())
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)

			gone, err := repo.ByUUID(ctx, expired.UUID)
			require.NoError(t, err)
			assert.Nil(t, gone)

			kept, err := repo.ByUUID(ctx, pending.UUID)
			require.NoError(t, err)
			assert.NotNil(t, kept)

			keptConfirmed, err := repo.ByUUID(ctx, confirmedExpired.UUID)
			require.NoError(t, err)
			assert.NotNil(t, keptConfirmed)
		})

		t.Run("CountByFilter", func(t *testing.T) {
			confirmed := true
			count, err := repo.Count(ctx, models.CodeReservationFilter{TenantID: &tenant.ID, Confirmed: &confirmed})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTenantAndCategoryRepositories(t *testing.T) {
	requirePostgres(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)

		tenantRepo := repository.NewTenantRepository(testDB.DB)
		categoryRepo := repository.NewAssetCategoryRepository(testDB.DB)

		tenant, err := fixtures.CreateTestTenant("ACME")
		require.NoError(t, err)
		category, err := fixtures.CreateTestCategory("PC")
		require.NoError(t, err)

		t.Run("ByID", func(t *testing.T) {
			row, err := tenantRepo.ByID(ctx, tenant.ID)
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, tenant.Name, row.Name)
		})

		t.Run("ByShortCode", func(t *testing.T) {
			row, err := tenantRepo.ByShortCode(ctx, "ACME")
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, tenant.ID, row.ID)

			cat, err := categoryRepo.ByShortCode(ctx, "PC")
			require.NoError(t, err)
			require.NotNil(t, cat)
			assert.Equal(t, category.ID, cat.ID)
		})

		t.Run("ByUUID", func(t *testing.T) {
			row, err := tenantRepo.ByUUID(ctx, tenant.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, tenant.ID, row.ID)
		})

		t.Run("MissingReturnsNil", func(t *testing.T) {
			row, err := tenantRepo.ByShortCode(ctx, "NOPE")
			require.NoError(t, err)
			assert.Nil(t, row)
		})

		t.Run("FilterByActive", func(t *testing.T) {
			_, err := fixtures.CreateInactiveTenant("GONE")
			require.NoError(t, err)

			active := true
			rows, err := tenantRepo.ByFilter(ctx, models.TenantFilter{IsActive: &active}, "", 0, 0)
			require.NoError(t, err)
			assert.Len(t, rows, 1)
			assert.Equal(t, tenant.ID, rows[0].ID)
		})

		return nil
	})
	require.NoError(t, err)
}
