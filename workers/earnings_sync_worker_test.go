package workers

import (
	"fmt"
	"testing"

	"anime-loyalty-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupWorkerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Affiliate{}, &models.AffiliateConversion{}))
	return db
}

func createConversion(t *testing.T, db *gorm.DB, affiliateID string, amount float64, status models.ConversionStatus) {
	t.Helper()
	require.NoError(t, db.Create(&models.AffiliateConversion{
		ID:               uuid.NewString(),
		AffiliateID:      affiliateID,
		ConversionType:   models.ConversionPurchase,
		CommissionAmount: amount,
		Status:           status,
	}).Error)
}

func TestSyncOnceRecomputesEarnings(t *testing.T) {
	db := setupWorkerDB(t)

	affiliate := models.Affiliate{
		ID:           uuid.NewString(),
		UserID:       uuid.NewString(),
		ReferralCode: "SYNCTEST",
		Status:       models.AffiliateActive,
	}
	require.NoError(t, db.Create(&affiliate).Error)

	createConversion(t, db, affiliate.ID, 30, models.ConversionApproved)
	createConversion(t, db, affiliate.ID, 20, models.ConversionPaid)
	// Pending commission is not yet earned.
	createConversion(t, db, affiliate.ID, 50, models.ConversionPending)

	require.NoError(t, NewEarningsSyncClient(db).SyncOnce())

	var stored models.Affiliate
	require.NoError(t, db.First(&stored, "id = ?", affiliate.ID).Error)
	require.InDelta(t, 50.0, stored.TotalEarnings, 1e-9)
}

func TestSyncOnceSkipsUnchangedRows(t *testing.T) {
	db := setupWorkerDB(t)

	affiliate := models.Affiliate{
		ID:            uuid.NewString(),
		UserID:        uuid.NewString(),
		ReferralCode:  "NOCHANGE",
		Status:        models.AffiliateActive,
		TotalEarnings: 15,
	}
	require.NoError(t, db.Create(&affiliate).Error)
	createConversion(t, db, affiliate.ID, 15, models.ConversionPaid)

	before := affiliate.UpdatedAt
	require.NoError(t, NewEarningsSyncClient(db).SyncOnce())

	var stored models.Affiliate
	require.NoError(t, db.First(&stored, "id = ?", affiliate.ID).Error)
	require.InDelta(t, 15.0, stored.TotalEarnings, 1e-9)
	require.Equal(t, before.Unix(), stored.UpdatedAt.Unix())
}

func TestSyncOnceNoAffiliates(t *testing.T) {
	db := setupWorkerDB(t)
	require.NoError(t, NewEarningsSyncClient(db).SyncOnce())
}
