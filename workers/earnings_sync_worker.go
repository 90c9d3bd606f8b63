// workers/earnings_sync_worker.go
package workers

import (
	"context"
	"time"

	"anime-loyalty-system/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EarningsSyncClient reconciles Affiliate.TotalEarnings against the sum of
// approved and paid conversions. TotalEarnings is a cached aggregate; the
// conversion rows stay the source of truth.
type EarningsSyncClient struct {
	DB *gorm.DB
}

func NewEarningsSyncClient(db *gorm.DB) *EarningsSyncClient {
	return &EarningsSyncClient{DB: db}
}

// SyncOnce recomputes every affiliate's total from its conversion rows and
// writes back only the rows that drifted.
func (c *EarningsSyncClient) SyncOnce() error {
	var affiliates []models.Affiliate
	if err := c.DB.Find(&affiliates).Error; err != nil {
		return err
	}

	for _, affiliate := range affiliates {
		var total float64
		err := c.DB.Model(&models.AffiliateConversion{}).
			Where("affiliate_id = ? AND status IN ?", affiliate.ID,
				[]models.ConversionStatus{models.ConversionApproved, models.ConversionPaid}).
			Select("COALESCE(SUM(commission_amount), 0)").
			Scan(&total).Error
		if err != nil {
			return err
		}
		if total == affiliate.TotalEarnings {
			continue
		}
		if err := c.DB.Model(&models.Affiliate{}).
			Where("id = ?", affiliate.ID).
			Update("total_earnings", total).Error; err != nil {
			logrus.Warnf("earnings sync: failed to update affiliate %s: %v", affiliate.ID, err)
			continue
		}
		logrus.Infof("earnings sync: affiliate %s total updated to %.2f", affiliate.ID, total)
	}
	return nil
}

// PollEarnings runs the reconciliation loop until the context is cancelled.
func PollEarnings(ctx context.Context, client *EarningsSyncClient, pollInterval time.Duration) {
	logrus.Info("Starting affiliate earnings reconciliation...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Earnings reconciliation stopped")
			return
		case <-ticker.C:
			if err := client.SyncOnce(); err != nil {
				logrus.Warnf("earnings sync failed: %v", err)
			}
		}
	}
}
