package services

import (
	"testing"

	"anime-loyalty-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCheckoutHarness(db *gorm.DB) (*CheckoutService, *PointsService) {
	points := NewPointsService(db)
	tasks := NewDailyTaskService(db, points)
	analytics := NewAnalyticsService(db)
	return NewCheckoutService(db, points, tasks, analytics), points
}

func createTestProduct(t *testing.T, db *gorm.DB, price float64, stock int) *models.Product {
	t.Helper()
	product := models.Product{
		ID:       uuid.NewString(),
		Name:     "Akira Poster",
		Slug:     "akira-poster-" + uuid.NewString()[:8],
		Price:    price,
		Stock:    stock,
		Category: "posters",
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func TestCheckoutWithPoints(t *testing.T) {
	db := setupTestDB(t)
	checkout, points := newCheckoutHarness(db)
	user := createTestUser(t, db)
	product := createTestProduct(t, db, 49.99, 5)

	_, err := points.GrantPoints(user.ID, 500, "memory")
	require.NoError(t, err)

	result, err := checkout.Checkout(user.ID, CheckoutInput{
		Items:         []CheckoutItem{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod: models.PaymentPoints,
	})
	require.NoError(t, err)
	require.InDelta(t, 99.98, result.Total, 1e-9)

	// 100 points deducted (ceil of the total), then the daily purchase task
	// pays its 100 back on the first purchase of the day.
	require.Equal(t, 500, result.Points)

	var records []models.PointRecord
	require.NoError(t, db.Where("user_id = ?", user.ID).Order("created_at").Find(&records).Error)
	require.Len(t, records, 3)
	require.Equal(t, -100, records[1].Points)
	require.Equal(t, "task_completed", records[2].Category)

	var stored models.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	require.Equal(t, 3, stored.Stock)

	var purchase models.Purchase
	require.NoError(t, db.First(&purchase, "user_id = ?", user.ID).Error)
	require.Equal(t, models.PaymentPoints, purchase.PaymentMethod)
	require.Equal(t, models.PurchasePending, purchase.Status)
}

func TestCheckoutInsufficientPoints(t *testing.T) {
	db := setupTestDB(t)
	checkout, points := newCheckoutHarness(db)
	user := createTestUser(t, db)
	product := createTestProduct(t, db, 200, 5)

	_, err := points.GrantPoints(user.ID, 50, "memory")
	require.NoError(t, err)

	_, err = checkout.Checkout(user.ID, CheckoutInput{
		Items:         []CheckoutItem{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentPoints,
	})
	require.ErrorIs(t, err, ErrInsufficientPoints)

	// Nothing committed: no deduction, no purchase, stock untouched.
	total, err := points.TotalPoints(user.ID)
	require.NoError(t, err)
	require.Equal(t, 50, total)

	var n int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestCheckoutWithCard(t *testing.T) {
	db := setupTestDB(t)
	checkout, _ := newCheckoutHarness(db)
	user := createTestUser(t, db)
	product := createTestProduct(t, db, 30, 2)

	result, err := checkout.Checkout(user.ID, CheckoutInput{
		Items:         []CheckoutItem{{ProductID: product.ID, Quantity: 1, Size: "L"}},
		PaymentMethod: models.PaymentCard,
		ShippingAddress: models.ShippingAddress{
			FullName: "Rei A.",
			Country:  "JP",
		},
	})
	require.NoError(t, err)

	// No deduction on card; the daily purchase task still pays out.
	require.Equal(t, 100, result.Points)

	var purchase models.Purchase
	require.NoError(t, db.First(&purchase, "user_id = ?", user.ID).Error)
	require.Equal(t, "L", purchase.Size)
	require.Equal(t, "Rei A.", purchase.ShippingAddress.FullName)

	// The purchase receipt lands in the activity feed.
	var activity models.Activity
	require.NoError(t, db.First(&activity, "user_id = ? AND type = ?", user.ID, models.ActivityPurchase).Error)
	require.Equal(t, "Purchased items for $30.00", activity.Description)

	// Second purchase the same day does not pay the task again.
	result, err = checkout.Checkout(user.ID, CheckoutInput{
		Items:         []CheckoutItem{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentCard,
	})
	require.NoError(t, err)
	require.Equal(t, 100, result.Points)
}

func TestCheckoutOutOfStock(t *testing.T) {
	db := setupTestDB(t)
	checkout, _ := newCheckoutHarness(db)
	user := createTestUser(t, db)
	product := createTestProduct(t, db, 10, 1)

	_, err := checkout.Checkout(user.ID, CheckoutInput{
		Items:         []CheckoutItem{{ProductID: product.ID, Quantity: 3}},
		PaymentMethod: models.PaymentCard,
	})
	require.ErrorIs(t, err, ErrOutOfStock)
}

func TestCheckoutEmptyCart(t *testing.T) {
	db := setupTestDB(t)
	checkout, _ := newCheckoutHarness(db)
	user := createTestUser(t, db)

	_, err := checkout.Checkout(user.ID, CheckoutInput{PaymentMethod: models.PaymentCard})
	require.Error(t, err)
}
