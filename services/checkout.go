package services

import (
	"errors"
	"fmt"
	"math"

	"anime-loyalty-system/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInsufficientPoints = errors.New("not enough points to pay for this order")
	ErrOutOfStock         = errors.New("one or more items are out of stock")
)

// CheckoutItem is one cart line submitted at checkout.
type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

// CheckoutInput is a full checkout request.
type CheckoutInput struct {
	Items           []CheckoutItem         `json:"items"`
	PaymentMethod   models.PaymentMethod   `json:"payment_method"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
}

// CheckoutResult reports what was bought and the post-checkout balance.
type CheckoutResult struct {
	Purchases []models.Purchase `json:"purchases"`
	Total     float64           `json:"total"`
	Points    int               `json:"points"`
	Tier      models.Tier       `json:"tier"`
}

// CheckoutService turns a cart into purchase rows. Points payment deducts
// through the ledger at 1 point = $1, rounded up. Daily-task completion and
// analytics ride along best-effort; affiliate attribution happens at the
// handler where the referral cookie lives.
type CheckoutService struct {
	DB        *gorm.DB
	Points    *PointsService
	Tasks     *DailyTaskService
	Analytics *AnalyticsService
}

func NewCheckoutService(db *gorm.DB, points *PointsService, tasks *DailyTaskService, analytics *AnalyticsService) *CheckoutService {
	return &CheckoutService{DB: db, Points: points, Tasks: tasks, Analytics: analytics}
}

// Checkout validates stock, settles payment, and records the purchases.
func (s *CheckoutService) Checkout(userID string, input CheckoutInput) (*CheckoutResult, error) {
	if len(input.Items) == 0 {
		return nil, errors.New("cart is empty")
	}
	if input.PaymentMethod != models.PaymentCard && input.PaymentMethod != models.PaymentPoints {
		return nil, errors.New("payment method must be card or points")
	}

	products := make(map[string]*models.Product, len(input.Items))
	var total float64
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, errors.New("item quantity must be at least 1")
		}
		var product models.Product
		if err := s.DB.First(&product, "id = ?", item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("product %s not found", item.ProductID)
			}
			return nil, err
		}
		if product.Stock < item.Quantity {
			return nil, ErrOutOfStock
		}
		products[item.ProductID] = &product
		total += product.Price * float64(item.Quantity)
	}

	if input.PaymentMethod == models.PaymentPoints {
		// 1 point = $1, rounded up.
		pointsNeeded := int(math.Ceil(total))
		balance, err := s.Points.TotalPoints(userID)
		if err != nil {
			return nil, err
		}
		if balance < pointsNeeded {
			return nil, ErrInsufficientPoints
		}
		if _, err := s.Points.GrantPoints(userID, -pointsNeeded, DefaultCategory); err != nil {
			return nil, err
		}
	}

	purchases := make([]models.Purchase, 0, len(input.Items))
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, item := range input.Items {
			product := products[item.ProductID]
			purchase := models.Purchase{
				ID:              uuid.NewString(),
				UserID:          userID,
				ProductID:       product.ID,
				Quantity:        item.Quantity,
				Size:            item.Size,
				Total:           product.Price * float64(item.Quantity),
				PaymentMethod:   input.PaymentMethod,
				Status:          models.PurchasePending,
				ShippingAddress: input.ShippingAddress,
			}
			if err := tx.Create(&purchase).Error; err != nil {
				return err
			}
			if err := tx.Model(product).Update("stock", gorm.Expr("stock - ?", item.Quantity)).Error; err != nil {
				return err
			}
			purchases = append(purchases, purchase)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.Points.RecordActivity(userID, models.ActivityPurchase, fmt.Sprintf("Purchased items for $%.2f", total)); err != nil {
		logrus.WithError(err).Warn("checkout: failed to record purchase activity")
	}

	// Best-effort side effects. A failed task grant or analytics write must
	// not fail a checkout whose payment already settled.
	if _, _, err := s.Tasks.CompleteTask(userID, TaskPurchase); err != nil {
		logrus.WithError(err).Warn("checkout: daily purchase task not completed")
	}
	s.Analytics.TrackEvent("purchase", userID, map[string]any{
		"total":          total,
		"items":          len(input.Items),
		"payment_method": string(input.PaymentMethod),
	})

	// Re-fetch the authoritative sum after all side effects so the client
	// never renders a stale balance at the receipt screen.
	result := &CheckoutResult{Purchases: purchases, Total: total}
	if balance, err := s.Points.TotalPoints(userID); err == nil {
		result.Points = balance
		result.Tier = CalculateTier(balance)
	}
	return result, nil
}
