package services

import (
	"fmt"
	"sync"
	"time"

	"anime-loyalty-system/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultCategory is the point record category used when the caller does not
// name one. It also selects the "spent on purchase" activity phrasing.
const DefaultCategory = "purchase"

// DefaultActivityLimit caps how much history the profile and activity
// endpoints return in one page. Older entries stay in the store.
const DefaultActivityLimit = 50

const (
	insertAttempts = 3
	insertBackoff  = 200 * time.Millisecond
)

// LoyaltySnapshot is the authoritative view of a user's balance after a
// ledger mutation.
type LoyaltySnapshot struct {
	Points      int               `json:"points"`
	Tier        models.Tier       `json:"tier"`
	TierChanged bool              `json:"tier_changed"`
	Activities  []models.Activity `json:"activities"`
}

// PointsService is the points and activity ledger. Grants are serialized per
// user so two rapid grants cannot interleave their recompute steps.
type PointsService struct {
	DB        *gorm.DB
	userLocks sync.Map // user id -> *sync.Mutex
}

func NewPointsService(db *gorm.DB) *PointsService {
	return &PointsService{DB: db}
}

func (s *PointsService) lockUser(userID string) *sync.Mutex {
	mu, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// GrantPoints appends an immutable point record, re-derives the total from
// the full ledger, recomputes the tier, and writes the matching activity
// entries. A positive delta earns, a negative one spends; the caller is
// responsible for checking the balance before spending.
func (s *PointsService) GrantPoints(userID string, delta int, category string) (*LoyaltySnapshot, error) {
	if category == "" {
		category = DefaultCategory
	}

	mu := s.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	record := models.PointRecord{
		ID:       uuid.NewString(),
		UserID:   userID,
		Points:   delta,
		Category: category,
	}
	if err := s.insertRecordWithRetry(&record); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("point record insert failed")
		return nil, err
	}

	// Always re-derive from the ledger, never previous + delta.
	total, err := s.TotalPoints(userID)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	abs := delta
	activityType := models.ActivityPointsEarned
	desc := fmt.Sprintf("Earned %d points", delta)
	if category != DefaultCategory && delta > 0 {
		desc = fmt.Sprintf("Earned %d points from %s", delta, category)
	}
	if delta < 0 {
		abs = -delta
		activityType = models.ActivityPointsSpent
		desc = fmt.Sprintf("Spent %d points on purchase", abs)
	}

	activity := models.Activity{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        activityType,
		Description: desc,
		Points:      &abs,
		GameType:    category,
		CreatedAt:   now,
	}
	if err := s.DB.Create(&activity).Error; err != nil {
		return nil, err
	}

	newTier := user.Tier
	tierChanged := false
	if user.Tier != models.TierAdmin {
		newTier = CalculateTier(total)
		if newTier != user.Tier {
			if err := s.DB.Model(&user).Update("tier", newTier).Error; err != nil {
				return nil, err
			}
			if tierRank(newTier) > tierRank(user.Tier) {
				// The upgrade entry is stamped a hair later so it sorts ahead
				// of the earn/spend entry it accompanies.
				upgrade := models.Activity{
					ID:          uuid.NewString(),
					UserID:      userID,
					Type:        models.ActivityTierUpgrade,
					Description: fmt.Sprintf("Upgraded to %s tier", newTier),
					CreatedAt:   now.Add(time.Millisecond),
				}
				if err := s.DB.Create(&upgrade).Error; err != nil {
					return nil, err
				}
				tierChanged = true
			}
		}
	}

	activities, err := s.RecentActivities(userID, DefaultActivityLimit)
	if err != nil {
		return nil, err
	}

	return &LoyaltySnapshot{
		Points:      total,
		Tier:        newTier,
		TierChanged: tierChanged,
		Activities:  activities,
	}, nil
}

// insertRecordWithRetry retries transient write failures a bounded number of
// times before surfacing the error to the caller.
func (s *PointsService) insertRecordWithRetry(record *models.PointRecord) error {
	var err error
	for attempt := 1; attempt <= insertAttempts; attempt++ {
		if err = s.DB.Create(record).Error; err == nil {
			return nil
		}
		if attempt < insertAttempts {
			logrus.Warnf("point record insert attempt %d/%d failed: %v", attempt, insertAttempts, err)
			time.Sleep(insertBackoff * time.Duration(attempt))
		}
	}
	return err
}

// TotalPoints sums every point record for the user. This is the single source
// of truth for a balance.
func (s *PointsService) TotalPoints(userID string) (int, error) {
	var total int
	err := s.DB.Model(&models.PointRecord{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}

// RecentActivities returns the newest activities first.
func (s *PointsService) RecentActivities(userID string, limit int) ([]models.Activity, error) {
	if limit < 1 || limit > 200 {
		limit = DefaultActivityLimit
	}
	var activities []models.Activity
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// ActivitiesPage returns one page of activity history, newest first.
func (s *PointsService) ActivitiesPage(userID string, page, size int) ([]models.Activity, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = DefaultActivityLimit
	}

	var total int64
	if err := s.DB.Model(&models.Activity{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var activities []models.Activity
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&activities).Error
	return activities, total, err
}

// RecordActivity writes a standalone activity entry outside the point ledger
// (purchase receipts, news reading, and similar).
func (s *PointsService) RecordActivity(userID string, activityType models.ActivityType, description string) error {
	activity := models.Activity{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        activityType,
		Description: description,
		CreatedAt:   time.Now(),
	}
	return s.DB.Create(&activity).Error
}
