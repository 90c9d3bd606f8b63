package services

import (
	"anime-loyalty-system/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AnalyticsService appends best-effort event rows. Failures are logged and
// swallowed; analytics never blocks the flow that produced an event.
type AnalyticsService struct {
	DB *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{DB: db}
}

func (s *AnalyticsService) TrackEvent(eventType, userID string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	event := models.AnalyticsEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		UserID:    userID,
		Metadata:  metadata,
	}
	if err := s.DB.Create(&event).Error; err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Warn("analytics: failed to record event")
	}
}
