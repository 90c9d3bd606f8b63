package models

import "time"

// AnalyticsEvent is an append-only, best-effort event row. Writes never block
// the flow that produced them.
type AnalyticsEvent struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	EventType string         `gorm:"index;not null" json:"event_type"`
	UserID    string         `gorm:"index" json:"user_id"`
	Metadata  map[string]any `gorm:"serializer:json" json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}
