package models

import (
	"time"

	"gorm.io/gorm"
)

// Tier is a loyalty rank derived from cumulative points.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
	TierEmerald  Tier = "emerald"
	// TierAdmin is assigned out of band and is never produced by point totals.
	TierAdmin Tier = "admin"
)

// User is an account holder. Points are never stored on this row; the balance
// is always derived from the sum of the user's point records.
type User struct {
	ID           string         `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Name         string         `gorm:"not null" json:"name"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Tier         Tier           `gorm:"not null;default:'bronze'" json:"tier"`
	IsAdmin      bool           `gorm:"default:false" json:"is_admin"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// PointRecord is one immutable grant or deduction of reward points.
// Rows are append-only, never updated or deleted.
type PointRecord struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Points    int       `gorm:"not null" json:"points"`
	Category  string    `gorm:"not null;default:'purchase'" json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

type ActivityType string

const (
	ActivityPurchase      ActivityType = "purchase"
	ActivityGamePlayed    ActivityType = "game_played"
	ActivityPointsEarned  ActivityType = "points_earned"
	ActivityPointsSpent   ActivityType = "points_spent"
	ActivityTierUpgrade   ActivityType = "tier_upgrade"
	ActivityTaskCompleted ActivityType = "task_completed"
	ActivityReading       ActivityType = "reading"
)

// Activity is a denormalized, user-facing audit entry written on every
// ledger mutation. Served newest first.
type Activity struct {
	ID          string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string       `gorm:"index;not null" json:"user_id"`
	Type        ActivityType `gorm:"not null" json:"type"`
	Description string       `gorm:"not null" json:"description"`
	Points      *int         `json:"points,omitempty"`
	GameType    string       `json:"game_type,omitempty"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
}

// DailyTaskState tracks the once-per-day bonus tasks. The flags are only
// meaningful while LastUpdated equals today's local date; a stale date means
// every flag is logically false (lazy reset, checked on read).
type DailyTaskState struct {
	UserID        string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	LastUpdated   string    `json:"last_updated"`
	Purchase      bool      `gorm:"default:false" json:"purchase"`
	GameAttempted bool      `gorm:"default:false" json:"game_attempted"`
	NewsRead      bool      `gorm:"default:false" json:"news_read"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DailyTasksView is the client-facing shape of the daily task state with the
// lazy date reset already applied.
type DailyTasksView struct {
	LastUpdated string `json:"lastUpdated"`
	Tasks       struct {
		Purchase      bool `json:"purchase"`
		GameAttempted bool `json:"gameAttempted"`
		NewsRead      bool `json:"newsRead"`
	} `json:"tasks"`
}
