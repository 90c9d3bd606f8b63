package models

import "time"

type AffiliateStatus string

const (
	AffiliateActive    AffiliateStatus = "active"
	AffiliateInactive  AffiliateStatus = "inactive"
	AffiliateSuspended AffiliateStatus = "suspended"
)

// Affiliate links a user to a unique referral code. One affiliate per user.
type Affiliate struct {
	ID             string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string          `gorm:"uniqueIndex;not null" json:"user_id"`
	ReferralCode   string          `gorm:"uniqueIndex;not null" json:"referral_code"`
	CommissionRate float64         `gorm:"not null" json:"commission_rate"`
	TotalEarnings  float64         `gorm:"default:0" json:"total_earnings"`
	Status         AffiliateStatus `gorm:"not null;default:'active'" json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AffiliateClick is one referral landing visit attributed to an affiliate.
type AffiliateClick struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	AffiliateID string    `gorm:"index;not null" json:"affiliate_id"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `gorm:"type:text" json:"user_agent,omitempty"`
	Referrer    string    `gorm:"type:text" json:"referrer,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ConversionType string

const (
	ConversionSignup   ConversionType = "signup"
	ConversionPurchase ConversionType = "purchase"
)

type ConversionStatus string

const (
	ConversionPending  ConversionStatus = "pending"
	ConversionApproved ConversionStatus = "approved"
	ConversionPaid     ConversionStatus = "paid"
)

// AffiliateConversion is a signup or purchase attributed to an affiliate via
// the referral cookie. Created at most once per cookie lifetime.
type AffiliateConversion struct {
	ID               string           `gorm:"primaryKey;type:uuid" json:"id"`
	AffiliateID      string           `gorm:"index;not null" json:"affiliate_id"`
	UserID           string           `gorm:"index" json:"user_id,omitempty"`
	ConversionType   ConversionType   `gorm:"not null" json:"conversion_type"`
	OrderValue       *float64         `json:"order_value,omitempty"`
	CommissionAmount float64          `gorm:"not null" json:"commission_amount"`
	Status           ConversionStatus `gorm:"not null;default:'pending'" json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// AffiliateStats are derived counters for the affiliate dashboard.
type AffiliateStats struct {
	TotalClicks     int64   `json:"total_clicks"`
	TotalSignups    int64   `json:"total_signups"`
	TotalPurchases  int64   `json:"total_purchases"`
	TotalEarnings   float64 `json:"total_earnings"`
	PendingEarnings float64 `json:"pending_earnings"`
	ConversionRate  float64 `json:"conversion_rate"`
}
