package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is a storefront catalog item. Some products can optionally be
// bought with points instead of money.
type Product struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	Name           string         `gorm:"not null" json:"name"`
	Slug           string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description    string         `gorm:"type:text" json:"description"`
	Price          float64        `gorm:"not null" json:"price"`
	Sizes          []string       `gorm:"serializer:json" json:"sizes"`
	ImageURL       string         `gorm:"type:text" json:"image_url"`
	Category       string         `gorm:"index" json:"category"`
	PointsRequired *int           `json:"points_required,omitempty"`
	Stock          int            `gorm:"default:0" json:"stock"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

type PurchaseStatus string

const (
	PurchasePending    PurchaseStatus = "pending"
	PurchaseProcessing PurchaseStatus = "processing"
	PurchaseShipped    PurchaseStatus = "shipped"
	PurchaseDelivered  PurchaseStatus = "delivered"
	PurchaseCompleted  PurchaseStatus = "completed"
)

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentPoints PaymentMethod = "points"
)

type ShippingAddress struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
	Country  string `json:"country"`
}

// Purchase is one checked-out line item.
type Purchase struct {
	ID              string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string          `gorm:"index;not null" json:"user_id"`
	ProductID       string          `gorm:"index;not null" json:"product_id"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	Size            string          `json:"size,omitempty"`
	Total           float64         `gorm:"not null" json:"total"`
	PaymentMethod   PaymentMethod   `gorm:"not null" json:"payment_method"`
	Status          PurchaseStatus  `gorm:"not null;default:'pending'" json:"status"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
