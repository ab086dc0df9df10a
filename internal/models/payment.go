package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "INITIATED"
	PaymentSuccess   PaymentStatus = "SUCCESS"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Succeeded reports whether the status grants access to the product.
func (s PaymentStatus) Succeeded() bool {
	return s == PaymentSuccess || s == PaymentCompleted
}

func (s PaymentStatus) Terminal() bool {
	return s != PaymentInitiated
}

type ProductType string

const (
	ProductCourse ProductType = "course"
	ProductPlan   ProductType = "plan"
)

type Payment struct {
	ID                    uint          `gorm:"primaryKey" json:"id"`
	MerchantTransactionID string        `gorm:"size:64;uniqueIndex;not null" json:"merchantTransactionId"`
	UserID                *uint         `gorm:"index" json:"userId,omitempty"`
	ProductID             string        `gorm:"size:255" json:"productId,omitempty"`
	ProductType           ProductType   `gorm:"size:16;default:'course'" json:"productType"`
	Amount                float64       `gorm:"not null" json:"amount"`
	CustomerName          string        `gorm:"size:255" json:"name"`
	CustomerEmail         string        `gorm:"size:255" json:"email"`
	CustomerPhone         string        `gorm:"size:32" json:"phone"`
	Status                PaymentStatus `gorm:"size:16;index;default:'INITIATED'" json:"status"`
	Gateway               string        `gorm:"size:32" json:"gateway"`
	ProviderTransactionID string        `gorm:"size:255" json:"providerTransactionId,omitempty"`
	ProviderCode          string        `gorm:"size:64" json:"providerCode,omitempty"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}
