package models

import (
	"time"
)

// Purchase grants a user a course. One per successful payment.
type Purchase struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PaymentID     uint      `gorm:"not null;uniqueIndex" json:"paymentId"`
	UserID        *uint     `gorm:"index" json:"userId,omitempty"`
	ProductID     string    `gorm:"size:255" json:"productId"`
	Amount        float64   `gorm:"not null" json:"amount"`
	TransactionID string    `gorm:"size:64;index" json:"transactionId"`
	PurchaseDate  time.Time `json:"purchaseDate"`
}

// Order is the reward platform's counterpart of Purchase, used for paid plans.
type Order struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PaymentID     uint      `gorm:"not null;uniqueIndex" json:"paymentId"`
	UserID        *uint     `gorm:"index" json:"userId,omitempty"`
	ProductID     string    `gorm:"size:255" json:"productId"`
	Amount        float64   `gorm:"not null" json:"amount"`
	TransactionID string    `gorm:"size:64;index" json:"transactionId"`
	PurchaseDate  time.Time `json:"purchaseDate"`
}
