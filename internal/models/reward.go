package models

import (
	"time"
)

type Wallet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"userId"`
	Balance   float64   `gorm:"default:0" json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

type TaskSubmission struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UserID     uint             `gorm:"not null;index" json:"userId"`
	TaskID     string           `gorm:"size:128;not null" json:"taskId"`
	Proof      string           `gorm:"type:text" json:"proof"`
	Status     SubmissionStatus `gorm:"size:16;index;default:'pending'" json:"status"`
	Reward     float64          `gorm:"default:0" json:"reward"`
	ReviewedAt *time.Time       `json:"reviewedAt,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}
