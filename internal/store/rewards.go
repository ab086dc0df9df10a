package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storefront/internal/models"
)

var ErrAlreadyReviewed = errors.New("submission already reviewed")

// WalletByUser returns the user's wallet, creating an empty one on first use.
func (s *Store) WalletByUser(ctx context.Context, userID uint) (*models.Wallet, error) {
	var w models.Wallet
	if err := s.db.WithContext(ctx).FirstOrCreate(&w, models.Wallet{UserID: userID}).Error; err != nil {
		return nil, fmt.Errorf("failed to find/create wallet: %w", err)
	}
	return &w, nil
}

func (s *Store) CreateSubmission(ctx context.Context, sub *models.TaskSubmission) error {
	sub.Status = models.SubmissionPending
	return s.db.WithContext(ctx).Create(sub).Error
}

func (s *Store) ListSubmissions(ctx context.Context, status models.SubmissionStatus, limit int) ([]models.TaskSubmission, error) {
	q := s.db.WithContext(ctx).Order("created_at ASC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var subs []models.TaskSubmission
	if err := q.Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *Store) SubmissionsByUser(ctx context.Context, userID uint) ([]models.TaskSubmission, error) {
	var subs []models.TaskSubmission
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

// ReviewSubmission approves or rejects a pending submission. Approval credits
// reward to the submitter's wallet in the same transaction.
func (s *Store) ReviewSubmission(ctx context.Context, id uint, approve bool, reward float64) (*models.TaskSubmission, error) {
	var sub models.TaskSubmission

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, id).Error; err != nil {
			return notFound(err)
		}
		if sub.Status != models.SubmissionPending {
			return ErrAlreadyReviewed
		}

		now := time.Now()
		status := models.SubmissionRejected
		if approve {
			status = models.SubmissionApproved
		} else {
			reward = 0
		}

		res := tx.Model(&models.TaskSubmission{}).
			Where("id = ? AND status = ?", id, models.SubmissionPending).
			Updates(map[string]any{"status": status, "reward": reward, "reviewed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReviewed
		}
		sub.Status = status
		sub.Reward = reward
		sub.ReviewedAt = &now

		if !approve || reward == 0 {
			return nil
		}

		var w models.Wallet
		if err := tx.FirstOrCreate(&w, models.Wallet{UserID: sub.UserID}).Error; err != nil {
			return fmt.Errorf("failed to find/create wallet: %w", err)
		}
		return tx.Model(&w).Update("balance", gorm.Expr("balance + ?", reward)).Error
	})
	if err != nil {
		return nil, err
	}

	return &sub, nil
}
