package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storefront/internal/models"
)

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	if p.Status == "" {
		p.Status = models.PaymentInitiated
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", conflict(err))
	}
	return nil
}

func (s *Store) PaymentByTransactionID(ctx context.Context, merchantTransactionID string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).Where("merchant_transaction_id = ?", merchantTransactionID).First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// SetGateway records which provider produced the checkout page.
func (s *Store) SetGateway(ctx context.Context, id uint, gateway, providerTransactionID string) error {
	updates := map[string]any{"gateway": gateway}
	if providerTransactionID != "" {
		updates["provider_transaction_id"] = providerTransactionID
	}
	return s.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Store) ListPayments(ctx context.Context, status models.PaymentStatus, limit int) ([]models.Payment, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var payments []models.Payment
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// StalePayments returns INITIATED payments created before olderThan, oldest first.
func (s *Store) StalePayments(ctx context.Context, olderThan time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PaymentInitiated, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// Transition is the outcome of moving a payment out of INITIATED.
type Transition struct {
	Payment      *models.Payment
	Transitioned bool
	Purchase     *models.Purchase
	Order        *models.Order
}

// TransitionPayment moves the payment identified by merchantTransactionID from
// INITIATED to status. A payment already in a terminal state is returned
// unchanged with Transitioned false. Moving to a success status appends exactly
// one purchase (courses) or order (plans) in the same transaction.
func (s *Store) TransitionPayment(ctx context.Context, merchantTransactionID string, status models.PaymentStatus, code, providerTransactionID string) (*Transition, error) {
	var out Transition

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Payment
		if err := tx.Where("merchant_transaction_id = ?", merchantTransactionID).First(&p).Error; err != nil {
			return notFound(err)
		}
		out.Payment = &p

		if p.Status != models.PaymentInitiated {
			return nil
		}

		updates := map[string]any{"status": status}
		if code != "" {
			updates["provider_code"] = code
		}
		if providerTransactionID != "" {
			updates["provider_transaction_id"] = providerTransactionID
		}

		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", p.ID, models.PaymentInitiated).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update payment status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return tx.First(&p, p.ID).Error
		}

		out.Transitioned = true
		p.Status = status
		if code != "" {
			p.ProviderCode = code
		}
		if providerTransactionID != "" {
			p.ProviderTransactionID = providerTransactionID
		}

		if !status.Succeeded() {
			return nil
		}

		now := time.Now()
		if p.ProductType == models.ProductPlan {
			order := &models.Order{
				PaymentID:     p.ID,
				UserID:        p.UserID,
				ProductID:     p.ProductID,
				Amount:        p.Amount,
				TransactionID: p.MerchantTransactionID,
				PurchaseDate:  now,
			}
			if err := tx.Create(order).Error; err != nil {
				return fmt.Errorf("failed to create order: %w", conflict(err))
			}
			out.Order = order
			return nil
		}

		purchase := &models.Purchase{
			PaymentID:     p.ID,
			UserID:        p.UserID,
			ProductID:     p.ProductID,
			Amount:        p.Amount,
			TransactionID: p.MerchantTransactionID,
			PurchaseDate:  now,
		}
		if err := tx.Create(purchase).Error; err != nil {
			return fmt.Errorf("failed to create purchase: %w", conflict(err))
		}
		out.Purchase = purchase
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (s *Store) PurchasesByUser(ctx context.Context, userID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("purchase_date DESC").Find(&purchases).Error
	return purchases, err
}

func (s *Store) OrdersByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("purchase_date DESC").Find(&orders).Error
	return orders, err
}

func (s *Store) HasPurchased(ctx context.Context, userID uint, productID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&n).Error
	return n > 0, err
}
