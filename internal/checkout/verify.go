package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/store"
)

// Verify returns the payment, first asking its gateway for a fresher state
// when it is still INITIATED. Gateway errors leave the payment untouched.
func (s *Service) Verify(ctx context.Context, merchantTransactionID string) (*models.Payment, error) {
	if merchantTransactionID == "" {
		return nil, ErrMissingTransactionID
	}
	ctx = logging.AppendCtx(ctx, slog.String("merchantTransactionId", merchantTransactionID))

	p, err := s.store.PaymentByTransactionID(ctx, merchantTransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if p.Status.Terminal() {
		return p, nil
	}

	checker, ok := s.checkers[p.Gateway]
	if !ok {
		return p, nil
	}

	res, cached := s.cache.Get(ctx, merchantTransactionID)
	if !cached {
		res, err = checker.CheckStatus(ctx, merchantTransactionID)
		if err != nil {
			s.logger.WarnContext(ctx, "Gateway status check failed", "gateway", p.Gateway, "error", err)
			return p, nil
		}
	}

	var next models.PaymentStatus
	switch res.Status {
	case payment.StatusSuccess:
		next = models.PaymentSuccess
	case payment.StatusFailed:
		next = models.PaymentFailed
	default:
		if !cached {
			if err := s.cache.Set(ctx, merchantTransactionID, res); err != nil {
				s.logger.WarnContext(ctx, "Failed to cache gateway status", "error", err)
			}
		}
		return p, nil
	}

	tr, err := s.store.TransitionPayment(ctx, merchantTransactionID, next, res.Code, res.ProviderTransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to apply gateway status: %w", err)
	}
	if tr.Transitioned {
		s.logger.InfoContext(ctx, "Payment settled by status check", "status", tr.Payment.Status, "gateway", tr.Payment.Gateway)
		s.settle(ctx, tr)
	}

	return tr.Payment, nil
}

// Expire fails a payment that never left INITIATED.
func (s *Service) Expire(ctx context.Context, merchantTransactionID string) (bool, error) {
	tr, err := s.store.TransitionPayment(ctx, merchantTransactionID, models.PaymentFailed, "EXPIRED", "")
	if err != nil {
		return false, err
	}
	if tr.Transitioned {
		s.settle(ctx, tr)
	}
	return tr.Transitioned, nil
}

func (s *Service) StalePayments(ctx context.Context, olderThan time.Time, limit int) ([]models.Payment, error) {
	return s.store.StalePayments(ctx, olderThan, limit)
}

func (s *Service) settle(ctx context.Context, tr *store.Transition) {
	p := tr.Payment
	metrics.PaymentTransition(string(p.Status))

	if err := s.cache.Delete(ctx, p.MerchantTransactionID); err != nil {
		s.logger.WarnContext(ctx, "Failed to drop cached status", "error", err)
	}

	// Side effects outlive the request but not the timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sideTimeout)
	defer cancel()

	if p.Status.Succeeded() {
		if err := s.notifier.PaymentSucceeded(ctx, p); err != nil {
			s.logger.ErrorContext(ctx, "Failed to notify about payment", "error", err)
		}
	}
	if err := s.publisher.PaymentSettled(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish payment event", "error", err)
	}
}
