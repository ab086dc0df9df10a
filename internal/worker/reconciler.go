package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/metrics"
	"storefront/internal/models"
)

const batchSize = 100

// Payments is the part of the checkout service the reconciler drives.
type Payments interface {
	StalePayments(ctx context.Context, olderThan time.Time, limit int) ([]models.Payment, error)
	Verify(ctx context.Context, merchantTransactionID string) (*models.Payment, error)
	Expire(ctx context.Context, merchantTransactionID string) (bool, error)
}

// Reconciler settles payments whose webhook never arrived by polling their
// gateway, and fails the ones that stayed INITIATED past the expiry.
type Reconciler struct {
	Payments    Payments
	Interval    time.Duration
	MinAge      time.Duration
	Expiry      time.Duration
	Concurrency int
	logger      *slog.Logger
}

type Stats struct {
	Checked int64
	Settled int64
	Expired int64
}

func NewReconciler(payments Payments, interval, minAge, expiry time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		Payments:    payments,
		Interval:    interval,
		MinAge:      minAge,
		Expiry:      expiry,
		Concurrency: 4,
		logger:      logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	r.logger.Info("Background payment reconciler started", "interval", r.Interval)

	// Run once at start
	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Background payment reconciler stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

func (r *Reconciler) RunOnce(ctx context.Context) Stats {
	start := time.Now()
	defer metrics.ReconcileDuration(start)

	var stats Stats

	stale, err := r.Payments.StalePayments(ctx, start.Add(-r.MinAge), batchSize)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error querying stale payments", "error", err)
		return stats
	}
	if len(stale) == 0 {
		return stats
	}

	var checked, settled, expired atomic.Int64
	expiredBefore := start.Add(-r.Expiry)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Concurrency, 1))

	for _, p := range stale {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			checked.Add(1)

			got, err := r.Payments.Verify(gctx, p.MerchantTransactionID)
			if err != nil {
				r.logger.ErrorContext(gctx, "Failed to verify payment", "merchantTransactionId", p.MerchantTransactionID, "error", err)
				return nil
			}
			if got.Status.Terminal() {
				settled.Add(1)
				return nil
			}

			if r.Expiry > 0 && p.CreatedAt.Before(expiredBefore) {
				ok, err := r.Payments.Expire(gctx, p.MerchantTransactionID)
				if err != nil {
					r.logger.ErrorContext(gctx, "Failed to expire payment", "merchantTransactionId", p.MerchantTransactionID, "error", err)
					return nil
				}
				if ok {
					expired.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	stats = Stats{Checked: checked.Load(), Settled: settled.Load(), Expired: expired.Load()}
	r.logger.InfoContext(ctx, "Reconcile cycle finished",
		"checked", stats.Checked, "settled", stats.Settled, "expired", stats.Expired, "took", time.Since(start))
	return stats
}
