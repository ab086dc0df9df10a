package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/metrics"
)

// Orchestrator tries each provider once, in order, and returns the first
// checkout URL it gets.
type Orchestrator struct {
	providers   []Provider
	fallbackURL string
	logger      *slog.Logger
}

func NewOrchestrator(providers []Provider, fallbackURL string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		providers:   providers,
		fallbackURL: fallbackURL,
		logger:      logger,
	}
}

func (o *Orchestrator) Providers() []string {
	names := make([]string, 0, len(o.providers))
	for _, p := range o.providers {
		names = append(names, p.Name())
	}
	return names
}

// Initiate returns the first successful provider result. When every provider
// fails it returns the static direct link flagged with Fallback, or
// ErrAllProvidersFailed if no direct link is configured.
func (o *Orchestrator) Initiate(ctx context.Context, req Request) (Result, error) {
	var errs []error

	for _, p := range o.providers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		start := time.Now()
		res := Attempt(ctx, p, req)
		metrics.ProviderDuration(p.Name(), start)

		if res.Success && res.URL != "" {
			o.logger.InfoContext(ctx, "Payment initiated", "provider", res.Provider, "merchantTransactionId", req.MerchantTransactionID)
			return res, nil
		}

		o.logger.WarnContext(ctx, "Payment provider failed", "provider", p.Name(), "merchantTransactionId", req.MerchantTransactionID, "error", res.Error)
		errs = append(errs, errors.New(res.Error))
	}

	if o.fallbackURL == "" {
		return Result{}, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
	}

	metrics.Fallback()
	o.logger.WarnContext(ctx, "All payment providers failed, returning direct link", "merchantTransactionId", req.MerchantTransactionID)

	return Result{
		Provider: ProviderDirect,
		Success:  true,
		URL:      o.fallbackURL,
		Fallback: true,
	}, nil
}

// Attempt calls a single provider and records the outcome. A success without a
// URL is downgraded to a failure.
func Attempt(ctx context.Context, p Provider, req Request) Result {
	res := p.CreatePayment(ctx, req)
	if res.Provider == "" {
		res.Provider = p.Name()
	}
	if res.Success && res.URL == "" {
		res.Success = false
		res.Error = p.Name() + ": redirect url missing in response"
	}
	if !res.Success && res.Error == "" {
		res.Error = p.Name() + ": payment not initiated"
	}

	metrics.ProviderAttempt(p.Name(), res.Success)
	return res
}
