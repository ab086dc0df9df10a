package main

import (
	"errors"
	"log/slog"

	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/payment"
)

var errNoGateway = errors.New("no payment gateway or fallback link configured")

// checkoutOptions wires the gateways that have credentials configured, in
// orchestrator order: PhonePe simple, PhonePe standard, Cashfree.
func checkoutOptions(cfg *config.Config, logger *slog.Logger) (checkout.Options, error) {
	var (
		providers []payment.Provider
		checkers  = map[string]payment.StatusChecker{}
		verifiers checkout.Verifiers
	)

	returnURL := cfg.AppBaseURL + "/payment/status"

	if cfg.PhonePeEnabled() {
		ppCfg := payment.PhonePeConfig{
			MerchantID:  cfg.PhonePeMerchantID,
			SaltKey:     cfg.PhonePeSaltKey,
			SaltIndex:   cfg.PhonePeSaltIndex,
			APIURL:      cfg.PhonePeAPIURL,
			RedirectURL: returnURL,
			CallbackURL: cfg.AppBaseURL + "/api/phonepe-webhook",
			Timeout:     cfg.ProviderTimeout,
		}
		simple := payment.NewPhonePeClient(ppCfg, payment.PhonePeSimple)
		standard := payment.NewPhonePeClient(ppCfg, payment.PhonePeStandard)

		providers = append(providers, simple, standard)
		checkers[simple.Name()] = simple
		checkers[standard.Name()] = standard
		verifiers.PhonePe = standard
	}

	if cfg.CashfreeEnabled() {
		cashfree := payment.NewCashfreeClient(payment.CashfreeConfig{
			AppID:      cfg.CashfreeAppID,
			SecretKey:  cfg.CashfreeSecretKey,
			APIURL:     cfg.CashfreeAPIURL,
			APIVersion: cfg.CashfreeAPIVersion,
			ReturnURL:  returnURL,
			NotifyURL:  cfg.AppBaseURL + "/api/payment/webhook",
			Timeout:    cfg.ProviderTimeout,
		})

		providers = append(providers, cashfree)
		checkers[cashfree.Name()] = cashfree
		verifiers.Cashfree = cashfree
	}

	if len(providers) == 0 && cfg.PaymentFallbackURL == "" {
		return checkout.Options{}, errNoGateway
	}
	if len(providers) == 0 {
		logger.Warn("No payment gateway configured, every checkout uses the direct link")
	}

	byName := make(map[string]payment.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	return checkout.Options{
		Orchestrator:    payment.NewOrchestrator(providers, cfg.PaymentFallbackURL, logger),
		Providers:       byName,
		Checkers:        checkers,
		Verifiers:       verifiers,
		StrictSignature: cfg.WebhookStrict,
		Logger:          logger,
	}, nil
}
