package payment

import (
	"context"
	"errors"
)

const (
	ProviderPhonePeSimple   = "phonepe-simple"
	ProviderPhonePeStandard = "phonepe-standard"
	ProviderCashfree        = "cashfree"
	ProviderDirect          = "direct"
)

var (
	ErrAllProvidersFailed = errors.New("all payment providers failed")
	ErrUnknownGateway     = errors.New("unknown payment gateway")
)

// Request is a checkout attempt as the gateways see it. Amount is in rupees.
type Request struct {
	MerchantTransactionID string
	MerchantUserID        string
	Amount                float64
	Name                  string
	Email                 string
	Phone                 string
}

type Result struct {
	Provider              string `json:"provider"`
	Success               bool   `json:"success"`
	URL                   string `json:"url,omitempty"`
	Error                 string `json:"error,omitempty"`
	Fallback              bool   `json:"fallback,omitempty"`
	ProviderTransactionID string `json:"-"`
}

func failure(provider string, err error) Result {
	return Result{Provider: provider, Success: false, Error: err.Error()}
}

// Provider creates a hosted checkout page. A failed attempt is reported through
// Result.Success and Result.Error, never through a panic or a zero Result.
type Provider interface {
	Name() string
	CreatePayment(ctx context.Context, req Request) Result
}

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

type StatusResult struct {
	Status                Status
	Code                  string
	ProviderTransactionID string
}

// StatusChecker asks a gateway for the current state of a checkout.
type StatusChecker interface {
	CheckStatus(ctx context.Context, merchantTransactionID string) (StatusResult, error)
}
