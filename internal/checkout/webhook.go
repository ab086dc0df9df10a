package checkout

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/store"
)

type PhonePeVerifier interface {
	VerifyCallback(xVerify, response string) bool
}

type CashfreeVerifier interface {
	VerifyWebhook(signature, timestamp string, body []byte) bool
}

// Verifiers check callback signatures. A nil verifier means the gateway is not configured.
type Verifiers struct {
	PhonePe  PhonePeVerifier
	Cashfree CashfreeVerifier
}

// Signature carries the signature headers of an inbound callback.
type Signature struct {
	XVerify          string
	WebhookSignature string
	WebhookTimestamp string
}

type WebhookOutcome struct {
	MerchantTransactionID string              `json:"merchantTransactionId"`
	Status                models.PaymentStatus `json:"status"`
	Transitioned          bool                 `json:"transitioned"`
}

// HandleWebhook applies a gateway callback to the matching payment. Only an
// INITIATED payment moves; replays of an already settled payment are no-ops.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, sig Signature) (*WebhookOutcome, error) {
	metrics.WebhookReceived()

	payload, err := s.decodeWebhook(body, sig)
	if err != nil {
		metrics.WebhookRejected()
		return nil, err
	}

	txnID := transactionID(payload)
	if txnID == "" {
		metrics.WebhookRejected()
		return nil, ErrMissingTransactionID
	}
	ctx = logging.AppendCtx(ctx, slog.String("merchantTransactionId", txnID))

	p, err := s.store.PaymentByTransactionID(ctx, txnID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.WebhookNotFound()
			s.logger.WarnContext(ctx, "Webhook for unknown transaction")
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	next := callbackStatus(payload)
	if next == models.PaymentInitiated {
		s.logger.InfoContext(ctx, "Webhook reports payment still pending", "status", p.Status)
		return &WebhookOutcome{MerchantTransactionID: txnID, Status: p.Status}, nil
	}

	tr, err := s.store.TransitionPayment(ctx, txnID, next, callbackCode(payload), providerTransactionID(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to apply webhook: %w", err)
	}

	if !tr.Transitioned {
		metrics.WebhookDuplicate()
		s.logger.InfoContext(ctx, "Webhook for settled payment ignored", "status", tr.Payment.Status)
		return &WebhookOutcome{MerchantTransactionID: txnID, Status: tr.Payment.Status}, nil
	}

	metrics.WebhookProcessed()
	s.logger.InfoContext(ctx, "Payment settled by webhook", "status", tr.Payment.Status, "gateway", tr.Payment.Gateway)
	s.settle(ctx, tr)

	return &WebhookOutcome{MerchantTransactionID: txnID, Status: tr.Payment.Status, Transitioned: true}, nil
}

// decodeWebhook unwraps PhonePe's {"response": base64} envelope, checking
// signatures on the way. Any other JSON body is taken as is.
func (s *Service) decodeWebhook(body []byte, sig Signature) (map[string]any, error) {
	raw, err := decodeJSON(body)
	if err != nil {
		return nil, err
	}

	if enc, ok := raw["response"].(string); ok && enc != "" {
		if err := s.verifyPhonePe(sig.XVerify, enc); err != nil {
			return nil, err
		}

		decoded, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("%w: response is not base64: %w", ErrInvalidPayload, err)
		}
		return decodeJSON(decoded)
	}

	if err := s.verifyCashfree(sig, body); err != nil {
		return nil, err
	}
	return raw, nil
}

// verifyPhonePe and verifyCashfree demand a valid signature whenever the
// gateway has a verifier. Without one, strict mode rejects the callback.
func (s *Service) verifyPhonePe(xVerify, response string) error {
	if s.verifiers.PhonePe == nil {
		return s.unverifiable("phonepe")
	}
	if xVerify == "" {
		return fmt.Errorf("%w: X-VERIFY missing", ErrInvalidSignature)
	}
	if !s.verifiers.PhonePe.VerifyCallback(xVerify, response) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *Service) verifyCashfree(sig Signature, body []byte) error {
	if s.verifiers.Cashfree == nil {
		return s.unverifiable("cashfree")
	}
	if sig.WebhookSignature == "" {
		return fmt.Errorf("%w: x-webhook-signature missing", ErrInvalidSignature)
	}
	if !s.verifiers.Cashfree.VerifyWebhook(sig.WebhookSignature, sig.WebhookTimestamp, body) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *Service) unverifiable(gateway string) error {
	if s.strict {
		return fmt.Errorf("%w: no %s verifier configured", ErrInvalidSignature, gateway)
	}
	return nil
}

func decodeJSON(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}
	return m, nil
}

func lookup(m map[string]any, path ...string) string {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[key]
	}

	switch v := cur.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

func firstOf(m map[string]any, paths ...[]string) string {
	for _, path := range paths {
		if v := lookup(m, path...); v != "" {
			return v
		}
	}
	return ""
}

func transactionID(m map[string]any) string {
	return firstOf(m,
		[]string{"data", "merchantTransactionId"},
		[]string{"merchantTransactionId"},
		[]string{"data", "order", "order_id"},
		[]string{"orderId"},
		[]string{"order_id"},
		[]string{"transactionId"},
	)
}

func providerTransactionID(m map[string]any) string {
	return firstOf(m,
		[]string{"data", "transactionId"},
		[]string{"data", "payment", "cf_payment_id"},
		[]string{"cf_payment_id"},
	)
}

func callbackCode(m map[string]any) string {
	return firstOf(m,
		[]string{"code"},
		[]string{"data", "responseCode"},
		[]string{"data", "payment", "payment_status"},
		[]string{"type"},
	)
}

var (
	successStates = map[string]bool{"SUCCESS": true, "COMPLETED": true, "PAID": true}
	pendingStates = map[string]bool{"PENDING": true, "NOT_ATTEMPTED": true, "ACTIVE": true}
)

// callbackStatus maps a callback to COMPLETED, FAILED, or INITIATED when the
// gateway explicitly reports the payment as still in flight. Any one success
// indicator is enough.
func callbackStatus(m map[string]any) models.PaymentStatus {
	code := strings.ToUpper(firstOf(m, []string{"code"}, []string{"data", "code"}))
	responseCode := strings.ToUpper(firstOf(m, []string{"responseCode"}, []string{"data", "responseCode"}))

	var states []string
	for _, path := range [][]string{
		{"status"}, {"state"},
		{"data", "status"}, {"data", "state"},
		{"data", "payment", "payment_status"},
	} {
		if v := lookup(m, path...); v != "" {
			states = append(states, strings.ToUpper(v))
		}
	}

	if code == "PAYMENT_SUCCESS" || responseCode == "SUCCESS" {
		return models.PaymentCompleted
	}
	for _, st := range states {
		if successStates[st] {
			return models.PaymentCompleted
		}
	}

	if code == "PAYMENT_PENDING" {
		return models.PaymentInitiated
	}
	for _, st := range states {
		if pendingStates[st] {
			return models.PaymentInitiated
		}
	}

	return models.PaymentFailed
}
