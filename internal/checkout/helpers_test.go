package checkout

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/store"
	"storefront/internal/testutil"
)

type fakeProvider struct {
	name   string
	result payment.Result
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CreatePayment(_ context.Context, _ payment.Request) payment.Result {
	f.calls++
	return f.result
}

type fakeChecker struct {
	result payment.StatusResult
	err    error
	calls  int
}

func (f *fakeChecker) CheckStatus(_ context.Context, _ string) (payment.StatusResult, error) {
	f.calls++
	return f.result, f.err
}

type recorder struct {
	mu        sync.Mutex
	notified  []string
	published []string
}

func (r *recorder) PaymentSucceeded(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, p.MerchantTransactionID)
	return nil
}

func (r *recorder) PaymentSettled(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, string(p.Status))
	return errors.New("broker down")
}

type fixture struct {
	db       *gorm.DB
	store    *store.Store
	rec      *recorder
	checker  *fakeChecker
	phonepe  *payment.PhonePeClient
	cashfree *payment.CashfreeClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	return &fixture{
		db:      db,
		store:   store.New(db),
		rec:     &recorder{},
		checker: &fakeChecker{result: payment.StatusResult{Status: payment.StatusPending, Code: "PAYMENT_PENDING"}},
		phonepe: payment.NewPhonePeClient(payment.PhonePeConfig{
			MerchantID: "M1",
			SaltKey:    "test-salt",
			SaltIndex:  "1",
		}, payment.PhonePeStandard),
		cashfree: payment.NewCashfreeClient(payment.CashfreeConfig{AppID: "app", SecretKey: "secret"}),
	}
}

func (f *fixture) service(t *testing.T, strict bool, providers ...payment.Provider) *Service {
	t.Helper()
	return f.serviceWith(t, func(o *Options) { o.StrictSignature = strict }, providers...)
}

func (f *fixture) serviceWith(t *testing.T, mutate func(*Options), providers ...payment.Provider) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	byName := make(map[string]payment.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	opts := Options{
		Store:        f.store,
		Cache:        store.NewStatusCache(rdb, 0),
		Orchestrator: payment.NewOrchestrator(providers, "https://pay.test/direct", testutil.Logger()),
		Providers:    byName,
		Checkers: map[string]payment.StatusChecker{
			payment.ProviderPhonePeStandard: f.checker,
		},
		Verifiers: Verifiers{PhonePe: f.phonepe, Cashfree: f.cashfree},
		Notifier:  f.rec,
		Publisher: f.rec,
		Logger:    testutil.Logger(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts)
}

const webhookTimestamp = "1700000000"

// signed returns the Cashfree signature headers for body under the fixture secret.
func signed(body []byte) Signature {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(webhookTimestamp))
	mac.Write(body)
	return Signature{
		WebhookSignature: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		WebhookTimestamp: webhookTimestamp,
	}
}

func (f *fixture) seed(t *testing.T, txnID string, productType models.ProductType, gateway string) *models.Payment {
	t.Helper()
	p := &models.Payment{
		MerchantTransactionID: txnID,
		ProductID:             "go-basics",
		ProductType:           productType,
		Amount:                249,
		CustomerPhone:         "9000000000",
		Gateway:               gateway,
	}
	if err := f.store.CreatePayment(context.Background(), p); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return p
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
