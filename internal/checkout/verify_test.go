package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/store"
)

func TestVerify_SuccessTransitions(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, false)
	f.seed(t, "T1", models.ProductCourse, payment.ProviderPhonePeStandard)
	f.checker.result = payment.StatusResult{Status: payment.StatusSuccess, Code: "PAYMENT_SUCCESS", ProviderTransactionID: "PP1"}

	p, err := svc.Verify(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, p.Status)
	assert.EqualValues(t, 1, f.count(t, &models.Purchase{}))
	assert.Equal(t, []string{"T1"}, f.rec.notified)

	// settled payments are answered from the database
	p, err = svc.Verify(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, p.Status)
	assert.Equal(t, 1, f.checker.calls)
	assert.EqualValues(t, 1, f.count(t, &models.Purchase{}))
}

func TestVerify_PendingIsCached(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, false)
	f.seed(t, "T2", models.ProductCourse, payment.ProviderPhonePeStandard)

	for range 3 {
		p, err := svc.Verify(context.Background(), "T2")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentInitiated, p.Status)
	}
	assert.Equal(t, 1, f.checker.calls)
}

func TestVerify_FailedStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, false)
	f.seed(t, "T3", models.ProductCourse, payment.ProviderPhonePeStandard)
	f.checker.result = payment.StatusResult{Status: payment.StatusFailed, Code: "PAYMENT_DECLINED"}

	p, err := svc.Verify(context.Background(), "T3")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, p.Status)
	assert.Zero(t, f.count(t, &models.Purchase{}))
}

func TestVerify_GatewayErrorLeavesPayment(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, false)
	f.seed(t, "T4", models.ProductCourse, payment.ProviderPhonePeStandard)
	f.checker.err = errors.New("api error: upstream (status: 503)")

	p, err := svc.Verify(context.Background(), "T4")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentInitiated, p.Status)
}

func TestVerify_NoCheckerForGateway(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, false)
	f.seed(t, "T5", models.ProductCourse, payment.ProviderDirect)

	p, err := svc.Verify(context.Background(), "T5")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentInitiated, p.Status)
	assert.Zero(t, f.checker.calls)
}

func TestVerify_Errors(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, false)

	_, err := svc.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingTransactionID)

	_, err = svc.Verify(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExpire(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, false)
	f.seed(t, "T6", models.ProductCourse, payment.ProviderDirect)

	expired, err := svc.Expire(context.Background(), "T6")
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = svc.Expire(context.Background(), "T6")
	require.NoError(t, err)
	assert.False(t, expired)

	p, err := f.store.PaymentByTransactionID(context.Background(), "T6")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, p.Status)
	assert.Equal(t, "EXPIRED", p.ProviderCode)
}
