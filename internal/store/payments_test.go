package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"storefront/internal/models"
	"storefront/internal/testutil"
)

type PaymentStoreTestSuite struct {
	suite.Suite
	sut *Store
	ctx context.Context
}

func (s *PaymentStoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.sut = New(testutil.NewDB(s.T()))
}

func (s *PaymentStoreTestSuite) createPayment(txnID string, productType models.ProductType) *models.Payment {
	userID := uint(7)
	p := &models.Payment{
		MerchantTransactionID: txnID,
		UserID:                &userID,
		ProductID:             "go-basics",
		ProductType:           productType,
		Amount:                249,
		CustomerPhone:         "9000000000",
	}
	require.NoError(s.T(), s.sut.CreatePayment(s.ctx, p))
	return p
}

func (s *PaymentStoreTestSuite) purchases(paymentID uint) int64 {
	var n int64
	require.NoError(s.T(), s.sut.db.Model(&models.Purchase{}).Where("payment_id = ?", paymentID).Count(&n).Error)
	return n
}

func (s *PaymentStoreTestSuite) TestCreatePayment_DefaultsToInitiated() {
	t := s.T()
	p := s.createPayment("T1", models.ProductCourse)

	got, err := s.sut.PaymentByTransactionID(s.ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, models.PaymentInitiated, got.Status)
}

func (s *PaymentStoreTestSuite) TestPaymentByTransactionID_NotFound() {
	_, err := s.sut.PaymentByTransactionID(s.ctx, "missing")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *PaymentStoreTestSuite) TestTransitionPayment_SuccessCreatesOnePurchase() {
	t := s.T()
	p := s.createPayment("T2", models.ProductCourse)

	res, err := s.sut.TransitionPayment(s.ctx, "T2", models.PaymentCompleted, "PAYMENT_SUCCESS", "PP1")
	require.NoError(t, err)
	assert.True(t, res.Transitioned)
	assert.Equal(t, models.PaymentCompleted, res.Payment.Status)
	require.NotNil(t, res.Purchase)
	assert.Equal(t, p.ID, res.Purchase.PaymentID)
	assert.Equal(t, "T2", res.Purchase.TransactionID)
	assert.Nil(t, res.Order)

	// replayed delivery
	again, err := s.sut.TransitionPayment(s.ctx, "T2", models.PaymentCompleted, "PAYMENT_SUCCESS", "PP1")
	require.NoError(t, err)
	assert.False(t, again.Transitioned)
	assert.Nil(t, again.Purchase)

	assert.Equal(t, int64(1), s.purchases(p.ID))

	stored, err := s.sut.PaymentByTransactionID(s.ctx, "T2")
	require.NoError(t, err)
	assert.Equal(t, "PP1", stored.ProviderTransactionID)
	assert.Equal(t, "PAYMENT_SUCCESS", stored.ProviderCode)
}

func (s *PaymentStoreTestSuite) TestTransitionPayment_PlanCreatesOrder() {
	t := s.T()
	s.createPayment("T3", models.ProductPlan)

	res, err := s.sut.TransitionPayment(s.ctx, "T3", models.PaymentSuccess, "", "")
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Nil(t, res.Purchase)

	orders, err := s.sut.OrdersByUser(s.ctx, 7)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func (s *PaymentStoreTestSuite) TestTransitionPayment_FailureCreatesNothing() {
	t := s.T()
	p := s.createPayment("T4", models.ProductCourse)

	res, err := s.sut.TransitionPayment(s.ctx, "T4", models.PaymentFailed, "PAYMENT_ERROR", "")
	require.NoError(t, err)
	assert.True(t, res.Transitioned)
	assert.Nil(t, res.Purchase)

	// a late success callback cannot resurrect a failed payment
	late, err := s.sut.TransitionPayment(s.ctx, "T4", models.PaymentCompleted, "PAYMENT_SUCCESS", "")
	require.NoError(t, err)
	assert.False(t, late.Transitioned)
	assert.Equal(t, models.PaymentFailed, late.Payment.Status)

	assert.Zero(t, s.purchases(p.ID))
}

func (s *PaymentStoreTestSuite) TestTransitionPayment_NotFound() {
	_, err := s.sut.TransitionPayment(s.ctx, "nope", models.PaymentCompleted, "", "")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *PaymentStoreTestSuite) TestStalePayments() {
	t := s.T()
	s.createPayment("OLD", models.ProductCourse)
	s.createPayment("DONE", models.ProductCourse)
	_, err := s.sut.TransitionPayment(s.ctx, "DONE", models.PaymentFailed, "", "")
	require.NoError(t, err)

	stale, err := s.sut.StalePayments(s.ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "OLD", stale[0].MerchantTransactionID)

	none, err := s.sut.StalePayments(s.ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func (s *PaymentStoreTestSuite) TestSetGatewayAndList() {
	t := s.T()
	p := s.createPayment("T5", models.ProductCourse)

	require.NoError(t, s.sut.SetGateway(s.ctx, p.ID, "cashfree", "CF1"))

	list, err := s.sut.ListPayments(s.ctx, models.PaymentInitiated, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cashfree", list[0].Gateway)
	assert.Equal(t, "CF1", list[0].ProviderTransactionID)
}

func (s *PaymentStoreTestSuite) TestHasPurchased() {
	t := s.T()
	s.createPayment("T6", models.ProductCourse)

	has, err := s.sut.HasPurchased(s.ctx, 7, "go-basics")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = s.sut.TransitionPayment(s.ctx, "T6", models.PaymentSuccess, "", "")
	require.NoError(t, err)

	has, err = s.sut.HasPurchased(s.ctx, 7, "go-basics")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestPaymentStoreTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentStoreTestSuite))
}
