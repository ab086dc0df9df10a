package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/store"
)

var (
	ErrMissingTransactionID = errors.New("missing transaction id")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrInvalidRequest       = errors.New("invalid payment request")
	ErrProviderFailed       = errors.New("payment provider failed")
	ErrCourseUnavailable    = errors.New("course is not available")
)

// Notifier tells operators about completed payments.
type Notifier interface {
	PaymentSucceeded(ctx context.Context, p *models.Payment) error
}

// Publisher emits an event once a payment leaves INITIATED.
type Publisher interface {
	PaymentSettled(ctx context.Context, p *models.Payment) error
}

type nopNotifier struct{}

func (nopNotifier) PaymentSucceeded(context.Context, *models.Payment) error { return nil }

type nopPublisher struct{}

func (nopPublisher) PaymentSettled(context.Context, *models.Payment) error { return nil }

type Options struct {
	Store        *store.Store
	Cache        *store.StatusCache
	Orchestrator *payment.Orchestrator
	// Providers are addressable by name for the single-gateway endpoints.
	Providers map[string]payment.Provider
	// Checkers answer status polls, keyed by the gateway stored on the payment.
	Checkers  map[string]payment.StatusChecker
	Verifiers Verifiers
	// StrictSignature rejects callbacks for a gateway that has no verifier.
	StrictSignature bool
	Notifier        Notifier
	Publisher       Publisher
	// SideEffectTimeout bounds the notifier and publisher calls made after a
	// transition. They run detached from the caller's context.
	SideEffectTimeout time.Duration
	Logger            *slog.Logger
}

const defaultSideEffectTimeout = 3 * time.Second

type Service struct {
	store        *store.Store
	cache        *store.StatusCache
	orchestrator *payment.Orchestrator
	providers    map[string]payment.Provider
	checkers     map[string]payment.StatusChecker
	verifiers    Verifiers
	strict       bool
	notifier     Notifier
	publisher    Publisher
	sideTimeout  time.Duration
	logger       *slog.Logger
}

func New(opts Options) *Service {
	s := &Service{
		store:        opts.Store,
		cache:        opts.Cache,
		orchestrator: opts.Orchestrator,
		providers:    opts.Providers,
		checkers:     opts.Checkers,
		verifiers:    opts.Verifiers,
		strict:       opts.StrictSignature,
		notifier:     opts.Notifier,
		publisher:    opts.Publisher,
		sideTimeout:  opts.SideEffectTimeout,
		logger:       opts.Logger,
	}
	if s.sideTimeout <= 0 {
		s.sideTimeout = defaultSideEffectTimeout
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

type InitiateRequest struct {
	Amount      float64            `json:"amount"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	ProductID   string             `json:"productId"`
	ProductType models.ProductType `json:"productType"`
	CourseSlug  string             `json:"courseSlug"`
	UserID      *uint              `json:"-"`
}

type Initiated struct {
	MerchantTransactionID string
	Result                payment.Result
}

// NewTransactionID returns a merchant transaction id short enough for every gateway.
func NewTransactionID() string {
	return "T" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Initiate records a new INITIATED payment and asks the gateways for a
// checkout page. An empty provider runs the full orchestrator chain, otherwise
// only the named provider is tried.
func (s *Service) Initiate(ctx context.Context, provider string, req InitiateRequest) (*Initiated, error) {
	// A course is always charged at its catalog price, whichever endpoint named it.
	if req.CourseSlug == "" && req.ProductID != "" && (req.ProductType == "" || req.ProductType == models.ProductCourse) {
		req.CourseSlug = req.ProductID
	}
	if req.CourseSlug != "" {
		course, err := s.store.CourseBySlug(ctx, req.CourseSlug)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrCourseUnavailable, req.CourseSlug)
			}
			return nil, err
		}
		if !course.Published {
			return nil, fmt.Errorf("%w: %s", ErrCourseUnavailable, req.CourseSlug)
		}
		req.Amount = course.Price
		req.ProductID = course.Slug
		req.ProductType = models.ProductCourse
	}

	if err := validate(req); err != nil {
		return nil, err
	}
	if req.ProductType == "" {
		req.ProductType = models.ProductCourse
	}

	var single payment.Provider
	if provider != "" {
		p, ok := s.providers[provider]
		if !ok {
			return nil, fmt.Errorf("%w: %s", payment.ErrUnknownGateway, provider)
		}
		single = p
	}

	p := &models.Payment{
		MerchantTransactionID: NewTransactionID(),
		UserID:                req.UserID,
		ProductID:             req.ProductID,
		ProductType:           req.ProductType,
		Amount:                req.Amount,
		CustomerName:          req.Name,
		CustomerEmail:         req.Email,
		CustomerPhone:         req.Phone,
		Status:                models.PaymentInitiated,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	ctx = logging.AppendCtx(ctx, slog.String("merchantTransactionId", p.MerchantTransactionID))

	preq := payment.Request{
		MerchantTransactionID: p.MerchantTransactionID,
		Amount:                p.Amount,
		Name:                  p.CustomerName,
		Email:                 p.CustomerEmail,
		Phone:                 p.CustomerPhone,
	}
	if p.UserID != nil {
		preq.MerchantUserID = fmt.Sprintf("U%d", *p.UserID)
	}

	var (
		res payment.Result
		err error
	)
	if single != nil {
		res = payment.Attempt(ctx, single, preq)
		if !res.Success {
			err = fmt.Errorf("%w: %s", ErrProviderFailed, res.Error)
		}
	} else {
		res, err = s.orchestrator.Initiate(ctx, preq)
	}

	if err != nil {
		tr, terr := s.store.TransitionPayment(ctx, p.MerchantTransactionID, models.PaymentFailed, "INITIATION_FAILED", "")
		switch {
		case terr != nil:
			s.logger.ErrorContext(ctx, "Failed to mark payment failed", "error", terr)
		case tr.Transitioned:
			s.settle(ctx, tr)
		}
		return &Initiated{MerchantTransactionID: p.MerchantTransactionID, Result: res}, err
	}

	if err := s.store.SetGateway(ctx, p.ID, res.Provider, res.ProviderTransactionID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record payment gateway", "gateway", res.Provider, "error", err)
	}

	s.logger.InfoContext(ctx, "Checkout created", "gateway", res.Provider, "fallback", res.Fallback, "amount", p.Amount)
	return &Initiated{MerchantTransactionID: p.MerchantTransactionID, Result: res}, nil
}

func validate(req InitiateRequest) error {
	switch {
	case req.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	case strings.TrimSpace(req.Phone) == "":
		return fmt.Errorf("%w: phone is required", ErrInvalidRequest)
	case req.ProductType != "" && req.ProductType != models.ProductCourse && req.ProductType != models.ProductPlan:
		return fmt.Errorf("%w: unknown product type %q", ErrInvalidRequest, req.ProductType)
	}
	return nil
}
