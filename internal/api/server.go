// Package api exposes the checkout, marketplace and reward endpoints over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storefront/internal/auth"
	"storefront/internal/checkout"
	"storefront/internal/metrics"
	"storefront/internal/store"
)

type Options struct {
	Checkout            *checkout.Service
	Store               *store.Store
	Sessions            *auth.Sessions
	WebhookAllowedCIDRs []string
	CheckoutRateRPS     float64
	CheckoutRateBurst   int
	Logger              *slog.Logger
}

type Server struct {
	checkout *checkout.Service
	store    *store.Store
	sessions *auth.Sessions
	logger   *slog.Logger
}

func NewRouter(opts Options) http.Handler {
	s := &Server{
		checkout: opts.Checkout,
		store:    opts.Store,
		sessions: opts.Sessions,
		logger:   opts.Logger,
	}
	limiter := newRateLimiter(opts.CheckoutRateRPS, opts.CheckoutRateBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.sessions.Guard(
		auth.Rule{Prefix: "/api/admin", Roles: []string{auth.RoleAdmin}, Public: []string{"/api/admin/login"}},
		auth.Rule{Prefix: "/api/me", Roles: []string{auth.RoleUser, auth.RoleAdmin}},
	))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.middleware)
			r.Post("/create-payment", s.createPayment)
			r.Post("/payment/create", s.createCoursePayment)
			r.Post("/create-phonepe-payment", s.createPhonePePayment)
			r.Post("/simple-payment", s.simplePayment)
			r.Post("/auth/register", s.register)
			r.Post("/auth/login", s.login)
			r.Post("/contact", s.createContact)
		})

		r.Get("/payment/verify", s.verifyPayment)
		r.Get("/verify-phonepe-payment", s.verifyPayment)
		r.Get("/verify-payment", s.verifyPayment)

		r.Group(func(r chi.Router) {
			r.Use(webhookAllowlist(opts.WebhookAllowedCIDRs, s.logger))
			r.Post("/payment/webhook", s.webhook)
			r.Post("/phonepe-webhook", s.webhook)
			r.Post("/webhook", s.webhook)
		})

		r.Post("/auth/logout", s.logout)

		r.Get("/courses", s.listCourses)
		r.Get("/courses/{slug}", s.getCourse)

		r.Route("/me", func(r chi.Router) {
			r.Get("/", s.me)
			r.Get("/courses/{slug}", s.courseAccess)
			r.Get("/purchases", s.myPurchases)
			r.Get("/orders", s.myOrders)
			r.Get("/wallet", s.myWallet)
			r.Get("/submissions", s.mySubmissions)
			r.Post("/submissions", s.createSubmission)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(limiter.middleware).Post("/login", s.adminLogin)
			r.Post("/courses", s.adminCreateCourse)
			r.Get("/contacts", s.adminContacts)
			r.Get("/payments", s.adminPayments)
			r.Get("/submissions", s.adminSubmissions)
			r.Post("/submissions/{id}/approve", s.adminApproveSubmission)
			r.Post("/submissions/{id}/reject", s.adminRejectSubmission)
		})
	})

	return r
}
