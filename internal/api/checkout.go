package api

import (
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/checkout"
	"storefront/internal/payment"
)

type checkoutResponse struct {
	Success               bool   `json:"success"`
	URL                   string `json:"url,omitempty"`
	Provider              string `json:"provider,omitempty"`
	MerchantTransactionID string `json:"merchantTransactionId,omitempty"`
	Fallback              bool   `json:"fallback,omitempty"`
	Error                 string `json:"error,omitempty"`
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	s.initiate(w, r, "", false)
}

func (s *Server) createCoursePayment(w http.ResponseWriter, r *http.Request) {
	s.initiate(w, r, "", true)
}

func (s *Server) createPhonePePayment(w http.ResponseWriter, r *http.Request) {
	s.initiate(w, r, payment.ProviderPhonePeStandard, false)
}

func (s *Server) simplePayment(w http.ResponseWriter, r *http.Request) {
	s.initiate(w, r, payment.ProviderPhonePeSimple, false)
}

func (s *Server) initiate(w http.ResponseWriter, r *http.Request, provider string, course bool) {
	var req checkout.InitiateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	if course {
		if req.CourseSlug == "" {
			req.CourseSlug = req.ProductID
		}
		if req.CourseSlug == "" {
			writeError(w, r, s.logger, fmt.Errorf("%w: courseSlug is required", checkout.ErrInvalidRequest))
			return
		}
	} else {
		req.CourseSlug = ""
	}

	if claims, ok := s.optionalClaims(r); ok {
		if id, err := claims.UserID(); err == nil && claims.Role == auth.RoleUser {
			req.UserID = &id
		}
	}

	out, err := s.checkout.Initiate(r.Context(), provider, req)
	if err != nil {
		if errors.Is(err, checkout.ErrProviderFailed) && out != nil {
			writeJSON(w, http.StatusBadRequest, checkoutResponse{
				Success:               false,
				Provider:              out.Result.Provider,
				MerchantTransactionID: out.MerchantTransactionID,
				Error:                 out.Result.Error,
			})
			return
		}
		writeError(w, r, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		Success:               true,
		URL:                   out.Result.URL,
		Provider:              out.Result.Provider,
		MerchantTransactionID: out.MerchantTransactionID,
		Fallback:              out.Result.Fallback,
	})
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txnID := q.Get("merchantTransactionId")
	if txnID == "" {
		txnID = q.Get("transactionId")
	}
	if txnID == "" {
		txnID = q.Get("id")
	}

	p, err := s.checkout.Verify(r.Context(), txnID)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"merchantTransactionId": p.MerchantTransactionID,
		"status":                p.Status,
		"paid":                  p.Status.Succeeded(),
		"payment":               p,
	})
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	out, err := s.checkout.HandleWebhook(r.Context(), body, checkout.Signature{
		XVerify:          r.Header.Get("X-VERIFY"),
		WebhookSignature: r.Header.Get("x-webhook-signature"),
		WebhookTimestamp: r.Header.Get("x-webhook-timestamp"),
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"merchantTransactionId": out.MerchantTransactionID,
		"status":                out.Status,
		"transitioned":          out.Transitioned,
	})
}

// optionalClaims reads a session on routes the guard does not protect.
func (s *Server) optionalClaims(r *http.Request) (*auth.Claims, bool) {
	for _, name := range []string{auth.UserCookie, auth.AdminCookie} {
		cookie, err := r.Cookie(name)
		if err != nil {
			continue
		}
		if claims, err := s.sessions.Parse(cookie.Value); err == nil {
			return claims, true
		}
	}
	return nil, false
}
