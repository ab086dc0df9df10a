package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"storefront/internal/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

func listLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return min(n, maxListLimit)
}

func (s *Server) adminCreateCourse(w http.ResponseWriter, r *http.Request) {
	var c models.Course
	if err := decodeBody(w, r, &c); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	c.ID = 0
	c.Slug = strings.TrimSpace(c.Slug)
	if c.Slug == "" || strings.TrimSpace(c.Title) == "" || c.Price <= 0 {
		writeError(w, r, s.logger, fmt.Errorf("%w: slug, title and a positive price are required", errBadRequest))
		return
	}

	if err := s.store.CreateCourse(r.Context(), &c); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "course": c})
}

func (s *Server) adminContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.store.ListContacts(r.Context(), listLimit(r))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "contacts": contacts})
}

func (s *Server) adminPayments(w http.ResponseWriter, r *http.Request) {
	status := models.PaymentStatus(strings.ToUpper(r.URL.Query().Get("status")))
	switch status {
	case "", models.PaymentInitiated, models.PaymentSuccess, models.PaymentCompleted, models.PaymentFailed:
	default:
		writeError(w, r, s.logger, fmt.Errorf("%w: unknown status %q", errBadRequest, status))
		return
	}

	payments, err := s.store.ListPayments(r.Context(), status, listLimit(r))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "payments": payments})
}

func (s *Server) adminSubmissions(w http.ResponseWriter, r *http.Request) {
	status := models.SubmissionStatus(strings.ToLower(r.URL.Query().Get("status")))
	switch status {
	case "", models.SubmissionPending, models.SubmissionApproved, models.SubmissionRejected:
	default:
		writeError(w, r, s.logger, fmt.Errorf("%w: unknown status %q", errBadRequest, status))
		return
	}

	subs, err := s.store.ListSubmissions(r.Context(), status, listLimit(r))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "submissions": subs})
}

func (s *Server) adminApproveSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reward float64 `json:"reward"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if req.Reward < 0 {
		writeError(w, r, s.logger, fmt.Errorf("%w: reward must not be negative", errBadRequest))
		return
	}
	s.review(w, r, true, req.Reward)
}

func (s *Server) adminRejectSubmission(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, false, 0)
}

func (s *Server) review(w http.ResponseWriter, r *http.Request, approve bool, reward float64) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, s.logger, fmt.Errorf("%w: invalid submission id", errBadRequest))
		return
	}

	sub, err := s.store.ReviewSubmission(r.Context(), uint(id), approve, reward)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Submission reviewed", "submission_id", sub.ID, "status", sub.Status, "reward", sub.Reward)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "submission": sub})
}
