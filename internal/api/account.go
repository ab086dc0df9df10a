package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/store"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, r, s.logger, fmt.Errorf("%w: a valid email is required", errBadRequest))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, s.logger, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	if _, err := s.store.UserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, r, s.logger, fmt.Errorf("email already registered: %w", store.ErrConflict))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, r, s.logger, err)
		return
	}

	u := &models.User{Email: req.Email, Name: req.Name, Phone: req.Phone, PasswordHash: hash}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	if err := s.sessions.Login(w, u.ID, u.Email, auth.RoleUser); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	s.logger.InfoContext(r.Context(), "User registered", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": u})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	u, err := s.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = auth.ErrInvalidCredentials
		}
		writeError(w, r, s.logger, err)
		return
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	if err := s.sessions.Login(w, u.ID, u.Email, auth.RoleUser); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	a, err := s.store.AdminByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = auth.ErrInvalidCredentials
		}
		writeError(w, r, s.logger, err)
		return
	}
	if err := auth.CheckPassword(a.PasswordHash, req.Password); err != nil {
		s.logger.WarnContext(r.Context(), "Admin login failed", "email", a.Email)
		writeError(w, r, s.logger, err)
		return
	}

	if err := s.sessions.Login(w, a.ID, a.Email, auth.RoleAdmin); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	s.sessions.Logout(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// subjectUser resolves whose records a /api/me request reads. Admin sessions
// must name the user with ?userId=.
func subjectUser(r *http.Request) (uint, error) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return 0, auth.ErrUnauthorized
	}
	if claims.Role == auth.RoleUser {
		return claims.UserID()
	}

	id, err := strconv.ParseUint(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: userId query parameter is required for admin sessions", errBadRequest)
	}
	return uint(id), nil
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectUser(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// courseAccess reports whether the user has a settled purchase of the course.
func (s *Server) courseAccess(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectUser(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	slug := chi.URLParam(r, "slug")
	if _, err := s.store.CourseBySlug(r.Context(), slug); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	purchased, err := s.store.HasPurchased(r.Context(), userID, slug)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "slug": slug, "purchased": purchased})
}

func (s *Server) myPurchases(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectUser(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	purchases, err := s.store.PurchasesByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "purchases": purchases})
}

func (s *Server) myOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectUser(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	orders, err := s.store.OrdersByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": orders})
}

func (s *Server) myWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectUser(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	wallet, err := s.store.WalletByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "wallet": wallet})
}

func (s *Server) mySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectUser(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	subs, err := s.store.SubmissionsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "submissions": subs})
}

func (s *Server) createSubmission(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok || claims.Role != auth.RoleUser {
		writeError(w, r, s.logger, auth.ErrForbidden)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		writeError(w, r, s.logger, auth.ErrUnauthorized)
		return
	}

	var req struct {
		TaskID string `json:"taskId"`
		Proof  string `json:"proof"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if strings.TrimSpace(req.TaskID) == "" {
		writeError(w, r, s.logger, fmt.Errorf("%w: taskId is required", errBadRequest))
		return
	}

	sub := &models.TaskSubmission{UserID: userID, TaskID: req.TaskID, Proof: req.Proof}
	if err := s.store.CreateSubmission(r.Context(), sub); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "submission": sub})
}
