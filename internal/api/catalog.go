package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"storefront/internal/models"
	"storefront/internal/store"
)

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.store.ListCourses(r.Context(), false)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "courses": courses})
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) {
	course, err := s.store.CourseBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err == nil && !course.Published {
		err = store.ErrNotFound
	}
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "course": course})
}

func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || !strings.Contains(req.Email, "@") || strings.TrimSpace(req.Message) == "" {
		writeError(w, r, s.logger, fmt.Errorf("%w: name, email and message are required", errBadRequest))
		return
	}

	c := &models.Contact{Name: req.Name, Email: req.Email, Message: req.Message}
	if err := s.store.CreateContact(r.Context(), c); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}
