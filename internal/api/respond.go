package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/checkout"
	"storefront/internal/payment"
	"storefront/internal/store"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, checkout.ErrInvalidRequest),
		errors.Is(err, checkout.ErrMissingTransactionID),
		errors.Is(err, checkout.ErrInvalidPayload),
		errors.Is(err, checkout.ErrProviderFailed),
		errors.Is(err, payment.ErrUnknownGateway):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrInvalidSignature),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, checkout.ErrCourseUnavailable):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrAlreadyReviewed):
		return http.StatusConflict
	case errors.Is(err, payment.ErrAllProvidersFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code. 5xx bodies never carry the error text.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "status", status, "error", err)
		msg = "internal server error"
		if status == http.StatusBadGateway {
			msg = payment.ErrAllProvidersFailed.Error()
		}
	}

	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return body, nil
}
