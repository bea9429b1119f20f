// Package api provides HTTP handlers for the outreach API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prospectly/outreachd/internal/domain"
	"github.com/prospectly/outreachd/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo store.Repository
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "internal", "reason": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response carrying a machine-readable kind
// and a human-readable reason.
func Error(w http.ResponseWriter, status int, kind, reason string) {
	JSON(w, status, map[string]string{"error": kind, "reason": reason})
}

// WriteDomainError maps a command rejection to its HTTP status.
// Anything without a domain kind is an internal error.
func WriteDomainError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		Error(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindInvalidTransition:
		status = http.StatusConflict
	case domain.KindPreconditionFailed:
		status = http.StatusPreconditionFailed
	}
	Error(w, status, string(de.Kind), de.Reason)
}

// Health reports store connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode parses a JSON request body into v.
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Validationf("invalid request body: %v", err)
	}
	return nil
}
