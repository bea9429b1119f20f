package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prospectly/outreachd/internal/domain"
)

// SequenceHandler handles messaging-sequence endpoints.
type SequenceHandler struct {
	*Handler
}

// NewSequenceHandler creates a sequence handler.
func NewSequenceHandler(base *Handler) *SequenceHandler {
	return &SequenceHandler{Handler: base}
}

// RegisterRoutes registers sequence routes.
func (h *SequenceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sequences", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/activate", h.Activate)
		r.Post("/{id}/pause", h.Pause)
		r.Post("/{id}/resume", h.Resume)
		r.Post("/{id}/messages", h.AddMessage)
		r.Put("/{id}/messages/{pos}", h.UpdateMessage)
		r.Delete("/{id}/messages/{pos}", h.DeleteMessage)
		r.Post("/{id}/enroll", h.Enroll)
		r.Get("/{id}/enrollments", h.ListEnrollments)
	})
}

type createSequenceRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	IntervalDays int    `json:"interval_days"`
}

// Create registers a new draft sequence.
func (h *SequenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSequenceRequest
	if err := decode(r, &req); err != nil {
		WriteDomainError(w, err)
		return
	}

	seq, err := h.repo.CreateSequence(r.Context(), req.Name, req.Description, req.IntervalDays)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	slog.Info("sequence created", "sequence_id", seq.ID, "name", seq.Name)
	JSON(w, http.StatusCreated, seq)
}

// List returns all sequences with their messages.
func (h *SequenceHandler) List(w http.ResponseWriter, r *http.Request) {
	sequences, err := h.repo.ListSequences(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if sequences == nil {
		sequences = []*domain.Sequence{}
	}
	JSON(w, http.StatusOK, sequences)
}

// Get returns one sequence with its messages.
func (h *SequenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	seq, err := h.repo.GetSequence(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, seq)
}

// Delete removes a sequence, its messages and its enrollments.
func (h *SequenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.DeleteSequence(r.Context(), id); err != nil {
		WriteDomainError(w, err)
		return
	}
	slog.Info("sequence deleted", "sequence_id", id)
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Activate moves a sequence to active; pending enrollments go with it.
func (h *SequenceHandler) Activate(w http.ResponseWriter, r *http.Request) {
	seq, err := h.repo.ActivateSequence(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, seq)
}

// Pause suspends dispatch for the sequence.
func (h *SequenceHandler) Pause(w http.ResponseWriter, r *http.Request) {
	seq, err := h.repo.PauseSequence(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, seq)
}

// Resume reverses Pause.
func (h *SequenceHandler) Resume(w http.ResponseWriter, r *http.Request) {
	seq, err := h.repo.ResumeSequence(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, seq)
}

type messageRequest struct {
	Position   int    `json:"position"`
	DelayHours int    `json:"delay_hours"`
	Content    string `json:"content"`
}

// AddMessage appends a step to the sequence.
func (h *SequenceHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(r, &req); err != nil {
		WriteDomainError(w, err)
		return
	}

	msg, err := h.repo.AddMessage(r.Context(), chi.URLParam(r, "id"), req.Position, req.DelayHours, req.Content)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	JSON(w, http.StatusCreated, msg)
}

// UpdateMessage rewrites the step at the path position. The position in
// the body, if present, is ignored.
func (h *SequenceHandler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	pos, err := messagePosition(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	var req messageRequest
	if err := decode(r, &req); err != nil {
		WriteDomainError(w, err)
		return
	}

	msg, err := h.repo.UpdateMessage(r.Context(), chi.URLParam(r, "id"), pos, req.DelayHours, req.Content)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, msg)
}

// DeleteMessage removes the step at the path position.
func (h *SequenceHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	pos, err := messagePosition(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if err := h.repo.DeleteMessage(r.Context(), chi.URLParam(r, "id"), pos); err != nil {
		WriteDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type enrollRequest struct {
	ProspectIDs []string `json:"prospect_ids"`
}

// Enroll adds prospects to the sequence. Partial success is reported
// per prospect; already-enrolled prospects are skipped silently.
func (h *SequenceHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decode(r, &req); err != nil {
		WriteDomainError(w, err)
		return
	}
	if len(req.ProspectIDs) == 0 {
		WriteDomainError(w, domain.Validationf("prospect_ids cannot be empty"))
		return
	}

	result, err := h.repo.EnrollProspects(r.Context(), chi.URLParam(r, "id"), req.ProspectIDs, time.Now())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	slog.Info("prospects enrolled",
		"sequence_id", chi.URLParam(r, "id"),
		"enrolled", result.SuccessCount, "failed", len(result.Failures))
	JSON(w, http.StatusOK, result)
}

// ListEnrollments returns the sequence's enrollments.
func (h *SequenceHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.repo.GetSequence(r.Context(), id); err != nil {
		WriteDomainError(w, err)
		return
	}
	enrollments, err := h.repo.ListEnrollments(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if enrollments == nil {
		enrollments = []*domain.Enrollment{}
	}
	JSON(w, http.StatusOK, enrollments)
}

func messagePosition(r *http.Request) (int, error) {
	pos, err := strconv.Atoi(chi.URLParam(r, "pos"))
	if err != nil {
		return 0, domain.Validationf("message position must be an integer")
	}
	return pos, nil
}
