package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prospectly/outreachd/internal/domain"
)

// SessionController drives the scrape worker for a session. It is
// satisfied by scraper.Runner.
type SessionController interface {
	Start(ctx context.Context, sessionID string) (*domain.Session, error)
	Pause(ctx context.Context, sessionID string) (*domain.Session, error)
	Resume(ctx context.Context, sessionID string) (*domain.Session, error)
	Stop(ctx context.Context, sessionID string) (*domain.Session, error)
}

// SessionHandler handles scraping-session endpoints.
type SessionHandler struct {
	*Handler
	runner SessionController
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(base *Handler, runner SessionController) *SessionHandler {
	return &SessionHandler{Handler: base, runner: runner}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/prospects", h.ListProspects)
		r.Post("/{id}/start", h.Start)
		r.Post("/{id}/pause", h.Pause)
		r.Post("/{id}/resume", h.Resume)
		r.Post("/{id}/stop", h.Stop)
	})
}

type createSessionRequest struct {
	Name      string `json:"name"`
	SourceURL string `json:"source_url"`
}

// Create registers a new session in the initializing state.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		WriteDomainError(w, err)
		return
	}

	sess, err := h.repo.CreateSession(r.Context(), req.Name, req.SourceURL)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	slog.Info("session created", "session_id", sess.ID, "source_url", sess.SourceURL)
	JSON(w, http.StatusCreated, sess)
}

// List returns all sessions, newest first.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.repo.ListSessions(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	JSON(w, http.StatusOK, sessions)
}

// Get returns one session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.repo.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, sess)
}

// Delete removes a session and soft-deletes its prospects.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.DeleteSession(r.Context(), id); err != nil {
		WriteDomainError(w, err)
		return
	}
	slog.Info("session deleted", "session_id", id)
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListProspects returns the session's scraped prospects.
func (h *SessionHandler) ListProspects(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.repo.GetSession(r.Context(), id); err != nil {
		WriteDomainError(w, err)
		return
	}
	prospects, err := h.repo.ListProspects(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if prospects == nil {
		prospects = []*domain.Prospect{}
	}
	JSON(w, http.StatusOK, prospects)
}

// Start launches the scrape worker for the session.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.runner.Start)
}

// Pause suspends the session after its in-flight page.
func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.runner.Pause)
}

// Resume continues a paused session from its preserved page.
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.runner.Resume)
}

// Stop terminates the session, keeping prospects scraped so far.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.runner.Stop)
}

func (h *SessionHandler) control(w http.ResponseWriter, r *http.Request,
	cmd func(context.Context, string) (*domain.Session, error)) {

	sess, err := cmd(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, sess)
}
