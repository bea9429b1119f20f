package api

import (
	"net/http"

	"github.com/prospectly/outreachd/internal/domain"
)

// StatusCatalog returns presentation metadata for every status value.
// The frontend renders badges from this single table instead of
// hardcoding label/color pairs.
func (h *Handler) StatusCatalog(w http.ResponseWriter, r *http.Request) {
	sessions := map[string]domain.StatusMeta{}
	for _, s := range []domain.SessionStatus{
		domain.SessionInitializing, domain.SessionRunning, domain.SessionPaused,
		domain.SessionCompleted, domain.SessionError, domain.SessionStopped,
	} {
		sessions[string(s)] = s.Meta()
	}

	sequences := map[string]domain.StatusMeta{}
	for _, s := range []domain.SequenceStatus{
		domain.SequenceDraft, domain.SequenceActive, domain.SequencePaused, domain.SequenceCompleted,
	} {
		sequences[string(s)] = s.Meta()
	}

	enrollments := map[string]domain.StatusMeta{}
	for _, s := range []domain.EnrollmentStatus{
		domain.EnrollmentPending, domain.EnrollmentActive, domain.EnrollmentPaused,
		domain.EnrollmentCompleted, domain.EnrollmentFailed,
	} {
		enrollments[string(s)] = s.Meta()
	}

	JSON(w, http.StatusOK, map[string]any{
		"sessions":    sessions,
		"sequences":   sequences,
		"enrollments": enrollments,
	})
}
