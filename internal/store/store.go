// Package store provides durable state for sessions, sequences,
// enrollments and prospects. All mutating operations are atomic and
// return the post-mutation entity.
package store

import (
	"context"
	"time"

	"github.com/prospectly/outreachd/internal/domain"
	"github.com/prospectly/outreachd/internal/policy"
)

// Repository is the campaign store contract. Concurrent callers never
// observe a half-applied transition; conflicting writes are serialized
// by compare-and-set updates inside the implementation.
type Repository interface {
	// CreateSession creates a session in the initializing state. It
	// fails with ValidationError when sourceURL is empty or another
	// session currently holds the active slot (running or paused).
	CreateSession(ctx context.Context, name, sourceURL string) (*domain.Session, error)

	// GetSession retrieves one session, or a NotFound error.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// ListSessions returns all sessions, newest first.
	ListSessions(ctx context.Context) ([]*domain.Session, error)

	// TransitionSession applies a state-machine event atomically and
	// returns the updated session. Illegal events fail with
	// InvalidTransition and leave the session untouched. The reason is
	// recorded as last_error for fail events and ignored otherwise.
	TransitionSession(ctx context.Context, id string, event domain.SessionEvent, reason string) (*domain.Session, error)

	// UpdateSessionProgress records scrape-loop progress for a session.
	UpdateSessionProgress(ctx context.Context, id string, currentPage, scraped, total int, lastName string) error

	// RecoverInterruptedSessions flips sessions left running by a crash
	// to paused. Called once at boot, before the schedulers start.
	RecoverInterruptedSessions(ctx context.Context) (int64, error)

	// DeleteSession soft-deletes the session's prospects and removes
	// their enrollments, then deletes the session itself, atomically.
	DeleteSession(ctx context.Context, id string) error

	// InsertProspects persists a scraped batch, skipping duplicates by
	// profile URL within the session. Returns how many rows were new.
	InsertProspects(ctx context.Context, sessionID string, batch []domain.Prospect) (int, error)

	// ListProspects returns the session's non-deleted prospects.
	ListProspects(ctx context.Context, sessionID string) ([]*domain.Prospect, error)

	// GetProspect retrieves one prospect, or a NotFound error.
	GetProspect(ctx context.Context, id string) (*domain.Prospect, error)

	// CountProspectsScrapedSince counts prospects scraped at or after
	// since across all sessions, for the daily scrape quota.
	CountProspectsScrapedSince(ctx context.Context, since time.Time) (int, error)

	// CreateSequence creates a draft sequence with no messages.
	CreateSequence(ctx context.Context, name, description string, intervalDays int) (*domain.Sequence, error)

	// GetSequence retrieves a sequence with its messages ordered by
	// position, or a NotFound error.
	GetSequence(ctx context.Context, id string) (*domain.Sequence, error)

	// ListSequences returns all sequences with their messages.
	ListSequences(ctx context.Context) ([]*domain.Sequence, error)

	// ActivateSequence moves a sequence to active. It fails with
	// PreconditionFailed when the sequence has no messages. Pending
	// enrollments become active in the same transaction.
	ActivateSequence(ctx context.Context, id string) (*domain.Sequence, error)

	// PauseSequence pauses the sequence and all of its active
	// enrollments without touching current_step or next_due_at.
	PauseSequence(ctx context.Context, id string) (*domain.Sequence, error)

	// ResumeSequence reverses PauseSequence.
	ResumeSequence(ctx context.Context, id string) (*domain.Sequence, error)

	// DeleteSequence removes the sequence, its messages and its
	// enrollments (cascade).
	DeleteSequence(ctx context.Context, id string) error

	// AddMessage appends a step. Duplicate positions fail with
	// ValidationError.
	AddMessage(ctx context.Context, sequenceID string, position, delayHours int, content string) (*domain.Message, error)

	// UpdateMessage rewrites the step at the given position.
	UpdateMessage(ctx context.Context, sequenceID string, position, delayHours int, content string) (*domain.Message, error)

	// DeleteMessage removes the step at the given position.
	DeleteMessage(ctx context.Context, sequenceID string, position int) error

	// EnrollProspects adds prospects to a sequence. Prospects already
	// enrolled in the same sequence are skipped, not errors; partial
	// success is reported per prospect.
	EnrollProspects(ctx context.Context, sequenceID string, prospectIDs []string, now time.Time) (*domain.EnrollmentResult, error)

	// ListEnrollments returns a sequence's enrollments.
	ListEnrollments(ctx context.Context, sequenceID string) ([]*domain.Enrollment, error)

	// GetEnrollment retrieves one enrollment, or a NotFound error.
	GetEnrollment(ctx context.Context, id string) (*domain.Enrollment, error)

	// DueEnrollments returns active enrollments with next_due_at <= now,
	// oldest due first, capped at limit.
	DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*domain.Enrollment, error)

	// AdvanceEnrollment records a successful send of the step at
	// position newStep and schedules the next one, or completes the
	// enrollment. newStep must be ahead of the current step; positions
	// may be gapped.
	AdvanceEnrollment(ctx context.Context, id string, newStep int, nextDueAt time.Time, completed bool) (*domain.Enrollment, error)

	// CompleteEnrollment marks an active enrollment completed without a
	// send, for when no steps remain ahead of its current position.
	CompleteEnrollment(ctx context.Context, id string) error

	// DeferEnrollment pushes next_due_at forward after a transient send
	// failure, incrementing the attempt counter.
	DeferEnrollment(ctx context.Context, id string, nextDueAt time.Time, reason string) error

	// RescheduleEnrollment moves next_due_at without incrementing the
	// attempt counter, for waits that are not failures.
	RescheduleEnrollment(ctx context.Context, id string, nextDueAt time.Time) error

	// FailEnrollment marks an enrollment permanently failed.
	FailEnrollment(ctx context.Context, id string, reason string) error

	// MarkConnectionStatus updates the platform relationship state for
	// an enrollment.
	MarkConnectionStatus(ctx context.Context, id string, status domain.ConnectionStatus) error

	// LogAction records one executed platform action for quota
	// accounting.
	LogAction(ctx context.Context, action policy.ActionType, at time.Time) error

	// CountActionsSince counts actions of the given type recorded at or
	// after since. Used with policy.DayStart for the daily quota.
	CountActionsSince(ctx context.Context, action policy.ActionType, since time.Time) (int, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
