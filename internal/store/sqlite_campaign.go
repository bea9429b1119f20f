package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prospectly/outreachd/internal/domain"
	"github.com/prospectly/outreachd/internal/policy"
	"github.com/prospectly/outreachd/internal/shared"
)

// CreateSequence creates a draft sequence with no messages.
func (s *SQLiteStore) CreateSequence(ctx context.Context, name, description string, intervalDays int) (*domain.Sequence, error) {
	if name == "" {
		return nil, domain.Validationf("name cannot be empty")
	}
	if intervalDays < 0 {
		return nil, domain.Validationf("interval_days cannot be negative")
	}

	id := uuid.NewString()
	now := time.Now().Unix()
	query := `
		INSERT INTO sequences (id, name, description, interval_days, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		id, name, description, intervalDays, string(domain.SequenceDraft), now, now); err != nil {
		return nil, fmt.Errorf("insert sequence: %w", err)
	}
	return s.GetSequence(ctx, id)
}

const sequenceColumns = `id, name, description, interval_days, status, created_at, updated_at`

func scanSequence(row rowScanner) (*domain.Sequence, error) {
	var seq domain.Sequence
	var status string
	var createdAt, updatedAt int64

	err := row.Scan(&seq.ID, &seq.Name, &seq.Description, &seq.IntervalDays,
		&status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	seq.Status = domain.SequenceStatus(status)
	seq.CreatedAt = time.Unix(createdAt, 0)
	seq.UpdatedAt = time.Unix(updatedAt, 0)
	return &seq, nil
}

// GetSequence retrieves a sequence with its messages ordered by position.
func (s *SQLiteStore) GetSequence(ctx context.Context, id string) (*domain.Sequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM sequences WHERE id = ?`
	seq, err := scanSequence(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("sequence %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan sequence row: %w", err)
	}

	messages, err := s.sequenceMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	seq.Messages = messages
	return seq, nil
}

// ListSequences returns all sequences with their messages.
func (s *SQLiteStore) ListSequences(ctx context.Context) ([]*domain.Sequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM sequences ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sequences: %w", err)
	}
	defer closeRows(rows, "sequences")

	var sequences []*domain.Sequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sequence row: %w", err)
		}
		sequences = append(sequences, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sequences: %w", err)
	}

	for _, seq := range sequences {
		messages, err := s.sequenceMessages(ctx, seq.ID)
		if err != nil {
			return nil, err
		}
		seq.Messages = messages
	}
	return sequences, nil
}

func (s *SQLiteStore) sequenceMessages(ctx context.Context, sequenceID string) ([]domain.Message, error) {
	query := `
		SELECT id, sequence_id, position, delay_hours, content, sent_count, created_at, updated_at
		FROM messages WHERE sequence_id = ? ORDER BY position`
	rows, err := s.db.QueryContext(ctx, query, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer closeRows(rows, "messages")

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var createdAt, updatedAt int64
		if err := rows.Scan(&m.ID, &m.SequenceID, &m.Position, &m.DelayHours,
			&m.Content, &m.SentCount, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		m.UpdatedAt = time.Unix(updatedAt, 0)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// ActivateSequence moves a draft or paused sequence to active. Pending
// enrollments become active in the same transaction.
func (s *SQLiteStore) ActivateSequence(ctx context.Context, id string) (*domain.Sequence, error) {
	seq, err := s.GetSequence(ctx, id)
	if err != nil {
		return nil, err
	}
	if seq.Status == domain.SequenceActive {
		return nil, domain.InvalidTransitionf("sequence %s is already active", id)
	}
	if seq.Status == domain.SequenceCompleted {
		return nil, domain.InvalidTransitionf("sequence %s is completed", id)
	}
	if len(seq.Messages) == 0 {
		return nil, domain.PreconditionFailedf("sequence %s has no messages", id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin activate sequence: %w", err)
	}
	defer rollback(tx, "activate sequence")

	now := time.Now().Unix()
	result, err := tx.ExecContext(ctx,
		`UPDATE sequences SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(domain.SequenceActive), now, id, string(seq.Status))
	if err != nil {
		return nil, fmt.Errorf("activate sequence: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, domain.InvalidTransitionf("sequence %s changed concurrently", id)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE enrollments SET status = ?, updated_at = ? WHERE sequence_id = ? AND status = ?`,
		string(domain.EnrollmentActive), now, id, string(domain.EnrollmentPending)); err != nil {
		return nil, fmt.Errorf("activate pending enrollments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit activate sequence: %w", err)
	}
	return s.GetSequence(ctx, id)
}

// PauseSequence pauses the sequence and its active enrollments without
// touching current_step or next_due_at.
func (s *SQLiteStore) PauseSequence(ctx context.Context, id string) (*domain.Sequence, error) {
	return s.flipSequence(ctx, id,
		domain.SequenceActive, domain.SequencePaused,
		domain.EnrollmentActive, domain.EnrollmentPaused)
}

// ResumeSequence reverses PauseSequence.
func (s *SQLiteStore) ResumeSequence(ctx context.Context, id string) (*domain.Sequence, error) {
	return s.flipSequence(ctx, id,
		domain.SequencePaused, domain.SequenceActive,
		domain.EnrollmentPaused, domain.EnrollmentActive)
}

func (s *SQLiteStore) flipSequence(ctx context.Context, id string,
	seqFrom, seqTo domain.SequenceStatus, enrFrom, enrTo domain.EnrollmentStatus) (*domain.Sequence, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sequence status flip: %w", err)
	}
	defer rollback(tx, "sequence status flip")

	now := time.Now().Unix()
	result, err := tx.ExecContext(ctx,
		`UPDATE sequences SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(seqTo), now, id, string(seqFrom))
	if err != nil {
		return nil, fmt.Errorf("update sequence status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// Either absent or not in the expected status.
		if _, getErr := s.GetSequence(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, domain.InvalidTransitionf("sequence %s is not %s", id, seqFrom)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE enrollments SET status = ?, updated_at = ? WHERE sequence_id = ? AND status = ?`,
		string(enrTo), now, id, string(enrFrom)); err != nil {
		return nil, fmt.Errorf("flip enrollments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sequence status flip: %w", err)
	}
	return s.GetSequence(ctx, id)
}

// DeleteSequence removes the sequence; messages and enrollments cascade.
func (s *SQLiteStore) DeleteSequence(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sequences WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sequence: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("sequence %s not found", id)
	}
	return nil
}

// AddMessage appends a step to a sequence. The unique index on
// (sequence_id, position) turns duplicate positions into a
// ValidationError.
func (s *SQLiteStore) AddMessage(ctx context.Context, sequenceID string, position, delayHours int, content string) (*domain.Message, error) {
	if err := domain.ValidateMessage(position, delayHours, content); err != nil {
		return nil, err
	}
	if _, err := s.GetSequence(ctx, sequenceID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().Unix()
	query := `
		INSERT INTO messages (id, sequence_id, position, delay_hours, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id, sequenceID, position, delayHours, content, now, now); err != nil {
		if shared.IsSQLiteConstraintError(err) {
			return nil, domain.Validationf("position %d is already used in sequence %s", position, sequenceID)
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return s.getMessage(ctx, sequenceID, position)
}

// UpdateMessage rewrites the step at the given position.
func (s *SQLiteStore) UpdateMessage(ctx context.Context, sequenceID string, position, delayHours int, content string) (*domain.Message, error) {
	if err := domain.ValidateMessage(position, delayHours, content); err != nil {
		return nil, err
	}

	query := `
		UPDATE messages SET delay_hours = ?, content = ?, updated_at = ?
		WHERE sequence_id = ? AND position = ?`
	result, err := s.db.ExecContext(ctx, query, delayHours, content, time.Now().Unix(), sequenceID, position)
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, domain.NotFoundf("sequence %s has no message at position %d", sequenceID, position)
	}
	return s.getMessage(ctx, sequenceID, position)
}

// DeleteMessage removes the step at the given position.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, sequenceID string, position int) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE sequence_id = ? AND position = ?`, sequenceID, position)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("sequence %s has no message at position %d", sequenceID, position)
	}
	return nil
}

func (s *SQLiteStore) getMessage(ctx context.Context, sequenceID string, position int) (*domain.Message, error) {
	query := `
		SELECT id, sequence_id, position, delay_hours, content, sent_count, created_at, updated_at
		FROM messages WHERE sequence_id = ? AND position = ?`
	var m domain.Message
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, sequenceID, position).Scan(
		&m.ID, &m.SequenceID, &m.Position, &m.DelayHours, &m.Content,
		&m.SentCount, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("sequence %s has no message at position %d", sequenceID, position)
	}
	if err != nil {
		return nil, fmt.Errorf("scan message row: %w", err)
	}
	m.CreatedAt = time.Unix(createdAt, 0)
	m.UpdatedAt = time.Unix(updatedAt, 0)
	return &m, nil
}

// EnrollProspects adds prospects to a sequence. Already-enrolled
// prospects are skipped via INSERT OR IGNORE; missing or deleted
// prospects are reported as per-prospect failures.
func (s *SQLiteStore) EnrollProspects(ctx context.Context, sequenceID string, prospectIDs []string, now time.Time) (*domain.EnrollmentResult, error) {
	seq, err := s.GetSequence(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	// First step due: its delay counts from enrollment. A sequence
	// without messages yet gets due-now enrollments; activation
	// requires at least one message before anything is sent.
	nextDue := now
	if first := seq.MessageAt(1); first != nil {
		nextDue = now.Add(time.Duration(first.DelayHours) * time.Hour)
	}

	status := domain.EnrollmentPending
	if seq.Status == domain.SequenceActive {
		status = domain.EnrollmentActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enroll prospects: %w", err)
	}
	defer rollback(tx, "enroll prospects")

	result := &domain.EnrollmentResult{}
	nowUnix := now.Unix()
	for _, prospectID := range prospectIDs {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM prospects WHERE id = ? AND deleted_at IS NULL`, prospectID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check prospect %s: %w", prospectID, err)
		}
		if exists == 0 {
			result.Failures = append(result.Failures, domain.EnrollmentFailure{
				ProspectID: prospectID,
				Reason:     "prospect not found",
			})
			continue
		}

		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO enrollments
				(id, sequence_id, prospect_id, status, connection_status, next_due_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), sequenceID, prospectID, string(status),
			string(domain.NotConnected), nextDue.Unix(), nowUnix, nowUnix)
		if err != nil {
			return nil, fmt.Errorf("enroll prospect %s: %w", prospectID, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("get rows affected: %w", err)
		}
		result.SuccessCount += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enroll prospects: %w", err)
	}
	return result, nil
}

const enrollmentColumns = `id, sequence_id, prospect_id, current_step, status,
	connection_status, next_due_at, attempts, last_error, created_at, updated_at`

func scanEnrollment(row rowScanner) (*domain.Enrollment, error) {
	var e domain.Enrollment
	var status, connStatus string
	var nextDueAt, createdAt, updatedAt int64

	err := row.Scan(&e.ID, &e.SequenceID, &e.ProspectID, &e.CurrentStep,
		&status, &connStatus, &nextDueAt, &e.Attempts, &e.LastError,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = domain.EnrollmentStatus(status)
	e.ConnectionStatus = domain.ConnectionStatus(connStatus)
	e.NextDueAt = time.Unix(nextDueAt, 0)
	e.CreatedAt = time.Unix(createdAt, 0)
	e.UpdatedAt = time.Unix(updatedAt, 0)
	return &e, nil
}

// ListEnrollments returns a sequence's enrollments.
func (s *SQLiteStore) ListEnrollments(ctx context.Context, sequenceID string) ([]*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE sequence_id = ? ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer closeRows(rows, "enrollments")

	return collectEnrollments(rows)
}

// DueEnrollments returns active enrollments due at or before now,
// oldest due first so starved enrollments are served before fresh ones.
func (s *SQLiteStore) DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE status = ? AND next_due_at <= ?
		ORDER BY next_due_at ASC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, string(domain.EnrollmentActive), now.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("query due enrollments: %w", err)
	}
	defer closeRows(rows, "due enrollments")

	return collectEnrollments(rows)
}

func collectEnrollments(rows *sql.Rows) ([]*domain.Enrollment, error) {
	var enrollments []*domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment row: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return enrollments, nil
}

// GetEnrollment retrieves one enrollment.
func (s *SQLiteStore) GetEnrollment(ctx context.Context, id string) (*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = ?`
	e, err := scanEnrollment(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("enrollment %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan enrollment row: %w", err)
	}
	return e, nil
}

// AdvanceEnrollment records a successful send of the step at position
// newStep. The update is guarded on current_step < newStep so a
// duplicate dispatch of the same step cannot double-advance, while
// gapped positions still move forward.
func (s *SQLiteStore) AdvanceEnrollment(ctx context.Context, id string, newStep int, nextDueAt time.Time, completed bool) (*domain.Enrollment, error) {
	status := domain.EnrollmentActive
	if completed {
		status = domain.EnrollmentCompleted
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin advance enrollment: %w", err)
	}
	defer rollback(tx, "advance enrollment")

	now := time.Now().Unix()
	result, err := tx.ExecContext(ctx, `
		UPDATE enrollments
		SET current_step = ?, status = ?, next_due_at = ?, attempts = 0, last_error = '', updated_at = ?
		WHERE id = ? AND current_step < ? AND status = ?`,
		newStep, string(status), nextDueAt.Unix(), now,
		id, newStep, string(domain.EnrollmentActive))
	if err != nil {
		return nil, fmt.Errorf("advance enrollment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		if _, getErr := s.GetEnrollment(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, domain.InvalidTransitionf("enrollment %s cannot advance to step %d", id, newStep)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE messages SET sent_count = sent_count + 1
		WHERE sequence_id = (SELECT sequence_id FROM enrollments WHERE id = ?) AND position = ?`,
		id, newStep); err != nil {
		return nil, fmt.Errorf("bump message sent count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit advance enrollment: %w", err)
	}
	return s.GetEnrollment(ctx, id)
}

// DeferEnrollment pushes next_due_at forward after a transient failure.
func (s *SQLiteStore) DeferEnrollment(ctx context.Context, id string, nextDueAt time.Time, reason string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE enrollments
		SET next_due_at = ?, attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		nextDueAt.Unix(), reason, time.Now().Unix(), id, string(domain.EnrollmentActive))
	if err != nil {
		return fmt.Errorf("defer enrollment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("active enrollment %s not found", id)
	}
	return nil
}

// CompleteEnrollment marks an active enrollment completed without a
// send, for when no steps remain ahead of its current position.
func (s *SQLiteStore) CompleteEnrollment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE enrollments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(domain.EnrollmentCompleted), time.Now().Unix(), id, string(domain.EnrollmentActive))
	if err != nil {
		return fmt.Errorf("complete enrollment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("active enrollment %s not found", id)
	}
	return nil
}

// RescheduleEnrollment moves next_due_at without touching the attempt
// counter. Used while waiting on an invitation acceptance, which is not
// a send failure.
func (s *SQLiteStore) RescheduleEnrollment(ctx context.Context, id string, nextDueAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE enrollments SET next_due_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		nextDueAt.Unix(), time.Now().Unix(), id, string(domain.EnrollmentActive))
	if err != nil {
		return fmt.Errorf("reschedule enrollment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("active enrollment %s not found", id)
	}
	return nil
}

// FailEnrollment marks an enrollment permanently failed.
func (s *SQLiteStore) FailEnrollment(ctx context.Context, id string, reason string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE enrollments SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		string(domain.EnrollmentFailed), reason, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("fail enrollment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("enrollment %s not found", id)
	}
	return nil
}

// MarkConnectionStatus updates the platform relationship state.
func (s *SQLiteStore) MarkConnectionStatus(ctx context.Context, id string, status domain.ConnectionStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE enrollments SET connection_status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("mark connection status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("enrollment %s not found", id)
	}
	return nil
}

// LogAction records one executed platform action for quota accounting.
func (s *SQLiteStore) LogAction(ctx context.Context, action policy.ActionType, at time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO action_log (action, created_at) VALUES (?, ?)`,
		string(action), at.Unix()); err != nil {
		return fmt.Errorf("log action: %w", err)
	}
	return nil
}

// CountActionsSince counts actions of the given type at or after since.
func (s *SQLiteStore) CountActionsSince(ctx context.Context, action policy.ActionType, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM action_log WHERE action = ? AND created_at >= ?`,
		string(action), since.Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return count, nil
}
