package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/prospectly/outreachd/internal/domain"
	"github.com/prospectly/outreachd/internal/shared"
)

// transitionRetries bounds the compare-and-set loop when two callers
// race on the same session.
const transitionRetries = 3

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency. Pragmas go in
	// the DSN so every pooled connection gets them, foreign_keys in
	// particular.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		source_url TEXT NOT NULL,
		status TEXT NOT NULL,
		current_page INTEGER NOT NULL DEFAULT 0,
		scraped_count INTEGER NOT NULL DEFAULT 0,
		total_count INTEGER NOT NULL DEFAULT 0,
		last_prospect_name TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_active ON sessions(status)
		WHERE status IN ('running', 'paused');

	CREATE TABLE IF NOT EXISTS prospects (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		job_title TEXT NOT NULL DEFAULT '',
		headline TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		profile_url TEXT NOT NULL,
		scraped_at INTEGER NOT NULL,
		deleted_at INTEGER,
		UNIQUE(session_id, profile_url)
	);

	CREATE TABLE IF NOT EXISTS sequences (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		interval_days INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sequence_id TEXT NOT NULL REFERENCES sequences(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		delay_hours INTEGER NOT NULL,
		content TEXT NOT NULL,
		sent_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(sequence_id, position)
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		id TEXT PRIMARY KEY,
		sequence_id TEXT NOT NULL REFERENCES sequences(id) ON DELETE CASCADE,
		prospect_id TEXT NOT NULL REFERENCES prospects(id) ON DELETE CASCADE,
		current_step INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		connection_status TEXT NOT NULL DEFAULT 'not_connected',
		next_due_at INTEGER NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(sequence_id, prospect_id)
	);
	CREATE INDEX IF NOT EXISTS idx_enrollments_due ON enrollments(status, next_due_at);

	CREATE TABLE IF NOT EXISTS action_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_action_log_action ON action_log(action, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

const sessionColumns = `id, name, source_url, status, current_page, scraped_count,
	total_count, last_prospect_name, last_error, started_at, ended_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var sess domain.Session
	var status string
	var startedAt, createdAt, updatedAt int64
	var endedAt sql.NullInt64

	err := row.Scan(
		&sess.ID, &sess.Name, &sess.SourceURL, &status,
		&sess.CurrentPage, &sess.ScrapedProspects, &sess.TotalProspects,
		&sess.LastProspectName, &sess.LastError,
		&startedAt, &endedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sess.Status = domain.SessionStatus(status)
	sess.StartedAt = time.Unix(startedAt, 0)
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.UpdatedAt = time.Unix(updatedAt, 0)
	if endedAt.Valid {
		ts := time.Unix(endedAt.Int64, 0)
		sess.EndedAt = &ts
	}
	return &sess, nil
}

// CreateSession creates a session in the initializing state. The
// guarded INSERT is the explicit claim on the active-session slot: it
// refuses to create while any session is running or paused.
func (s *SQLiteStore) CreateSession(ctx context.Context, name, sourceURL string) (*domain.Session, error) {
	if sourceURL == "" {
		return nil, domain.Validationf("source_url cannot be empty")
	}
	if name == "" {
		return nil, domain.Validationf("name cannot be empty")
	}

	id := uuid.NewString()
	now := time.Now().Unix()
	query := `
		INSERT INTO sessions (id, name, source_url, status, started_at, created_at, updated_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM sessions WHERE status IN ('running', 'paused'))`

	result, err := s.db.ExecContext(ctx, query,
		id, name, sourceURL, string(domain.SessionInitializing), now, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, domain.Validationf("another session is already active")
	}

	return s.GetSession(ctx, id)
}

// GetSession retrieves one session.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	sess, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer closeRows(rows, "sessions")

	var sessions []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// TransitionSession applies a state-machine event with a compare-and-set
// update: the UPDATE only lands if the session is still in the status
// the transition was computed from. A start event additionally requires
// the active slot to be free.
func (s *SQLiteStore) TransitionSession(ctx context.Context, id string, event domain.SessionEvent, reason string) (*domain.Session, error) {
	for attempt := 0; attempt < transitionRetries; attempt++ {
		current, err := s.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}

		next, err := domain.NextSessionStatus(current.Status, event)
		if err != nil {
			return nil, err
		}

		now := time.Now().Unix()
		query := `UPDATE sessions SET status = ?, updated_at = ?`
		args := []any{string(next), now}

		if next.IsTerminal() {
			query += `, ended_at = ?`
			args = append(args, now)
		}
		if event == domain.SessionFail {
			query += `, last_error = ?`
			args = append(args, reason)
		}
		query += ` WHERE id = ? AND status = ?`
		args = append(args, id, string(current.Status))

		if event == domain.SessionStart {
			query += ` AND NOT EXISTS (
				SELECT 1 FROM sessions WHERE status IN ('running', 'paused') AND id != ?)`
			args = append(args, id)
		}

		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if shared.IsSQLiteConflictError(err) {
				slog.Debug("session transition hit a busy database, retrying",
					"session_id", id, "event", event, "attempt", attempt+1)
				continue
			}
			return nil, fmt.Errorf("transition session: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 1 {
			return s.GetSession(ctx, id)
		}

		// Lost a race: another caller moved the session first. Re-read
		// and recompute against the fresh status.
		slog.Debug("session transition CAS missed, retrying",
			"session_id", id, "event", event, "attempt", attempt+1)
	}

	return nil, domain.InvalidTransitionf("session %s changed concurrently, event %q not applied", id, event)
}

// UpdateSessionProgress records scrape-loop progress.
func (s *SQLiteStore) UpdateSessionProgress(ctx context.Context, id string, currentPage, scraped, total int, lastName string) error {
	query := `
		UPDATE sessions
		SET current_page = ?, scraped_count = ?, total_count = ?, last_prospect_name = ?, updated_at = ?
		WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, currentPage, scraped, total, lastName, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("update session progress: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("session %s not found", id)
	}
	return nil
}

// RecoverInterruptedSessions moves sessions left running by a crash to
// paused. An in-flight page fetch cannot be resumed safely, so the
// operator re-resumes explicitly from the preserved current_page.
func (s *SQLiteStore) RecoverInterruptedSessions(ctx context.Context) (int64, error) {
	query := `UPDATE sessions SET status = ?, updated_at = ? WHERE status = ?`
	result, err := s.db.ExecContext(ctx, query,
		string(domain.SessionPaused), time.Now().Unix(), string(domain.SessionRunning))
	if err != nil {
		return 0, fmt.Errorf("recover interrupted sessions: %w", err)
	}
	return result.RowsAffected()
}

// DeleteSession soft-deletes the session's prospects, removes their
// enrollments and deletes the session in one transaction.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete session: %w", err)
	}
	defer rollback(tx, "delete session")

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM enrollments WHERE prospect_id IN (SELECT id FROM prospects WHERE session_id = ?)`, id); err != nil {
		return fmt.Errorf("delete session enrollments: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE prospects SET deleted_at = ? WHERE session_id = ? AND deleted_at IS NULL`, now, id); err != nil {
		return fmt.Errorf("soft-delete session prospects: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("session %s not found", id)
	}

	return tx.Commit()
}

// InsertProspects persists a scraped batch. Duplicates within the
// session (same profile URL) are skipped via INSERT OR IGNORE.
func (s *SQLiteStore) InsertProspects(ctx context.Context, sessionID string, batch []domain.Prospect) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert prospects: %w", err)
	}
	defer rollback(tx, "insert prospects")

	query := `
		INSERT OR IGNORE INTO prospects
			(id, session_id, first_name, last_name, company, job_title, headline, location, profile_url, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	inserted := 0
	for i := range batch {
		p := &batch[i]
		scrapedAt := p.ScrapedAt
		if scrapedAt.IsZero() {
			scrapedAt = time.Now()
		}
		result, err := tx.ExecContext(ctx, query,
			uuid.NewString(), sessionID, p.FirstName, p.LastName, p.Company,
			p.JobTitle, p.Headline, p.Location, p.ProfileURL, scrapedAt.Unix())
		if err != nil {
			return 0, fmt.Errorf("insert prospect %s: %w", p.ProfileURL, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("get rows affected: %w", err)
		}
		inserted += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert prospects: %w", err)
	}
	return inserted, nil
}

const prospectColumns = `id, session_id, first_name, last_name, company, job_title,
	headline, location, profile_url, scraped_at, deleted_at`

func scanProspect(row rowScanner) (*domain.Prospect, error) {
	var p domain.Prospect
	var scrapedAt int64
	var deletedAt sql.NullInt64

	err := row.Scan(
		&p.ID, &p.SessionID, &p.FirstName, &p.LastName, &p.Company,
		&p.JobTitle, &p.Headline, &p.Location, &p.ProfileURL, &scrapedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ScrapedAt = time.Unix(scrapedAt, 0)
	if deletedAt.Valid {
		ts := time.Unix(deletedAt.Int64, 0)
		p.DeletedAt = &ts
	}
	return &p, nil
}

// ListProspects returns the session's non-deleted prospects.
func (s *SQLiteStore) ListProspects(ctx context.Context, sessionID string) ([]*domain.Prospect, error) {
	query := `SELECT ` + prospectColumns + `
		FROM prospects WHERE session_id = ? AND deleted_at IS NULL ORDER BY scraped_at`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query prospects: %w", err)
	}
	defer closeRows(rows, "prospects")

	var prospects []*domain.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prospect row: %w", err)
		}
		prospects = append(prospects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prospects: %w", err)
	}
	return prospects, nil
}

// GetProspect retrieves one prospect.
func (s *SQLiteStore) GetProspect(ctx context.Context, id string) (*domain.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE id = ?`
	p, err := scanProspect(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("prospect %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan prospect row: %w", err)
	}
	return p, nil
}

// CountProspectsScrapedSince counts prospects scraped at or after since.
func (s *SQLiteStore) CountProspectsScrapedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM prospects WHERE scraped_at >= ? AND deleted_at IS NULL`,
		since.Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scraped prospects: %w", err)
	}
	return count, nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}

func rollback(tx *sql.Tx, what string) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		slog.Warn("rollback failed", "op", what, "error", err)
	}
}
