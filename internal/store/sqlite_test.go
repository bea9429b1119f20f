package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prospectly/outreachd/internal/domain"
	"github.com/prospectly/outreachd/internal/policy"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "outreach.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("close test store: %v", err)
		}
	})
	return repo
}

func mustCreateSession(t *testing.T, repo Repository) *domain.Session {
	t.Helper()
	sess, err := repo.CreateSession(context.Background(), "test run", "https://platform.example/search?q=cto")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func mustTransition(t *testing.T, repo Repository, id string, event domain.SessionEvent) *domain.Session {
	t.Helper()
	sess, err := repo.TransitionSession(context.Background(), id, event, "")
	if err != nil {
		t.Fatalf("transition %s: %v", event, err)
	}
	return sess
}

func TestCreateSession_Validation(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if _, err := repo.CreateSession(ctx, "run", ""); !domain.IsKind(err, domain.KindValidation) {
		t.Errorf("empty source_url: expected ValidationError, got %v", err)
	}
	if _, err := repo.CreateSession(ctx, "", "https://x"); !domain.IsKind(err, domain.KindValidation) {
		t.Errorf("empty name: expected ValidationError, got %v", err)
	}
}

func TestCreateSession_RejectsWhileActive(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	sess := mustCreateSession(t, repo)
	mustTransition(t, repo, sess.ID, domain.SessionStart)

	if _, err := repo.CreateSession(ctx, "second", "https://x"); !domain.IsKind(err, domain.KindValidation) {
		t.Errorf("expected ValidationError while a session is running, got %v", err)
	}

	mustTransition(t, repo, sess.ID, domain.SessionPause)
	if _, err := repo.CreateSession(ctx, "third", "https://x"); !domain.IsKind(err, domain.KindValidation) {
		t.Errorf("expected ValidationError while a session is paused, got %v", err)
	}

	// A terminal session releases the slot.
	mustTransition(t, repo, sess.ID, domain.SessionStop)
	if _, err := repo.CreateSession(ctx, "fourth", "https://x"); err != nil {
		t.Errorf("expected creation to succeed after stop, got %v", err)
	}
}

// At most one session holds the active slot even when start commands
// race.
func TestTransitionSession_ConcurrentStartExclusivity(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	first := mustCreateSession(t, repo)
	// Free the slot check for creation only applies to running|paused,
	// so a second initializing session can exist alongside the first.
	second, err := repo.CreateSession(ctx, "rival", "https://platform.example/search?q=vp")
	if err != nil {
		t.Fatalf("create second session: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = repo.TransitionSession(ctx, id, domain.SessionStart, "")
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one start to win, got %d", succeeded)
	}

	sessions, err := repo.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	active := 0
	for _, s := range sessions {
		if s.Status.IsActive() {
			active++
		}
	}
	if active != 1 {
		t.Errorf("expected exactly one active session, got %d", active)
	}
}

func TestTransitionSession_IllegalEventLeavesStateUntouched(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	sess := mustCreateSession(t, repo)

	// pause is not legal from initializing.
	if _, err := repo.TransitionSession(ctx, sess.ID, domain.SessionPause, ""); !domain.IsKind(err, domain.KindInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}

	got, err := repo.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Status != domain.SessionInitializing {
		t.Errorf("status mutated by rejected event: %s", got.Status)
	}
}

func TestTransitionSession_TerminalStatesAcceptNothing(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	sess := mustCreateSession(t, repo)
	mustTransition(t, repo, sess.ID, domain.SessionStart)
	mustTransition(t, repo, sess.ID, domain.SessionComplete)

	for _, ev := range []domain.SessionEvent{
		domain.SessionStart, domain.SessionPause, domain.SessionResume,
		domain.SessionStop, domain.SessionComplete, domain.SessionFail,
	} {
		if _, err := repo.TransitionSession(ctx, sess.ID, ev, ""); !domain.IsKind(err, domain.KindInvalidTransition) {
			t.Errorf("completed --%s-->: expected InvalidTransition, got %v", ev, err)
		}
	}
}

func TestRecoverInterruptedSessions(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	sess := mustCreateSession(t, repo)
	mustTransition(t, repo, sess.ID, domain.SessionStart)
	if err := repo.UpdateSessionProgress(ctx, sess.ID, 7, 63, 200, "Jane Doe"); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	n, err := repo.RecoverInterruptedSessions(ctx)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 recovered session, got %d", n)
	}

	got, err := repo.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Status != domain.SessionPaused {
		t.Errorf("expected paused after recovery, got %s", got.Status)
	}
	if got.CurrentPage != 7 {
		t.Errorf("current_page must survive recovery, got %d", got.CurrentPage)
	}

	// The recovered session resumes where it left off.
	resumed := mustTransition(t, repo, sess.ID, domain.SessionResume)
	if resumed.CurrentPage != 7 {
		t.Errorf("resume reset current_page to %d", resumed.CurrentPage)
	}
}

func TestInsertProspects_DedupByProfileURL(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	sess := mustCreateSession(t, repo)
	batch := []domain.Prospect{
		{FirstName: "Ann", LastName: "Lee", ProfileURL: "https://platform.example/in/ann"},
		{FirstName: "Bob", LastName: "Ray", ProfileURL: "https://platform.example/in/bob"},
	}

	n, err := repo.InsertProspects(ctx, sess.ID, batch)
	if err != nil {
		t.Fatalf("insert prospects: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}

	// Re-scraping the same page inserts nothing new.
	n, err = repo.InsertProspects(ctx, sess.ID, batch)
	if err != nil {
		t.Fatalf("re-insert prospects: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 inserted on duplicate batch, got %d", n)
	}

	prospects, err := repo.ListProspects(ctx, sess.ID)
	if err != nil {
		t.Fatalf("list prospects: %v", err)
	}
	if len(prospects) != 2 {
		t.Errorf("expected 2 prospects, got %d", len(prospects))
	}
}

func seedSequence(t *testing.T, repo Repository, delays ...int) *domain.Sequence {
	t.Helper()
	ctx := context.Background()
	seq, err := repo.CreateSequence(ctx, "campaign", "outreach", 3)
	if err != nil {
		t.Fatalf("create sequence: %v", err)
	}
	for i, d := range delays {
		if _, err := repo.AddMessage(ctx, seq.ID, i+1, d, "step content"); err != nil {
			t.Fatalf("add message %d: %v", i+1, err)
		}
	}
	return seq
}

func seedProspects(t *testing.T, repo Repository, n int) []string {
	t.Helper()
	ctx := context.Background()
	sess := mustCreateSession(t, repo)
	var batch []domain.Prospect
	for i := 0; i < n; i++ {
		batch = append(batch, domain.Prospect{
			FirstName:  "P",
			LastName:   string(rune('A' + i)),
			ProfileURL: "https://platform.example/in/p" + string(rune('a'+i)),
		})
	}
	if _, err := repo.InsertProspects(ctx, sess.ID, batch); err != nil {
		t.Fatalf("insert prospects: %v", err)
	}
	prospects, err := repo.ListProspects(ctx, sess.ID)
	if err != nil {
		t.Fatalf("list prospects: %v", err)
	}
	ids := make([]string, 0, len(prospects))
	for _, p := range prospects {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestAddMessage_DuplicatePosition(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	seq := seedSequence(t, repo, 24)
	_, err := repo.AddMessage(ctx, seq.ID, 1, 48, "second at same position")
	if !domain.IsKind(err, domain.KindValidation) {
		t.Errorf("expected ValidationError for duplicate position, got %v", err)
	}
}

func TestActivateSequence_RequiresMessages(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	seq := seedSequence(t, repo)
	if _, err := repo.ActivateSequence(ctx, seq.ID); !domain.IsKind(err, domain.KindPreconditionFailed) {
		t.Errorf("expected PreconditionFailed for empty sequence, got %v", err)
	}

	if _, err := repo.AddMessage(ctx, seq.ID, 1, 24, "hello"); err != nil {
		t.Fatalf("add message: %v", err)
	}
	activated, err := repo.ActivateSequence(ctx, seq.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if activated.Status != domain.SequenceActive {
		t.Errorf("expected active, got %s", activated.Status)
	}
}

func TestEnrollProspects_Idempotent(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seq := seedSequence(t, repo, 24)
	ids := seedProspects(t, repo, 3)

	res, err := repo.EnrollProspects(ctx, seq.ID, ids[:2], now)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if res.SuccessCount != 2 {
		t.Fatalf("expected 2 enrolled, got %d", res.SuccessCount)
	}

	// Overlapping second call counts only the new prospect.
	res, err = repo.EnrollProspects(ctx, seq.ID, ids, now)
	if err != nil {
		t.Fatalf("second enroll: %v", err)
	}
	if res.SuccessCount != 1 {
		t.Errorf("expected 1 newly enrolled, got %d", res.SuccessCount)
	}

	enrollments, err := repo.ListEnrollments(ctx, seq.ID)
	if err != nil {
		t.Fatalf("list enrollments: %v", err)
	}
	if len(enrollments) != 3 {
		t.Errorf("expected 3 enrollment rows, got %d", len(enrollments))
	}

	seen := make(map[string]bool)
	for _, e := range enrollments {
		if seen[e.ProspectID] {
			t.Errorf("duplicate enrollment for prospect %s", e.ProspectID)
		}
		seen[e.ProspectID] = true
	}
}

func TestEnrollProspects_ReportsPartialFailures(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	seq := seedSequence(t, repo, 24)
	ids := seedProspects(t, repo, 1)

	res, err := repo.EnrollProspects(ctx, seq.ID, append(ids, "missing-prospect"), time.Now())
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if res.SuccessCount != 1 {
		t.Errorf("expected 1 success, got %d", res.SuccessCount)
	}
	if len(res.Failures) != 1 || res.Failures[0].ProspectID != "missing-prospect" {
		t.Errorf("expected one failure for missing prospect, got %+v", res.Failures)
	}
}

func TestDueEnrollments_OldestFirst(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	seq := seedSequence(t, repo, 1)
	ids := seedProspects(t, repo, 3)
	if _, err := repo.ActivateSequence(ctx, seq.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	// Stagger enrollment times so due timestamps differ; later
	// enrollments are due later.
	for i, id := range ids {
		if _, err := repo.EnrollProspects(ctx, seq.ID, []string{id}, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("enroll %d: %v", i, err)
		}
	}

	due, err := repo.DueEnrollments(ctx, base.Add(2*time.Hour), 10)
	if err != nil {
		t.Fatalf("due enrollments: %v", err)
	}
	if len(due) != 3 {
		t.Fatalf("expected 3 due, got %d", len(due))
	}
	for i := 1; i < len(due); i++ {
		if due[i].NextDueAt.Before(due[i-1].NextDueAt) {
			t.Errorf("due enrollments not ordered oldest first: %v then %v",
				due[i-1].NextDueAt, due[i].NextDueAt)
		}
	}

	// Not-yet-due enrollments are excluded.
	due, err = repo.DueEnrollments(ctx, base.Add(30*time.Minute), 10)
	if err != nil {
		t.Fatalf("due enrollments: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("expected nothing due after 30m with 1h delay, got %d", len(due))
	}
}

func TestAdvanceEnrollment_GuardsStep(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seq := seedSequence(t, repo, 24, 48)
	ids := seedProspects(t, repo, 1)
	if _, err := repo.ActivateSequence(ctx, seq.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := repo.EnrollProspects(ctx, seq.ID, ids, now); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	enrollments, err := repo.ListEnrollments(ctx, seq.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	e := enrollments[0]

	advanced, err := repo.AdvanceEnrollment(ctx, e.ID, 1, now.Add(48*time.Hour), false)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if advanced.CurrentStep != 1 || advanced.Status != domain.EnrollmentActive {
		t.Errorf("unexpected state after step 1: step=%d status=%s", advanced.CurrentStep, advanced.Status)
	}

	// A duplicate dispatch of the same step must not double-advance.
	if _, err := repo.AdvanceEnrollment(ctx, e.ID, 1, now.Add(48*time.Hour), false); !domain.IsKind(err, domain.KindInvalidTransition) {
		t.Errorf("expected InvalidTransition for duplicate advance, got %v", err)
	}

	final, err := repo.AdvanceEnrollment(ctx, e.ID, 2, now.Add(48*time.Hour), true)
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if final.Status != domain.EnrollmentCompleted {
		t.Errorf("expected completed, got %s", final.Status)
	}
}

func TestAdvanceEnrollment_GappedPositions(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	// Positions 1 and 3 only, as left behind by deleting a middle step.
	seq, err := repo.CreateSequence(ctx, "gapped", "", 0)
	if err != nil {
		t.Fatalf("create sequence: %v", err)
	}
	if _, err := repo.AddMessage(ctx, seq.ID, 1, 24, "step content"); err != nil {
		t.Fatalf("add message 1: %v", err)
	}
	if _, err := repo.AddMessage(ctx, seq.ID, 3, 72, "step content"); err != nil {
		t.Fatalf("add message 3: %v", err)
	}

	ids := seedProspects(t, repo, 1)
	if _, err := repo.ActivateSequence(ctx, seq.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := repo.EnrollProspects(ctx, seq.ID, ids, now); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	enrollments, _ := repo.ListEnrollments(ctx, seq.ID)
	id := enrollments[0].ID

	if _, err := repo.AdvanceEnrollment(ctx, id, 1, now.Add(72*time.Hour), false); err != nil {
		t.Fatalf("advance to 1: %v", err)
	}

	// The next existing position is 3; the advance must not require
	// contiguous steps.
	final, err := repo.AdvanceEnrollment(ctx, id, 3, time.Time{}, true)
	if err != nil {
		t.Fatalf("advance to 3: %v", err)
	}
	if final.CurrentStep != 3 || final.Status != domain.EnrollmentCompleted {
		t.Errorf("unexpected state: step=%d status=%s", final.CurrentStep, final.Status)
	}

	// The sent counter follows the position actually dispatched.
	got, err := repo.GetSequence(ctx, seq.ID)
	if err != nil {
		t.Fatalf("get sequence: %v", err)
	}
	if m := got.MessageAt(3); m == nil || m.SentCount != 1 {
		t.Errorf("position 3 sent_count not bumped: %+v", m)
	}
}

func TestCompleteEnrollment(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seq := seedSequence(t, repo, 24)
	ids := seedProspects(t, repo, 1)
	if _, err := repo.ActivateSequence(ctx, seq.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := repo.EnrollProspects(ctx, seq.ID, ids, now); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	enrollments, _ := repo.ListEnrollments(ctx, seq.ID)
	id := enrollments[0].ID

	if err := repo.CompleteEnrollment(ctx, id); err != nil {
		t.Fatalf("complete: %v", err)
	}
	e, _ := repo.GetEnrollment(ctx, id)
	if e.Status != domain.EnrollmentCompleted {
		t.Errorf("status = %s, want completed", e.Status)
	}

	// Only active enrollments can be completed this way.
	if err := repo.CompleteEnrollment(ctx, id); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("expected NotFound for non-active enrollment, got %v", err)
	}
}

func TestDeferAndRescheduleEnrollment(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seq := seedSequence(t, repo, 24)
	ids := seedProspects(t, repo, 1)
	if _, err := repo.ActivateSequence(ctx, seq.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := repo.EnrollProspects(ctx, seq.ID, ids, now); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	enrollments, _ := repo.ListEnrollments(ctx, seq.ID)
	id := enrollments[0].ID

	// Defer counts an attempt and records the cause.
	deferUntil := now.Add(30 * time.Minute)
	if err := repo.DeferEnrollment(ctx, id, deferUntil, "rate limited"); err != nil {
		t.Fatalf("defer: %v", err)
	}
	e, _ := repo.GetEnrollment(ctx, id)
	if e.Attempts != 1 {
		t.Errorf("attempts = %d after defer", e.Attempts)
	}
	if e.LastError != "rate limited" {
		t.Errorf("last_error = %q", e.LastError)
	}
	if !e.NextDueAt.Equal(time.Unix(deferUntil.Unix(), 0)) {
		t.Errorf("next_due_at = %v, want %v", e.NextDueAt, deferUntil)
	}

	// Reschedule moves the due time without counting an attempt.
	recheck := now.Add(6 * time.Hour)
	if err := repo.RescheduleEnrollment(ctx, id, recheck); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	e, _ = repo.GetEnrollment(ctx, id)
	if e.Attempts != 1 {
		t.Errorf("reschedule changed attempts: %d", e.Attempts)
	}
	if !e.NextDueAt.Equal(time.Unix(recheck.Unix(), 0)) {
		t.Errorf("next_due_at = %v, want %v", e.NextDueAt, recheck)
	}

	// Neither touches a non-active enrollment.
	if err := repo.FailEnrollment(ctx, id, "gone"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := repo.RescheduleEnrollment(ctx, id, now); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("expected NotFound for failed enrollment, got %v", err)
	}
}

func TestPauseResumeSequence_PreservesProgress(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seq := seedSequence(t, repo, 24)
	ids := seedProspects(t, repo, 1)
	if _, err := repo.ActivateSequence(ctx, seq.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := repo.EnrollProspects(ctx, seq.ID, ids, now); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	enrollments, _ := repo.ListEnrollments(ctx, seq.ID)
	before := enrollments[0]

	if _, err := repo.PauseSequence(ctx, seq.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	paused, _ := repo.GetEnrollment(ctx, before.ID)
	if paused.Status != domain.EnrollmentPaused {
		t.Errorf("expected paused enrollment, got %s", paused.Status)
	}

	// Paused enrollments never show up as due.
	due, err := repo.DueEnrollments(ctx, now.Add(48*time.Hour), 10)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("paused enrollment reported due")
	}

	if _, err := repo.ResumeSequence(ctx, seq.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	resumed, _ := repo.GetEnrollment(ctx, before.ID)
	if resumed.Status != domain.EnrollmentActive {
		t.Errorf("expected active after resume, got %s", resumed.Status)
	}
	if resumed.CurrentStep != before.CurrentStep {
		t.Errorf("pause/resume altered current_step")
	}
	if !resumed.NextDueAt.Equal(before.NextDueAt) {
		t.Errorf("pause/resume altered next_due_at: %v != %v", resumed.NextDueAt, before.NextDueAt)
	}
}

func TestActionLog_CountSince(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	dayStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if err := repo.LogAction(ctx, policy.ActionMessage, dayStart.Add(-time.Second)); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := repo.LogAction(ctx, policy.ActionMessage, dayStart.Add(time.Second)); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := repo.LogAction(ctx, policy.ActionConnection, dayStart.Add(time.Minute)); err != nil {
		t.Fatalf("log: %v", err)
	}

	// Yesterday's send does not count against today, and connection
	// requests are tracked separately from messages.
	n, err := repo.CountActionsSince(ctx, policy.ActionMessage, dayStart)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 message today, got %d", n)
	}
}

func TestDeleteSequence_Cascades(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	seq := seedSequence(t, repo, 24)
	ids := seedProspects(t, repo, 1)
	if _, err := repo.EnrollProspects(ctx, seq.ID, ids, time.Now()); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	if err := repo.DeleteSequence(ctx, seq.ID); err != nil {
		t.Fatalf("delete sequence: %v", err)
	}
	if _, err := repo.GetSequence(ctx, seq.ID); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
	enrollments, err := repo.ListEnrollments(ctx, seq.ID)
	if err != nil {
		t.Fatalf("list enrollments: %v", err)
	}
	if len(enrollments) != 0 {
		t.Errorf("enrollments survived sequence delete")
	}
}
