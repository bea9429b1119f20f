package scraper

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prospectly/outreachd/internal/domain"
	"github.com/prospectly/outreachd/internal/driver"
	"github.com/prospectly/outreachd/internal/events"
	"github.com/prospectly/outreachd/internal/policy"
	"github.com/prospectly/outreachd/internal/store"
)

func testOptions() Options {
	return Options{
		Quotas:        policy.Quotas{Messages: 100, Connections: 100, Prospects: 10000},
		Window:        policy.Window{StartHour: 0, EndHour: 24, Location: time.UTC},
		DriverTimeout: 5 * time.Second,
		MaxRetries:    3,
		MinDelay:      time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
	}
}

func newTestRunner(t *testing.T, sim *driver.Simulator, opts Options) (*Runner, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "scraper.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	runner := NewRunner(repo, sim, events.NewHub(), opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		runner.Shutdown(ctx)
	})
	return runner, repo
}

func waitForStatus(t *testing.T, repo store.Repository, id string, want domain.SessionStatus) *domain.Session {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := repo.GetSession(context.Background(), id)
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		if sess.Status == want {
			return sess
		}
		time.Sleep(10 * time.Millisecond)
	}
	sess, _ := repo.GetSession(context.Background(), id)
	t.Fatalf("session never reached %s, stuck at %s", want, sess.Status)
	return nil
}

func TestRunner_RunsSessionToCompletion(t *testing.T) {
	sim := driver.NewSimulator(5, 3)
	runner, repo := newTestRunner(t, sim, testOptions())
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "run", "https://platform.example/search?q=cto")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	started, err := runner.Start(ctx, sess.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != domain.SessionRunning {
		t.Fatalf("expected running, got %s", started.Status)
	}

	done := waitForStatus(t, repo, sess.ID, domain.SessionCompleted)
	if done.CurrentPage != 3 {
		t.Errorf("expected 3 pages scraped, got %d", done.CurrentPage)
	}
	if done.ScrapedProspects != 15 {
		t.Errorf("expected 15 prospects, got %d", done.ScrapedProspects)
	}
	if done.EndedAt == nil {
		t.Error("completed session missing ended_at")
	}

	prospects, err := repo.ListProspects(ctx, sess.ID)
	if err != nil {
		t.Fatalf("list prospects: %v", err)
	}
	if len(prospects) != 15 {
		t.Errorf("expected 15 persisted prospects, got %d", len(prospects))
	}
}

func TestRunner_PauseAndResumeWithoutRefetch(t *testing.T) {
	sim := driver.NewSimulator(2, 20)
	opts := testOptions()
	opts.MinDelay = 30 * time.Millisecond
	opts.MaxDelay = 40 * time.Millisecond
	runner, repo := newTestRunner(t, sim, opts)
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "run", "https://platform.example/search?q=cto")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := runner.Start(ctx, sess.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Let a couple of pages land, then pause.
	time.Sleep(100 * time.Millisecond)
	if _, err := runner.Pause(ctx, sess.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// The worker finishes its in-flight page and yields; progress then
	// stays put.
	time.Sleep(200 * time.Millisecond)
	paused, err := repo.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get paused session: %v", err)
	}
	if paused.Status != domain.SessionPaused {
		t.Fatalf("expected paused, got %s", paused.Status)
	}
	pageAtPause := paused.CurrentPage
	if pageAtPause < 1 || pageAtPause >= 20 {
		t.Fatalf("implausible page at pause: %d", pageAtPause)
	}

	if _, err := runner.Resume(ctx, sess.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	done := waitForStatus(t, repo, sess.ID, domain.SessionCompleted)

	// Dedup by profile URL means a re-fetched page would not distort
	// the count, but the page counter would overshoot if resume
	// restarted from page 1.
	if done.CurrentPage != 20 {
		t.Errorf("expected final page 20, got %d", done.CurrentPage)
	}
	prospects, err := repo.ListProspects(ctx, sess.ID)
	if err != nil {
		t.Fatalf("list prospects: %v", err)
	}
	if len(prospects) != 40 {
		t.Errorf("expected 40 unique prospects, got %d", len(prospects))
	}
}

func TestRunner_RetriesTransientFetch(t *testing.T) {
	sim := driver.NewSimulator(3, 2)
	sim.FailFetch = driver.Transientf("fetch_page", errors.New("throttled"))
	runner, repo := newTestRunner(t, sim, testOptions())
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "run", "https://platform.example/search?q=cto")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := runner.Start(ctx, sess.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	done := waitForStatus(t, repo, sess.ID, domain.SessionCompleted)
	if done.ScrapedProspects != 6 {
		t.Errorf("expected 6 prospects after retry, got %d", done.ScrapedProspects)
	}
}

func TestRunner_FatalFetchFailsSession(t *testing.T) {
	sim := driver.NewSimulator(3, 2)
	sim.FailFetch = driver.Fatalf("fetch_page", errors.New("authentication wall"))
	runner, repo := newTestRunner(t, sim, testOptions())
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "run", "https://platform.example/search?q=cto")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := runner.Start(ctx, sess.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	failed := waitForStatus(t, repo, sess.ID, domain.SessionError)
	if failed.LastError == "" {
		t.Error("failed session missing last_error")
	}
}

func TestRunner_RefusesSecondWorker(t *testing.T) {
	sim := driver.NewSimulator(2, 50)
	opts := testOptions()
	opts.MinDelay = 20 * time.Millisecond
	opts.MaxDelay = 30 * time.Millisecond
	runner, repo := newTestRunner(t, sim, opts)
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "run", "https://platform.example/search?q=cto")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := runner.Start(ctx, sess.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := runner.Start(ctx, sess.ID); !domain.IsKind(err, domain.KindPreconditionFailed) {
		t.Errorf("expected PreconditionFailed for second worker, got %v", err)
	}

	if _, err := runner.Stop(ctx, sess.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	stopped := waitForStatus(t, repo, sess.ID, domain.SessionStopped)

	// Prospects scraped before the stop are retained.
	prospects, err := repo.ListProspects(ctx, sess.ID)
	if err != nil {
		t.Fatalf("list prospects: %v", err)
	}
	if stopped.ScrapedProspects != len(prospects) {
		t.Errorf("progress count %d disagrees with stored prospects %d",
			stopped.ScrapedProspects, len(prospects))
	}
}

func TestRunner_QuotaPausesSession(t *testing.T) {
	sim := driver.NewSimulator(5, 10)
	opts := testOptions()
	opts.Quotas.Prospects = 5
	runner, repo := newTestRunner(t, sim, opts)
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "run", "https://platform.example/search?q=cto")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := runner.Start(ctx, sess.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// One page fills the daily prospect quota; the worker parks the
	// session instead of burning through the list.
	paused := waitForStatus(t, repo, sess.ID, domain.SessionPaused)
	if paused.CurrentPage != 1 {
		t.Errorf("expected pause after page 1, got page %d", paused.CurrentPage)
	}
	if paused.ScrapedProspects != 5 {
		t.Errorf("expected 5 prospects, got %d", paused.ScrapedProspects)
	}
}
