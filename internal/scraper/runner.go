// Package scraper drives one scraping session's page loop. A single
// worker runs process-wide; the store's active-session slot enforces
// the same exclusivity across processes.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/prospectly/outreachd/internal/domain"
	"github.com/prospectly/outreachd/internal/driver"
	"github.com/prospectly/outreachd/internal/events"
	"github.com/prospectly/outreachd/internal/policy"
	"github.com/prospectly/outreachd/internal/store"
)

// Options tunes the scrape loop.
type Options struct {
	Quotas        policy.Quotas
	Window        policy.Window
	DriverTimeout time.Duration
	MaxRetries    int
	// MinDelay/MaxDelay bound the randomized pause between page
	// fetches.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Runner owns the single scrape worker. Commands go through Start,
// Pause, Resume and Stop; the worker observes store state between
// pages and honors it.
type Runner struct {
	repo store.Repository
	drv  driver.Driver
	hub  *events.Hub
	opts Options
	log  *slog.Logger

	mu     sync.Mutex
	active string             // session id owned by the worker, "" when idle
	cancel context.CancelFunc // cancels the in-flight worker
	done   chan struct{}      // closed when the worker exits
}

// NewRunner creates an idle runner.
func NewRunner(repo store.Repository, drv driver.Driver, hub *events.Hub, opts Options) *Runner {
	if opts.DriverTimeout <= 0 {
		opts.DriverTimeout = 60 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	return &Runner{
		repo: repo,
		drv:  drv,
		hub:  hub,
		opts: opts,
		log:  slog.Default().With("component", "scraper"),
	}
}

// Start transitions the session to running and launches the worker.
// The in-process slot and the store's compare-and-set both have to be
// acquired, so racing starts cannot yield two workers.
func (r *Runner) Start(ctx context.Context, sessionID string) (*domain.Session, error) {
	return r.launch(ctx, sessionID, domain.SessionStart)
}

// Resume continues a paused session from its preserved current page.
func (r *Runner) Resume(ctx context.Context, sessionID string) (*domain.Session, error) {
	return r.launch(ctx, sessionID, domain.SessionResume)
}

func (r *Runner) launch(ctx context.Context, sessionID string, event domain.SessionEvent) (*domain.Session, error) {
	r.mu.Lock()
	if r.active != "" {
		r.mu.Unlock()
		return nil, domain.PreconditionFailedf("scrape worker is busy with session %s", r.active)
	}
	r.active = sessionID
	r.mu.Unlock()

	sess, err := r.repo.TransitionSession(ctx, sessionID, event, "")
	if err != nil {
		r.release()
		return nil, err
	}
	r.hub.PublishSessionUpdate(sess.ID, string(sess.Status))

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer r.release()
		r.run(workerCtx, sess)
	}()

	return sess, nil
}

// Pause asks the worker to suspend after the page it is currently
// fetching. The store transition is the command; the worker observes
// it between pages.
func (r *Runner) Pause(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := r.repo.TransitionSession(ctx, sessionID, domain.SessionPause, "")
	if err != nil {
		return nil, err
	}
	r.hub.PublishSessionUpdate(sess.ID, string(sess.Status))
	return sess, nil
}

// Stop terminates the session. The in-flight page fetch is cancelled;
// prospects scraped so far are retained.
func (r *Runner) Stop(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := r.repo.TransitionSession(ctx, sessionID, domain.SessionStop, "")
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.active == sessionID && r.cancel != nil {
		r.cancel()
	}
	done := r.done
	r.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	r.hub.PublishSessionUpdate(sess.ID, string(sess.Status))
	return sess, nil
}

// Shutdown cancels any running worker and waits for it to exit.
func (r *Runner) Shutdown(ctx context.Context) {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
}

func (r *Runner) release() {
	r.mu.Lock()
	r.active = ""
	r.cancel = nil
	r.mu.Unlock()
}

// run is the page loop. It exits when the session leaves running,
// the list is exhausted, the daily scrape quota fills, or a fatal
// driver error lands.
func (r *Runner) run(ctx context.Context, sess *domain.Session) {
	log := r.log.With("session_id", sess.ID)
	log.Info("scrape worker started", "source_url", sess.SourceURL, "from_page", sess.CurrentPage+1)

	page := sess.CurrentPage + 1
	scraped := sess.ScrapedProspects
	total := sess.TotalProspects

	for {
		if ctx.Err() != nil {
			log.Info("scrape worker cancelled")
			return
		}

		// The store is the source of truth for pause/stop commands.
		current, err := r.repo.GetSession(ctx, sess.ID)
		if err != nil {
			log.Error("scrape worker lost its session", "error", err)
			return
		}
		if current.Status != domain.SessionRunning {
			log.Info("scrape worker yielding", "status", current.Status, "current_page", current.CurrentPage)
			return
		}

		if !r.scrapeAllowed(ctx, log) {
			// Quota or window closed: park the session as paused so the
			// operator can resume tomorrow from the same page.
			r.pauseForPolicy(ctx, sess.ID, log)
			return
		}

		result, err := r.fetchPage(ctx, sess.SourceURL, page)
		if err != nil {
			r.failSession(ctx, sess.ID, err, log)
			return
		}

		batch := make([]domain.Prospect, 0, len(result.Prospects))
		for _, sp := range result.Prospects {
			batch = append(batch, domain.Prospect{
				FirstName:  sp.FirstName,
				LastName:   sp.LastName,
				Company:    sp.Company,
				JobTitle:   sp.JobTitle,
				Headline:   sp.Headline,
				Location:   sp.Location,
				ProfileURL: sp.ProfileURL,
				ScrapedAt:  time.Now(),
			})
		}
		inserted, err := r.repo.InsertProspects(ctx, sess.ID, batch)
		if err != nil {
			r.failSession(ctx, sess.ID, err, log)
			return
		}

		scraped += inserted
		if result.Total > 0 {
			total = result.Total
		}
		lastName := ""
		if n := len(batch); n > 0 {
			lastName = batch[n-1].FullName()
		}

		if err := r.repo.UpdateSessionProgress(ctx, sess.ID, page, scraped, total, lastName); err != nil {
			r.failSession(ctx, sess.ID, err, log)
			return
		}
		r.hub.PublishScrapingProgress(sess.ID, scraped, page, total, lastName)
		log.Info("page scraped", "page", page, "new_prospects", inserted, "total_scraped", scraped)

		if !result.HasMore {
			completed, err := r.repo.TransitionSession(ctx, sess.ID, domain.SessionComplete, "")
			if err != nil {
				log.Error("failed to complete session", "error", err)
				return
			}
			r.hub.PublishSessionUpdate(completed.ID, string(completed.Status))
			log.Info("scrape complete", "pages", page, "prospects", scraped)
			return
		}

		page++
		if !r.sleep(ctx) {
			return
		}
	}
}

// fetchPage retries transient driver failures with exponential backoff,
// then gives up. Fatal and permanent classifications abort immediately.
func (r *Runner) fetchPage(ctx context.Context, sourceURL string, page int) (*driver.ProspectPage, error) {
	var result *driver.ProspectPage

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.opts.DriverTimeout)
		defer cancel()

		p, err := r.drv.FetchProspectPage(callCtx, sourceURL, page)
		if err != nil {
			if driver.ClassOf(err) == driver.Transient && ctx.Err() == nil {
				r.log.Warn("transient fetch failure, will retry", "page", page, "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		result = p
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 2 * time.Second
	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(r.opts.MaxRetries)), ctx)

	if err := backoff.Retry(operation, retryPolicy); err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	return result, nil
}

func (r *Runner) scrapeAllowed(ctx context.Context, log *slog.Logger) bool {
	now := time.Now()
	dayStart := policy.DayStart(now, r.opts.Window.Location)
	used, err := r.repo.CountProspectsScrapedSince(ctx, dayStart)
	if err != nil {
		log.Error("quota check failed", "error", err)
		return false
	}
	allowed := policy.CanAct(policy.ActionScrape, now, r.opts.Quotas,
		policy.Usage{policy.ActionScrape: used}, r.opts.Window)
	if !allowed {
		log.Info("scraping not permitted now", "used_today", used, "quota", r.opts.Quotas.Prospects)
	}
	return allowed
}

func (r *Runner) pauseForPolicy(ctx context.Context, sessionID string, log *slog.Logger) {
	sess, err := r.repo.TransitionSession(ctx, sessionID, domain.SessionPause, "")
	if err != nil {
		log.Error("failed to pause session on policy stop", "error", err)
		return
	}
	r.hub.PublishSessionUpdate(sess.ID, string(sess.Status))
}

func (r *Runner) failSession(ctx context.Context, sessionID string, cause error, log *slog.Logger) {
	if errors.Is(cause, context.Canceled) {
		// Stop already transitioned the session; nothing to record.
		return
	}
	log.Error("scrape failed", "error", cause)

	// Fail must land even when the worker context is gone.
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	sess, err := r.repo.TransitionSession(failCtx, sessionID, domain.SessionFail, cause.Error())
	if err != nil {
		log.Error("failed to record session error", "error", err)
		return
	}
	r.hub.PublishSessionUpdate(sess.ID, string(sess.Status))
}

// sleep waits a randomized inter-page delay. Returns false when the
// context was cancelled while waiting.
func (r *Runner) sleep(ctx context.Context) bool {
	d := r.opts.MinDelay
	if jitter := r.opts.MaxDelay - r.opts.MinDelay; jitter > 0 {
		d += time.Duration(rand.Int63n(int64(jitter)))
	}
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
