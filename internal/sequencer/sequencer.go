// Package sequencer dispatches due sequence steps. A recurring pass
// pulls active enrollments whose next_due_at has arrived and sends the
// next step through the platform driver, paced like a human operator
// and capped by the daily quotas.
package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/prospectly/outreachd/internal/domain"
	"github.com/prospectly/outreachd/internal/driver"
	"github.com/prospectly/outreachd/internal/events"
	"github.com/prospectly/outreachd/internal/policy"
	"github.com/prospectly/outreachd/internal/store"
)

const (
	// acceptanceRecheck is how long to wait before looking again at a
	// pending invitation.
	acceptanceRecheck = 6 * time.Hour

	// retryBaseDelay seeds the per-enrollment transient backoff; each
	// failed attempt doubles it.
	retryBaseDelay = 30 * time.Minute
)

// Options tunes the dispatch loop.
type Options struct {
	Quotas       policy.Quotas
	Window       policy.Window
	PassInterval time.Duration
	// DriverTimeout bounds each individual platform call.
	DriverTimeout time.Duration
	// MaxAttempts caps transient retries per enrollment step before the
	// enrollment is failed for good.
	MaxAttempts int
	// MinDelay/MaxDelay bound the spacing between consecutive platform
	// actions; the pass limiter is derived from their midpoint.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Sequencer runs the recurring due-enrollment pass.
type Sequencer struct {
	repo    store.Repository
	drv     driver.Driver
	hub     *events.Hub
	opts    Options
	limiter *rate.Limiter
	log     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped sequencer.
func New(repo store.Repository, drv driver.Driver, hub *events.Hub, opts Options) *Sequencer {
	if opts.PassInterval <= 0 {
		opts.PassInterval = time.Minute
	}
	if opts.DriverTimeout <= 0 {
		opts.DriverTimeout = 60 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}

	// One action per average inter-action delay, no bursting. A zero
	// delay (tests) means an unthrottled limiter.
	limit := rate.Inf
	if avg := (opts.MinDelay + opts.MaxDelay) / 2; avg > 0 {
		limit = rate.Every(avg)
	}

	return &Sequencer{
		repo:    repo,
		drv:     drv,
		hub:     hub,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		log:     slog.Default().With("component", "sequencer"),
	}
}

// Start launches the ticker loop. The loop survives the caller's
// context; stop it with Shutdown.
func (s *Sequencer) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.opts.PassInterval)
		defer ticker.Stop()

		s.log.Info("sequencer started", "pass_interval", s.opts.PassInterval)
		for {
			select {
			case <-loopCtx.Done():
				s.log.Info("sequencer stopped")
				return
			case <-ticker.C:
				s.RunPass(loopCtx, time.Now())
			}
		}
	}()
}

// Shutdown stops the ticker loop and waits for an in-flight pass.
func (s *Sequencer) Shutdown(ctx context.Context) {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

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

// RunPass processes every due enrollment once. Failures are isolated
// per enrollment; the pass itself never aborts short of a cancelled
// context.
func (s *Sequencer) RunPass(ctx context.Context, now time.Time) {
	if !s.opts.Window.InWindow(now) {
		return
	}

	usage, err := s.loadUsage(ctx, now)
	if err != nil {
		s.log.Error("quota usage lookup failed", "error", err)
		return
	}

	// The pass can consume at most the remaining message + connection
	// budget, so cap the batch there.
	budget := policy.Remaining(policy.ActionMessage, s.opts.Quotas, usage) +
		policy.Remaining(policy.ActionConnection, s.opts.Quotas, usage)
	if budget <= 0 {
		return
	}

	due, err := s.repo.DueEnrollments(ctx, now, budget)
	if err != nil {
		s.log.Error("due enrollment lookup failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Info("dispatch pass", "due", len(due), "budget", budget)

	for _, enr := range due {
		if ctx.Err() != nil {
			return
		}
		if err := s.dispatch(ctx, enr, usage, now); err != nil {
			s.log.Error("enrollment dispatch failed",
				"enrollment_id", enr.ID, "sequence_id", enr.SequenceID, "error", err)
		}
	}
}

func (s *Sequencer) loadUsage(ctx context.Context, now time.Time) (policy.Usage, error) {
	dayStart := policy.DayStart(now, s.opts.Window.Location)
	usage := policy.Usage{}
	for _, action := range []policy.ActionType{policy.ActionMessage, policy.ActionConnection} {
		used, err := s.repo.CountActionsSince(ctx, action, dayStart)
		if err != nil {
			return nil, fmt.Errorf("count %s actions: %w", action, err)
		}
		usage[action] = used
	}
	return usage, nil
}

// dispatch executes one enrollment's next action: a connection request
// when the prospect is not yet connected, an acceptance check when an
// invitation is pending, or the due message step. usage is shared
// across the pass so each send tightens the remaining budget.
func (s *Sequencer) dispatch(ctx context.Context, enr *domain.Enrollment, usage policy.Usage, now time.Time) error {
	seq, err := s.repo.GetSequence(ctx, enr.SequenceID)
	if err != nil {
		return err
	}
	if seq.Status != domain.SequenceActive {
		// Paused between the due query and here; the enrollment flip
		// lands with it.
		return nil
	}

	// Positions are unique but may be gapped, so the next step is the
	// lowest existing position past the current one.
	msg := seq.NextMessageAfter(enr.CurrentStep)
	if msg == nil {
		// Every step ahead of this enrollment was deleted; there is
		// nothing left to send.
		if err := s.repo.CompleteEnrollment(ctx, enr.ID); err != nil {
			return err
		}
		s.hub.PublishEnrollmentUpdate(enr.ID, enr.CurrentStep, string(domain.EnrollmentCompleted))
		return nil
	}

	prospect, err := s.repo.GetProspect(ctx, enr.ProspectID)
	if err != nil {
		return s.failEnrollment(ctx, enr, fmt.Sprintf("prospect lookup: %v", err))
	}
	ref := driver.ProspectRef{ProfileURL: prospect.ProfileURL, FullName: prospect.FullName()}

	switch enr.ConnectionStatus {
	case domain.NotConnected:
		return s.sendInvitation(ctx, enr, ref, usage, now)
	case domain.InvitationSent:
		connected, err := s.checkAcceptance(ctx, enr, ref, now)
		if err != nil || !connected {
			return err
		}
	}

	return s.sendStep(ctx, enr, seq, msg, ref, usage, now)
}

func (s *Sequencer) sendInvitation(ctx context.Context, enr *domain.Enrollment, ref driver.ProspectRef, usage policy.Usage, now time.Time) error {
	if !policy.CanAct(policy.ActionConnection, now, s.opts.Quotas, usage, s.opts.Window) {
		// Quota spent; the enrollment stays due and the next pass with
		// budget picks it up.
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	err := s.driverCall(ctx, func(callCtx context.Context) error {
		return s.drv.SendConnectionRequest(callCtx, ref)
	})
	if err != nil {
		return s.handleSendFailure(ctx, enr, err, now)
	}

	if err := s.repo.MarkConnectionStatus(ctx, enr.ID, domain.InvitationSent); err != nil {
		return err
	}
	if err := s.repo.LogAction(ctx, policy.ActionConnection, now); err != nil {
		return err
	}
	usage[policy.ActionConnection]++

	// The first message waits for the invitation to be accepted.
	if err := s.repo.RescheduleEnrollment(ctx, enr.ID, now.Add(acceptanceRecheck)); err != nil {
		return err
	}
	s.hub.PublishEnrollmentUpdate(enr.ID, enr.CurrentStep, string(domain.InvitationSent))
	s.log.Info("invitation sent", "enrollment_id", enr.ID, "prospect", ref.FullName)
	return nil
}

// checkAcceptance reports whether the pending invitation has been
// accepted. When it has not, the enrollment is pushed to the next
// recheck and (false, nil) is returned.
func (s *Sequencer) checkAcceptance(ctx context.Context, enr *domain.Enrollment, ref driver.ProspectRef, now time.Time) (bool, error) {
	var connected bool
	err := s.driverCall(ctx, func(callCtx context.Context) error {
		var err error
		connected, err = s.drv.CheckConnection(callCtx, ref)
		return err
	})
	if err != nil {
		// A failed check is not a send failure; look again later.
		s.log.Warn("connection check failed", "enrollment_id", enr.ID, "error", err)
		return false, s.repo.RescheduleEnrollment(ctx, enr.ID, now.Add(acceptanceRecheck))
	}
	if !connected {
		return false, s.repo.RescheduleEnrollment(ctx, enr.ID, now.Add(acceptanceRecheck))
	}

	if err := s.repo.MarkConnectionStatus(ctx, enr.ID, domain.Connected); err != nil {
		return false, err
	}
	enr.ConnectionStatus = domain.Connected
	return true, nil
}

func (s *Sequencer) sendStep(ctx context.Context, enr *domain.Enrollment, seq *domain.Sequence, msg *domain.Message, ref driver.ProspectRef, usage policy.Usage, now time.Time) error {
	if !policy.CanAct(policy.ActionMessage, now, s.opts.Quotas, usage, s.opts.Window) {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	err := s.driverCall(ctx, func(callCtx context.Context) error {
		return s.drv.SendMessage(callCtx, ref, msg.Content)
	})
	if err != nil {
		return s.handleSendFailure(ctx, enr, err, now)
	}

	if err := s.repo.LogAction(ctx, policy.ActionMessage, now); err != nil {
		return err
	}
	usage[policy.ActionMessage]++

	next := seq.NextMessageAfter(msg.Position)
	completed := next == nil
	var nextDue time.Time
	if next != nil {
		nextDue = now.Add(time.Duration(next.DelayHours) * time.Hour)
	}

	updated, err := s.repo.AdvanceEnrollment(ctx, enr.ID, msg.Position, nextDue, completed)
	if err != nil {
		return err
	}
	s.hub.PublishEnrollmentUpdate(updated.ID, updated.CurrentStep, string(updated.Status))
	s.log.Info("step sent",
		"enrollment_id", enr.ID, "step", msg.Position, "prospect", ref.FullName, "completed", completed)
	return nil
}

// handleSendFailure defers transient failures with doubling backoff up
// to MaxAttempts, and fails the enrollment for everything else.
func (s *Sequencer) handleSendFailure(ctx context.Context, enr *domain.Enrollment, cause error, now time.Time) error {
	if driver.ClassOf(cause) == driver.Transient && enr.Attempts+1 < s.opts.MaxAttempts {
		delay := retryBaseDelay << enr.Attempts
		s.log.Warn("transient send failure, deferring",
			"enrollment_id", enr.ID, "attempt", enr.Attempts+1, "retry_in", delay, "error", cause)
		return s.repo.DeferEnrollment(ctx, enr.ID, now.Add(delay), cause.Error())
	}
	return s.failEnrollment(ctx, enr, cause.Error())
}

func (s *Sequencer) failEnrollment(ctx context.Context, enr *domain.Enrollment, reason string) error {
	if err := s.repo.FailEnrollment(ctx, enr.ID, reason); err != nil {
		return err
	}
	s.hub.PublishEnrollmentUpdate(enr.ID, enr.CurrentStep, string(domain.EnrollmentFailed))
	s.log.Warn("enrollment failed", "enrollment_id", enr.ID, "reason", reason)
	return nil
}

func (s *Sequencer) driverCall(ctx context.Context, call func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.DriverTimeout)
	defer cancel()
	return call(callCtx)
}
