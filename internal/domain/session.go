// Package domain holds the outreach entities, their status lifecycles,
// and the shared error taxonomy.
package domain

import "time"

// SessionStatus is the lifecycle state of a scraping session.
type SessionStatus string

const (
	SessionInitializing SessionStatus = "initializing"
	SessionRunning      SessionStatus = "running"
	SessionPaused       SessionStatus = "paused"
	SessionCompleted    SessionStatus = "completed"
	SessionError        SessionStatus = "error"
	SessionStopped      SessionStatus = "stopped"
)

// SessionEvent is a command applied to a session's state machine.
type SessionEvent string

const (
	SessionStart    SessionEvent = "start"
	SessionPause    SessionEvent = "pause"
	SessionResume   SessionEvent = "resume"
	SessionStop     SessionEvent = "stop"
	SessionComplete SessionEvent = "complete"
	SessionFail     SessionEvent = "fail"
)

// Session is one scraping run against an external prospect list.
// At most one session may be running or paused at any time.
type Session struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	SourceURL        string        `json:"source_url"`
	Status           SessionStatus `json:"status"`
	CurrentPage      int           `json:"current_page"`
	ScrapedProspects int           `json:"scraped_prospects"`
	TotalProspects   int           `json:"total_prospects"`
	LastProspectName string        `json:"last_prospect_name,omitempty"`
	LastError        string        `json:"last_error,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	EndedAt          *time.Time    `json:"ended_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// sessionTransitions is the exhaustive legal-transition table. Any
// (status, event) pair absent here is an InvalidTransition.
var sessionTransitions = map[SessionStatus]map[SessionEvent]SessionStatus{
	SessionInitializing: {
		SessionStart: SessionRunning,
		SessionFail:  SessionError,
	},
	SessionRunning: {
		SessionPause:    SessionPaused,
		SessionStop:     SessionStopped,
		SessionComplete: SessionCompleted,
		SessionFail:     SessionError,
	},
	SessionPaused: {
		SessionResume: SessionRunning,
		SessionStop:   SessionStopped,
		SessionFail:   SessionError,
	},
}

// NextSessionStatus resolves the target status for applying event to
// current. Terminal states (stopped, completed, error) accept no events.
func NextSessionStatus(current SessionStatus, event SessionEvent) (SessionStatus, error) {
	if next, ok := sessionTransitions[current][event]; ok {
		return next, nil
	}
	return "", InvalidTransitionf("session in state %q does not accept %q", current, event)
}

// IsTerminal reports whether a session status accepts no further events.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStopped || s == SessionCompleted || s == SessionError
}

// IsActive reports whether the session occupies the exclusive active slot.
func (s SessionStatus) IsActive() bool {
	return s == SessionRunning || s == SessionPaused
}
