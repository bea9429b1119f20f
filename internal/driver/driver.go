// Package driver defines the platform automation boundary. The
// schedulers only ever talk to the external platform through this
// interface, so the orchestration core stays testable without a
// browser.
package driver

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass tags a driver failure so schedulers can pick a retry
// strategy without inspecting platform-specific details.
type ErrorClass string

const (
	// Transient failures (throttling, timeouts) may be retried with
	// backoff up to a bounded count.
	Transient ErrorClass = "transient"
	// Fatal failures halt the owning session and move it to error.
	Fatal ErrorClass = "fatal"
	// Permanent failures (recipient unreachable) fail the enrollment
	// with no further attempts.
	Permanent ErrorClass = "permanent"
)

// Error is a classified driver failure.
type Error struct {
	Class ErrorClass
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transientf wraps err as a retryable failure of op.
func Transientf(op string, err error) error {
	return &Error{Class: Transient, Op: op, Err: err}
}

// Fatalf wraps err as a session-halting failure of op.
func Fatalf(op string, err error) error {
	return &Error{Class: Fatal, Op: op, Err: err}
}

// Permanentf wraps err as an unretryable per-prospect failure of op.
func Permanentf(op string, err error) error {
	return &Error{Class: Permanent, Op: op, Err: err}
}

// ClassOf extracts the error class. Deadline and cancellation errors
// without an explicit class count as transient; anything else
// unclassified is fatal.
func ClassOf(err error) ErrorClass {
	var de *Error
	if errors.As(err, &de) {
		return de.Class
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient
	}
	return Fatal
}

// ProspectPage is one page of scraped prospect records.
type ProspectPage struct {
	Prospects []ScrapedProspect
	HasMore   bool
	Total     int
}

// ScrapedProspect is a raw record pulled off a result page, before it
// is persisted as a domain Prospect.
type ScrapedProspect struct {
	FirstName  string
	LastName   string
	Company    string
	JobTitle   string
	Headline   string
	Location   string
	ProfileURL string
}

// ProspectRef identifies a prospect on the platform for send
// operations.
type ProspectRef struct {
	ProfileURL string
	FullName   string
}

// Driver performs the slow, rate-limited platform operations. All
// methods honor ctx cancellation; callers bound each call with a
// timeout.
type Driver interface {
	// FetchProspectPage retrieves one page of prospects from a source
	// list URL. Pages are 1-based.
	FetchProspectPage(ctx context.Context, sourceURL string, page int) (*ProspectPage, error)

	// SendMessage delivers a direct message to a connected prospect.
	SendMessage(ctx context.Context, ref ProspectRef, content string) error

	// SendConnectionRequest sends an invitation to a prospect.
	SendConnectionRequest(ctx context.Context, ref ProspectRef) error

	// CheckConnection reports whether the prospect has accepted a
	// previously sent invitation.
	CheckConnection(ctx context.Context, ref ProspectRef) (bool, error)
}
