// Package policy decides whether an outreach action is currently
// permitted. All functions are pure: the clock is always injected and
// nothing here performs I/O.
package policy

import "time"

// ActionType identifies a quota bucket. Messages and connection
// requests are counted separately.
type ActionType string

const (
	ActionMessage    ActionType = "message"
	ActionConnection ActionType = "connection"
	ActionScrape     ActionType = "scrape"
)

// Quotas holds the per-day caps for each action type.
type Quotas struct {
	Messages    int
	Connections int
	Prospects   int
}

// Limit returns the daily cap for the given action type.
func (q Quotas) Limit(action ActionType) int {
	switch action {
	case ActionMessage:
		return q.Messages
	case ActionConnection:
		return q.Connections
	case ActionScrape:
		return q.Prospects
	default:
		return 0
	}
}

// Usage holds today's consumed counts per action type.
type Usage map[ActionType]int

// Window is an allowed local time-of-day range. Hours are half-open:
// an action at StartHour:00 is allowed, one at EndHour:00 is not.
type Window struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// InWindow reports whether now falls inside the window, evaluated in
// the window's timezone.
func (w Window) InWindow(now time.Time) bool {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	h := now.In(loc).Hour()
	return h >= w.StartHour && h < w.EndHour
}

// DayStart returns local midnight of the day containing now, in loc.
// Quota counters reset exactly at this boundary.
func DayStart(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Remaining returns how many more actions of the given type are allowed
// today. Never negative.
func Remaining(action ActionType, quotas Quotas, used Usage) int {
	left := quotas.Limit(action) - used[action]
	if left < 0 {
		return 0
	}
	return left
}

// CanAct reports whether one action of the given type is permitted at
// now: inside the allowed window and under the daily quota.
func CanAct(action ActionType, now time.Time, quotas Quotas, used Usage, window Window) bool {
	if !window.InWindow(now) {
		return false
	}
	return Remaining(action, quotas, used) > 0
}
