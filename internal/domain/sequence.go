package domain

import (
	"strings"
	"time"
)

// SequenceStatus is the lifecycle state of a messaging campaign template.
type SequenceStatus string

const (
	SequenceDraft     SequenceStatus = "draft"
	SequenceActive    SequenceStatus = "active"
	SequencePaused    SequenceStatus = "paused"
	SequenceCompleted SequenceStatus = "completed"
)

// MaxMessagePosition caps the number of steps a sequence may hold.
const MaxMessagePosition = 5

// Sequence is a reusable multi-step messaging campaign template. It
// exclusively owns its ordered Message steps.
type Sequence struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	IntervalDays int            `json:"interval_days"`
	Status       SequenceStatus `json:"status"`
	Messages     []Message      `json:"messages"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Message is one timed content unit within a sequence. Position is
// unique per sequence; DelayHours counts from the previous step, or
// from enrollment for position 1.
type Message struct {
	ID         string    `json:"id"`
	SequenceID string    `json:"sequence_id"`
	Position   int       `json:"position"`
	DelayHours int       `json:"delay_hours"`
	Content    string    `json:"content"`
	SentCount  int       `json:"sent_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidateMessage checks the step fields before persistence. Position
// uniqueness is enforced by the store.
func ValidateMessage(position, delayHours int, content string) error {
	if position < 1 || position > MaxMessagePosition {
		return Validationf("position must be between 1 and %d, got %d", MaxMessagePosition, position)
	}
	if delayHours <= 0 {
		return Validationf("delay_hours must be > 0, got %d", delayHours)
	}
	if strings.TrimSpace(content) == "" {
		return Validationf("content cannot be empty")
	}
	return nil
}

// MessageAt returns the step at the given position, or nil.
func (s *Sequence) MessageAt(position int) *Message {
	for i := range s.Messages {
		if s.Messages[i].Position == position {
			return &s.Messages[i]
		}
	}
	return nil
}

// NextMessageAfter returns the step with the lowest position strictly
// greater than position, or nil when none remains. Positions need only
// be unique, not contiguous, so dispatch walks existing steps rather
// than counting.
func (s *Sequence) NextMessageAfter(position int) *Message {
	var next *Message
	for i := range s.Messages {
		m := &s.Messages[i]
		if m.Position <= position {
			continue
		}
		if next == nil || m.Position < next.Position {
			next = m
		}
	}
	return next
}

// LastPosition returns the highest step position, or 0 for an empty
// sequence.
func (s *Sequence) LastPosition() int {
	last := 0
	for i := range s.Messages {
		if s.Messages[i].Position > last {
			last = s.Messages[i].Position
		}
	}
	return last
}
