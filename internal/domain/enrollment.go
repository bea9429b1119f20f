package domain

import "time"

// EnrollmentStatus is a prospect's progress state through a sequence.
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentPaused    EnrollmentStatus = "paused"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentFailed    EnrollmentStatus = "failed"
)

// ConnectionStatus tracks the platform relationship with a prospect.
// Follow-up steps require the prospect to be connected.
type ConnectionStatus string

const (
	NotConnected   ConnectionStatus = "not_connected"
	InvitationSent ConnectionStatus = "invitation_sent"
	Connected      ConnectionStatus = "connected"
)

// Enrollment is a prospect's individual progress through a sequence.
// It references its sequence and prospect; it owns neither.
type Enrollment struct {
	ID               string           `json:"id"`
	SequenceID       string           `json:"sequence_id"`
	ProspectID       string           `json:"prospect_id"`
	CurrentStep      int              `json:"current_step"`
	Status           EnrollmentStatus `json:"status"`
	ConnectionStatus ConnectionStatus `json:"connection_status"`
	NextDueAt        time.Time        `json:"next_due_at"`
	Attempts         int              `json:"attempts"`
	LastError        string           `json:"last_error,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// EnrollmentFailure reports one prospect that could not be enrolled in
// a batch add.
type EnrollmentFailure struct {
	ProspectID string `json:"prospect_id"`
	Reason     string `json:"reason"`
}

// EnrollmentResult summarizes a batch enroll. Already-enrolled prospects
// are skipped silently and counted in neither field.
type EnrollmentResult struct {
	SuccessCount int                 `json:"success_count"`
	Failures     []EnrollmentFailure `json:"failures"`
}
