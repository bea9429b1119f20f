package domain

// StatusMeta is presentation metadata for a status value. The frontend
// consumes this single table instead of duplicating per-entity
// status-to-label mappings.
type StatusMeta struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var sessionStatusMeta = map[SessionStatus]StatusMeta{
	SessionInitializing: {Label: "Initializing", Color: "gray"},
	SessionRunning:      {Label: "Running", Color: "green"},
	SessionPaused:       {Label: "Paused", Color: "yellow"},
	SessionCompleted:    {Label: "Completed", Color: "blue"},
	SessionError:        {Label: "Error", Color: "red"},
	SessionStopped:      {Label: "Stopped", Color: "gray"},
}

var sequenceStatusMeta = map[SequenceStatus]StatusMeta{
	SequenceDraft:     {Label: "Draft", Color: "gray"},
	SequenceActive:    {Label: "Active", Color: "green"},
	SequencePaused:    {Label: "Paused", Color: "yellow"},
	SequenceCompleted: {Label: "Completed", Color: "blue"},
}

var enrollmentStatusMeta = map[EnrollmentStatus]StatusMeta{
	EnrollmentPending:   {Label: "Pending", Color: "gray"},
	EnrollmentActive:    {Label: "Active", Color: "green"},
	EnrollmentPaused:    {Label: "Paused", Color: "yellow"},
	EnrollmentCompleted: {Label: "Completed", Color: "blue"},
	EnrollmentFailed:    {Label: "Failed", Color: "red"},
}

// Meta returns presentation metadata for a session status.
func (s SessionStatus) Meta() StatusMeta { return sessionStatusMeta[s] }

// Meta returns presentation metadata for a sequence status.
func (s SequenceStatus) Meta() StatusMeta { return sequenceStatusMeta[s] }

// Meta returns presentation metadata for an enrollment status.
func (s EnrollmentStatus) Meta() StatusMeta { return enrollmentStatusMeta[s] }
