package sessions

import "errors"

var (
	ErrSessionNotFound   = errors.New("sessions: session not found")
	ErrPatientNotFound   = errors.New("sessions: patient not found")
	ErrSlotUnavailable   = errors.New("sessions: time slot unavailable")
	ErrSlotAlreadyTaken  = errors.New("sessions: session already claimed")
	ErrStartNotFuture    = errors.New("sessions: start time must be in the future")
	ErrEndBeforeStart    = errors.New("sessions: end time must be after start time")
	ErrInvalidStatus     = errors.New("sessions: invalid status")
	ErrInvalidTransition = errors.New("sessions: status transition not allowed")
	ErrStatusConflict    = errors.New("sessions: session status changed concurrently")
)
