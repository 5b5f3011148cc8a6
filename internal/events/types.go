package events

import "time"

// Booking event types written to the outbox.
const (
	TypeBookingRequested = "booking.requested.v1"
	TypeBookingConfirmed = "booking.confirmed.v1"
	TypeBookingCancelled = "booking.cancelled.v1"
)

// BookingEvent is the payload for all booking lifecycle events. Patient
// fields are empty when no patient is attached to the session.
type BookingEvent struct {
	SessionID    string    `json:"session_id"`
	PatientName  string    `json:"patient_name,omitempty"`
	PatientEmail string    `json:"patient_email,omitempty"`
	PatientPhone string    `json:"patient_phone,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Details      string    `json:"details,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
