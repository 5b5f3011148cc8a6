package sessions

import "time"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Blocks reports whether a session in this status occupies its time slot.
func (s Status) Blocks() bool {
	return s == StatusPending || s == StatusConfirmed
}

var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Session is a booked or bookable appointment. UserID is nil for admin-held
// slots no patient has claimed yet.
type Session struct {
	ID           string    `json:"id"`
	UserID       *string   `json:"userId"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	Status       Status    `json:"status"`
	Details      string    `json:"details,omitempty"`
	Observations string    `json:"observations,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Overlaps reports whether the session occupies any instant of [start, end).
func (s *Session) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}

// CreateRequest carries the inputs for creating a session. EndTime is
// optional and defaults to the configured session duration after StartTime.
type CreateRequest struct {
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Details   string     `json:"details,omitempty"`
	UserID    *string    `json:"-"`
}

// RescheduleRequest moves an existing session. Nil fields keep the current
// values.
type RescheduleRequest struct {
	StartTime *time.Time
	EndTime   *time.Time
	Details   *string
}
