package availability

import "time"

// Window is a bookable availability definition. Recurring windows repeat
// weekly on DayOfWeek and carry only a time of day in StartTime/EndTime;
// one-off windows are bound to the concrete date stored in those fields.
type Window struct {
	ID          string     `json:"id"`
	IsRecurring bool       `json:"isRecurring"`
	DayOfWeek   *int       `json:"dayOfWeek"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Slot is a concrete bookable interval materialized from a window.
type Slot struct {
	ID          string    `json:"id"`
	WindowID    string    `json:"windowId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	IsRecurring bool      `json:"isRecurring"`
}

// CreateWindowRequest is the payload for creating an availability window.
type CreateWindowRequest struct {
	IsRecurring bool      `json:"isRecurring"`
	DayOfWeek   *int      `json:"dayOfWeek"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

// Validate checks the recurring/one-off invariants.
func (r *CreateWindowRequest) Validate() error {
	if r.IsRecurring {
		if r.DayOfWeek == nil {
			return ErrDayOfWeekRequired
		}
		if *r.DayOfWeek < 0 || *r.DayOfWeek > 6 {
			return ErrDayOfWeekRange
		}
		// For recurring windows only the time of day matters.
		if !clockAfter(r.EndTime, r.StartTime) {
			return ErrEndBeforeStart
		}
		return nil
	}
	if r.DayOfWeek != nil {
		return ErrDayOfWeekForbidden
	}
	if !r.EndTime.After(r.StartTime) {
		return ErrEndBeforeStart
	}
	return nil
}

// UpdateWindowRequest is a partial update; nil fields are left unchanged.
type UpdateWindowRequest struct {
	IsRecurring *bool      `json:"isRecurring"`
	DayOfWeek   *int       `json:"dayOfWeek"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	IsActive    *bool      `json:"isActive"`
}

// merged applies the patch on top of the current window state so the result
// can be validated with the same rules as a create. Flipping a window to
// one-off drops its stored day of week unless the patch supplies one.
func (r *UpdateWindowRequest) merged(w *Window) *CreateWindowRequest {
	out := &CreateWindowRequest{
		IsRecurring: w.IsRecurring,
		DayOfWeek:   w.DayOfWeek,
		StartTime:   w.StartTime,
		EndTime:     w.EndTime,
	}
	if r.IsRecurring != nil {
		out.IsRecurring = *r.IsRecurring
	}
	if r.DayOfWeek != nil {
		out.DayOfWeek = r.DayOfWeek
	}
	if r.StartTime != nil {
		out.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		out.EndTime = *r.EndTime
	}
	if r.IsRecurring != nil && !*r.IsRecurring && r.DayOfWeek == nil {
		out.DayOfWeek = nil
	}
	return out
}

// clockAfter compares two instants by wall-clock time of day only.
func clockAfter(a, b time.Time) bool {
	ah, am, as := a.Clock()
	bh, bm, bs := b.Clock()
	return ah*3600+am*60+as > bh*3600+bm*60+bs
}
