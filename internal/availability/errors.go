package availability

import "errors"

var (
	// ErrWindowNotFound is returned when a window id does not exist.
	ErrWindowNotFound = errors.New("availability window not found")

	// ErrDayOfWeekRequired is returned when a recurring window has no weekday.
	ErrDayOfWeekRequired = errors.New("day of week is required for recurring windows")

	// ErrDayOfWeekForbidden is returned when a one-off window carries a weekday.
	ErrDayOfWeekForbidden = errors.New("day of week must not be set for one-off windows")

	// ErrDayOfWeekRange is returned when the weekday is outside 0-6.
	ErrDayOfWeekRange = errors.New("day of week must be between 0 and 6")

	// ErrEndBeforeStart is returned when the end does not follow the start.
	ErrEndBeforeStart = errors.New("end time must be after start time")

	// ErrInvalidDate is returned when a date query parameter cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")
)
