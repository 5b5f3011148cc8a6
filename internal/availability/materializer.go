package availability

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// BusyLister reports intervals already occupied by booked sessions.
type BusyLister interface {
	BusyIntervals(ctx context.Context, from, to time.Time) ([]Interval, error)
}

// Materializer expands availability windows into concrete bookable slots.
type Materializer struct {
	windows     Repository
	busy        BusyLister
	loc         *time.Location
	horizonDays int
	now         func() time.Time
}

// NewMaterializer creates a materializer working in the practice timezone.
// horizonDays caps how far ahead available dates are computed.
func NewMaterializer(windows Repository, busy BusyLister, loc *time.Location, horizonDays int) *Materializer {
	if windows == nil {
		panic("availability: window repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if horizonDays <= 0 {
		horizonDays = 60
	}
	return &Materializer{
		windows:     windows,
		busy:        busy,
		loc:         loc,
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

// SlotsForDate returns the free bookable slots on the given calendar date,
// ordered by start time. Recurring windows are projected onto the date with
// their stored time of day; one-off windows are used as stored. Slots that
// overlap a pending or confirmed session, or lie in the past, are dropped.
func (m *Materializer) SlotsForDate(ctx context.Context, date time.Time) ([]Slot, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, m.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	weekday := int(dayStart.Weekday())

	recurring, err := m.windows.ListActiveRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("availability: list recurring windows: %w", err)
	}
	oneOff, err := m.windows.ListActiveOneOff(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("availability: list one-off windows: %w", err)
	}

	slots := make([]Slot, 0, len(recurring)+len(oneOff))
	for _, w := range recurring {
		if w.DayOfWeek == nil || *w.DayOfWeek != weekday {
			continue
		}
		slots = append(slots, m.project(w, dayStart))
	}
	for _, w := range oneOff {
		slots = append(slots, Slot{
			ID:        w.ID,
			WindowID:  w.ID,
			StartTime: w.StartTime.In(m.loc),
			EndTime:   w.EndTime.In(m.loc),
		})
	}

	var busy []Interval
	if m.busy != nil {
		busy, err = m.busy.BusyIntervals(ctx, dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("availability: list busy intervals: %w", err)
		}
	}

	now := m.now()
	free := slots[:0]
	for _, s := range slots {
		if !s.StartTime.After(now) {
			continue
		}
		if overlapsAny(Interval{Start: s.StartTime, End: s.EndTime}, busy) {
			continue
		}
		free = append(free, s)
	}

	sort.Slice(free, func(i, j int) bool { return free[i].StartTime.Before(free[j].StartTime) })
	return free, nil
}

// project materializes a recurring window onto a concrete day. The window's
// stored anchor date is ignored; only its wall-clock time carries over. Each
// projection gets a synthetic id since the window row is shared across dates.
func (m *Materializer) project(w *Window, dayStart time.Time) Slot {
	sh, sm, _ := w.StartTime.In(m.loc).Clock()
	eh, em, _ := w.EndTime.In(m.loc).Clock()
	// time.Date pins the wall-clock time even when the day contains a DST
	// transition; adding a duration to midnight would shift it.
	start := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), sh, sm, 0, 0, m.loc)
	end := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), eh, em, 0, 0, m.loc)
	return Slot{
		ID:          fmt.Sprintf("%s-%s", w.ID, dayStart.Format("2006-01-02")),
		WindowID:    w.ID,
		StartTime:   start,
		EndTime:     end,
		IsRecurring: true,
	}
}

// AvailableDates returns the dates within the horizon that have at least one
// active window, formatted as YYYY-MM-DD in ascending order. horizonDays is
// clamped to the configured maximum; zero or negative means the maximum.
func (m *Materializer) AvailableDates(ctx context.Context, horizonDays int) ([]string, error) {
	if horizonDays <= 0 || horizonDays > m.horizonDays {
		horizonDays = m.horizonDays
	}

	now := m.now().In(m.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, m.loc)
	horizon := today.AddDate(0, 0, horizonDays)

	recurring, err := m.windows.ListActiveRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("availability: list recurring windows: %w", err)
	}
	oneOff, err := m.windows.ListActiveOneOff(ctx, today, horizon)
	if err != nil {
		return nil, fmt.Errorf("availability: list one-off windows: %w", err)
	}

	weekdays := make(map[int]bool)
	for _, w := range recurring {
		if w.DayOfWeek != nil {
			weekdays[*w.DayOfWeek] = true
		}
	}
	oneOffDates := make(map[string]bool)
	for _, w := range oneOff {
		oneOffDates[w.StartTime.In(m.loc).Format("2006-01-02")] = true
	}

	var dates []string
	for i := 0; i < horizonDays; i++ {
		d := today.AddDate(0, 0, i)
		key := d.Format("2006-01-02")
		if weekdays[int(d.Weekday())] || oneOffDates[key] {
			dates = append(dates, key)
		}
	}
	return dates, nil
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
