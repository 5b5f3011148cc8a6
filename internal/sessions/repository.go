package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/psipractice/booking-api/internal/availability"
)

// Repository defines storage operations for sessions. Create performs the
// conflict check and the insert atomically; Claim and TransitionStatus are
// conditional updates that fail instead of clobbering concurrent changes.
type Repository interface {
	Create(ctx context.Context, session *Session) (*Session, error)
	GetByID(ctx context.Context, id string) (*Session, error)
	Claim(ctx context.Context, id, userID, details string) (*Session, error)
	TransitionStatus(ctx context.Context, id string, from, to Status, observations *string) (*Session, error)
	Reschedule(ctx context.Context, id string, start, end time.Time, details *string) (*Session, error)
	Delete(ctx context.Context, id string) (*Session, error)
	ListAll(ctx context.Context) ([]*Session, error)
	ListByUser(ctx context.Context, userID string) ([]*Session, error)
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]*Session, error)
}

// BusyAdapter exposes blocking sessions as busy intervals for the slot
// materializer.
type BusyAdapter struct {
	repo Repository
}

func NewBusyAdapter(repo Repository) *BusyAdapter {
	return &BusyAdapter{repo: repo}
}

func (a *BusyAdapter) BusyIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	sessions, err := a.repo.ListActiveBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	intervals := make([]availability.Interval, 0, len(sessions))
	for _, s := range sessions {
		intervals = append(intervals, availability.Interval{Start: s.StartTime, End: s.EndTime})
	}
	return intervals, nil
}

// InMemoryRepository is a mutex-serialized Repository for tests and local
// development. The single lock stands in for the transactional conflict
// check the Postgres implementation does.
type InMemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sessions: make(map[string]*Session)}
}

func (r *InMemoryRepository) Create(ctx context.Context, session *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sessions {
		if existing.Status.Blocks() && existing.Overlaps(session.StartTime, session.EndTime) {
			return nil, ErrSlotUnavailable
		}
	}

	now := time.Now().UTC()
	stored := *session
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Status == "" {
		stored.Status = StatusPending
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.sessions[stored.ID] = &stored

	dup := stored
	return &dup, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	dup := *session
	return &dup, nil
}

func (r *InMemoryRepository) Claim(ctx context.Context, id, userID, details string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Status != StatusPending || session.UserID != nil {
		return nil, ErrSlotAlreadyTaken
	}

	session.UserID = &userID
	session.Status = StatusConfirmed
	if details != "" {
		session.Details = details
	}
	session.UpdatedAt = time.Now().UTC()

	dup := *session
	return &dup, nil
}

func (r *InMemoryRepository) TransitionStatus(ctx context.Context, id string, from, to Status, observations *string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Status != from {
		return nil, ErrStatusConflict
	}

	session.Status = to
	if observations != nil {
		session.Observations = *observations
	}
	session.UpdatedAt = time.Now().UTC()

	dup := *session
	return &dup, nil
}

func (r *InMemoryRepository) Reschedule(ctx context.Context, id string, start, end time.Time, details *string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	for _, other := range r.sessions {
		if other.ID != id && other.Status.Blocks() && other.Overlaps(start, end) {
			return nil, ErrSlotUnavailable
		}
	}

	session.StartTime = start
	session.EndTime = end
	if details != nil {
		session.Details = *details
	}
	session.UpdatedAt = time.Now().UTC()

	dup := *session
	return &dup, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(r.sessions, id)

	dup := *session
	return &dup, nil
}

func (r *InMemoryRepository) ListAll(ctx context.Context) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		dup := *s
		out = append(out, &dup)
	}
	sortByStart(out)
	return out, nil
}

func (r *InMemoryRepository) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	for _, s := range r.sessions {
		if s.UserID != nil && *s.UserID == userID {
			dup := *s
			out = append(out, &dup)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *InMemoryRepository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	for _, s := range r.sessions {
		if s.Status.Blocks() && s.Overlaps(from, to) {
			dup := *s
			out = append(out, &dup)
		}
	}
	sortByStart(out)
	return out, nil
}

func sortByStart(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
}
