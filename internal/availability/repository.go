package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for availability window storage.
type Repository interface {
	Create(ctx context.Context, req *CreateWindowRequest) (*Window, error)
	Update(ctx context.Context, id string, req *UpdateWindowRequest) (*Window, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Window, error)
	ListAll(ctx context.Context) ([]*Window, error)
	ListActiveRecurring(ctx context.Context) ([]*Window, error)
	ListActiveOneOff(ctx context.Context, from, to time.Time) ([]*Window, error)
}

// InMemoryRepository is an in-memory Repository used in tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	windows map[string]*Window
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{windows: make(map[string]*Window)}
}

// Create validates and stores a new window.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateWindowRequest) (*Window, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	w := &Window{
		ID:          uuid.New().String(),
		IsRecurring: req.IsRecurring,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.windows[w.ID] = w
	r.mu.Unlock()

	dup := *w
	return &dup, nil
}

// Update applies a partial update to an existing window. The merged result
// must satisfy the same invariants a create does.
func (r *InMemoryRepository) Update(ctx context.Context, id string, req *UpdateWindowRequest) (*Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[id]
	if !ok {
		return nil, ErrWindowNotFound
	}

	next := req.merged(w)
	if err := next.Validate(); err != nil {
		return nil, err
	}

	w.IsRecurring = next.IsRecurring
	w.DayOfWeek = next.DayOfWeek
	w.StartTime = next.StartTime
	w.EndTime = next.EndTime
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}
	w.UpdatedAt = time.Now().UTC()

	dup := *w
	return &dup, nil
}

// Delete removes a window.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.windows[id]; !ok {
		return ErrWindowNotFound
	}
	delete(r.windows, id)
	return nil
}

// GetByID retrieves a window by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.windows[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	dup := *w
	return &dup, nil
}

// ListAll returns every window, recurring first, ordered by weekday and start.
func (r *InMemoryRepository) ListAll(ctx context.Context) ([]*Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Window, 0, len(r.windows))
	for _, w := range r.windows {
		dup := *w
		out = append(out, &dup)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsRecurring != out[j].IsRecurring {
			return out[i].IsRecurring
		}
		di, dj := weekdayOrZero(out[i]), weekdayOrZero(out[j])
		if di != dj {
			return di < dj
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

// ListActiveRecurring returns all active recurring windows.
func (r *InMemoryRepository) ListActiveRecurring(ctx context.Context) ([]*Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Window
	for _, w := range r.windows {
		if w.IsRecurring && w.IsActive {
			dup := *w
			out = append(out, &dup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// ListActiveOneOff returns active one-off windows starting within [from, to).
func (r *InMemoryRepository) ListActiveOneOff(ctx context.Context, from, to time.Time) ([]*Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Window
	for _, w := range r.windows {
		if !w.IsRecurring && w.IsActive && !w.StartTime.Before(from) && w.StartTime.Before(to) {
			dup := *w
			out = append(out, &dup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func weekdayOrZero(w *Window) int {
	if w.DayOfWeek == nil {
		return 0
	}
	return *w.DayOfWeek
}
