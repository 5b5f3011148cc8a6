package availability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/psipractice/booking-api/pkg/logging"
)

func newTestHandler(t *testing.T) (*Handler, *InMemoryRepository) {
	t.Helper()
	repo := NewInMemoryRepository()
	m := NewMaterializer(repo, busyStub{}, time.UTC, 60)
	m.now = fixedNow(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC))
	return NewHandler(repo, m, logging.Default()), repo
}

func TestGetAvailableSlots_MissingDate(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/availability/slots", nil)
	w := httptest.NewRecorder()
	h.GetAvailableSlots(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestGetAvailableSlots_BadDateFormat(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/availability/slots?date=07-01-2030", nil)
	w := httptest.NewRecorder()
	h.GetAvailableSlots(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestGetAvailableSlots_Success(t *testing.T) {
	h, repo := newTestHandler(t)
	mustCreate(t, repo, recurringReq(1, 10, 0, 10, 40))

	req := httptest.NewRequest(http.MethodGet, "/availability/slots?date=2030-01-07", nil)
	w := httptest.NewRecorder()
	h.GetAvailableSlots(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp struct {
		AvailableSlots []Slot `json:"availableSlots"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.AvailableSlots) != 1 {
		t.Errorf("expected one slot, got %d", len(resp.AvailableSlots))
	}
}

func TestGetAvailableDates_InvalidDays(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/availability/dates?days=zero", nil)
	w := httptest.NewRecorder()
	h.GetAvailableDates(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestGetAvailableDates_EmptyIsAnArray(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/availability/dates", nil)
	w := httptest.NewRecorder()
	h.GetAvailableDates(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), `"availableDates":[]`) {
		t.Errorf("expected empty array in response, got %s", w.Body.String())
	}
}

func TestCreateWindow_RecurringWithoutWeekday(t *testing.T) {
	h, _ := newTestHandler(t)

	body, _ := json.Marshal(CreateWindowRequest{
		IsRecurring: true,
		StartTime:   mondayAnchor.Add(10 * time.Hour),
		EndTime:     mondayAnchor.Add(10*time.Hour + 40*time.Minute),
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/windows", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateWindow(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCreateWindow_Success(t *testing.T) {
	h, _ := newTestHandler(t)

	day := 1
	body, _ := json.Marshal(CreateWindowRequest{
		IsRecurring: true,
		DayOfWeek:   &day,
		StartTime:   mondayAnchor.Add(10 * time.Hour),
		EndTime:     mondayAnchor.Add(10*time.Hour + 40*time.Minute),
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/windows", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateWindow(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var window Window
	if err := json.NewDecoder(w.Body).Decode(&window); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if window.ID == "" || !window.IsActive {
		t.Errorf("expected active window with id, got %+v", window)
	}
}

func TestUpdateWindow_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	r := chi.NewRouter()
	r.Patch("/admin/windows/{id}", h.UpdateWindow)

	req := httptest.NewRequest(http.MethodPatch, "/admin/windows/missing", strings.NewReader(`{"isActive":false}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestUpdateWindow_EndBeforeStartRejected(t *testing.T) {
	h, repo := newTestHandler(t)
	window := mustCreate(t, repo, recurringReq(1, 10, 0, 10, 40))

	r := chi.NewRouter()
	r.Patch("/admin/windows/{id}", h.UpdateWindow)

	badEnd := mondayAnchor.Add(9 * time.Hour)
	body, _ := json.Marshal(UpdateWindowRequest{EndTime: &badEnd})
	req := httptest.NewRequest(http.MethodPatch, "/admin/windows/"+window.ID, bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, w.Code, w.Body.String())
	}

	kept, err := repo.GetByID(context.Background(), window.ID)
	if err != nil {
		t.Fatalf("get window: %v", err)
	}
	if !kept.EndTime.Equal(window.EndTime) {
		t.Errorf("expected end time unchanged, got %s", kept.EndTime)
	}
}

func TestUpdateWindow_RecurringFlipNeedsWeekday(t *testing.T) {
	h, repo := newTestHandler(t)
	start := time.Date(2030, 1, 7, 15, 0, 0, 0, time.UTC)
	window := mustCreate(t, repo, &CreateWindowRequest{
		StartTime: start,
		EndTime:   start.Add(40 * time.Minute),
	})

	r := chi.NewRouter()
	r.Patch("/admin/windows/{id}", h.UpdateWindow)

	req := httptest.NewRequest(http.MethodPatch, "/admin/windows/"+window.ID, strings.NewReader(`{"isRecurring":true}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, w.Code, w.Body.String())
	}

	kept, err := repo.GetByID(context.Background(), window.ID)
	if err != nil {
		t.Fatalf("get window: %v", err)
	}
	if kept.IsRecurring {
		t.Error("expected window to stay one-off")
	}
}

func TestUpdateWindow_RecurringToOneOffClearsWeekday(t *testing.T) {
	h, repo := newTestHandler(t)
	window := mustCreate(t, repo, recurringReq(1, 10, 0, 10, 40))

	r := chi.NewRouter()
	r.Patch("/admin/windows/{id}", h.UpdateWindow)

	req := httptest.NewRequest(http.MethodPatch, "/admin/windows/"+window.ID, strings.NewReader(`{"isRecurring":false}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	kept, err := repo.GetByID(context.Background(), window.ID)
	if err != nil {
		t.Fatalf("get window: %v", err)
	}
	if kept.IsRecurring || kept.DayOfWeek != nil {
		t.Errorf("expected one-off window without weekday, got %+v", kept)
	}
}

func TestDeleteWindow_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	r := chi.NewRouter()
	r.Delete("/admin/windows/{id}", h.DeleteWindow)

	req := httptest.NewRequest(http.MethodDelete, "/admin/windows/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestDeleteWindow_Success(t *testing.T) {
	h, repo := newTestHandler(t)
	window := mustCreate(t, repo, recurringReq(1, 10, 0, 10, 40))

	r := chi.NewRouter()
	r.Delete("/admin/windows/{id}", h.DeleteWindow)

	req := httptest.NewRequest(http.MethodDelete, "/admin/windows/"+window.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if _, err := repo.GetByID(context.Background(), window.ID); err != ErrWindowNotFound {
		t.Errorf("expected window to be gone, got %v", err)
	}
}

func TestDeactivationRemovesFromMaterialization(t *testing.T) {
	h, repo := newTestHandler(t)
	window := mustCreate(t, repo, recurringReq(1, 10, 0, 10, 40))

	r := chi.NewRouter()
	r.Patch("/admin/windows/{id}", h.UpdateWindow)

	req := httptest.NewRequest(http.MethodPatch, "/admin/windows/"+window.ID, strings.NewReader(`{"isActive":false}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	// The record survives as history even though it no longer materializes.
	kept, err := repo.GetByID(context.Background(), window.ID)
	if err != nil {
		t.Fatalf("expected window record to survive: %v", err)
	}
	if kept.IsActive {
		t.Error("expected window to be inactive")
	}
}
