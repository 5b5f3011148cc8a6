package availability

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/psipractice/booking-api/pkg/logging"
)

// Handler handles HTTP requests for availability windows and slots.
type Handler struct {
	repo         Repository
	materializer *Materializer
	logger       *logging.Logger
}

// NewHandler creates a new availability handler.
func NewHandler(repo Repository, materializer *Materializer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:         repo,
		materializer: materializer,
		logger:       logger,
	}
}

// GetAvailableDates handles GET /availability/dates requests.
func (h *Handler) GetAvailableDates(w http.ResponseWriter, r *http.Request) {
	days := 0
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	dates, err := h.materializer.AvailableDates(r.Context(), days)
	if err != nil {
		h.logger.Error("failed to compute available dates", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute available dates")
		return
	}
	if dates == nil {
		dates = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"availableDates": dates})
}

// GetAvailableSlots handles GET /availability/slots?date=YYYY-MM-DD requests.
func (h *Handler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return
	}

	slots, err := h.materializer.SlotsForDate(r.Context(), date)
	if err != nil {
		h.logger.Error("failed to materialize slots", "error", err, "date", dateStr)
		writeError(w, http.StatusInternalServerError, "failed to compute available slots")
		return
	}
	if slots == nil {
		slots = []Slot{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"availableSlots": slots})
}

// ListWindows handles GET /admin/windows requests.
func (h *Handler) ListWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list windows", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list availability windows")
		return
	}
	if windows == nil {
		windows = []*Window{}
	}
	writeJSON(w, http.StatusOK, windows)
}

// CreateWindow handles POST /admin/windows requests.
func (h *Handler) CreateWindow(w http.ResponseWriter, r *http.Request) {
	var req CreateWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	window, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create window", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create availability window")
		return
	}

	h.logger.Info("availability window created", "id", window.ID, "recurring", window.IsRecurring)
	writeJSON(w, http.StatusCreated, window)
}

// UpdateWindow handles PATCH /admin/windows/{id} requests.
func (h *Handler) UpdateWindow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	window, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrWindowNotFound):
			writeError(w, http.StatusNotFound, "availability window not found")
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to update window", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to update availability window")
		}
		return
	}

	writeJSON(w, http.StatusOK, window)
}

// DeleteWindow handles DELETE /admin/windows/{id} requests.
func (h *Handler) DeleteWindow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			writeError(w, http.StatusNotFound, "availability window not found")
			return
		}
		h.logger.Error("failed to delete window", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete availability window")
		return
	}

	h.logger.Info("availability window deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "availability window deleted"})
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrDayOfWeekRequired) ||
		errors.Is(err, ErrDayOfWeekForbidden) ||
		errors.Is(err, ErrDayOfWeekRange) ||
		errors.Is(err, ErrEndBeforeStart)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
