package sessions

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/psipractice/booking-api/internal/identity"
	"github.com/psipractice/booking-api/pkg/logging"
)

// Handler handles HTTP requests for sessions.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type createBody struct {
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Details   string     `json:"details"`
}

type adminCreateBody struct {
	createBody
	UserID *string `json:"userId"`
}

type bookBody struct {
	Details string `json:"details"`
}

type updateBody struct {
	Status       Status     `json:"status"`
	Observations *string    `json:"observations"`
	StartTime    *time.Time `json:"startTime"`
	EndTime      *time.Time `json:"endTime"`
	Details      *string    `json:"details"`
}

func (b updateBody) reschedules() bool {
	return b.StartTime != nil || b.EndTime != nil || b.Details != nil
}

// Create handles POST /sessions. The session belongs to the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body createBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.service.Create(r.Context(), CreateRequest{
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Details:   body.Details,
		UserID:    &id.UserID,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// AdminCreate handles POST /admin/sessions. The slot may be created without
// a patient so someone can claim it later.
func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	var body adminCreateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.service.Create(r.Context(), CreateRequest{
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Details:   body.Details,
		UserID:    body.UserID,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// List handles GET /sessions and GET /admin/sessions. Admins see everything;
// patients see their own sessions only.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	sessions, err := h.service.ListFor(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Book handles POST /sessions/{id}/book, claiming a pending session for the
// caller.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	sessionID := chi.URLParam(r, "id")

	var body bookBody
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := h.service.Claim(r.Context(), sessionID, id.UserID, body.Details)
	if err != nil {
		h.writeServiceError(w, err, "failed to book session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Update handles PATCH /admin/sessions/{id}. A status moves the session
// through the lifecycle; new start/end times reschedule it. Both may be
// combined in one request.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var body updateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Status == "" && !body.reschedules() {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	var session *Session
	var err error
	if body.reschedules() {
		session, err = h.service.Reschedule(r.Context(), sessionID, RescheduleRequest{
			StartTime: body.StartTime,
			EndTime:   body.EndTime,
			Details:   body.Details,
		})
		if err != nil {
			h.writeServiceError(w, err, "failed to update session")
			return
		}
	}
	if body.Status != "" {
		session, err = h.service.Transition(r.Context(), sessionID, body.Status, body.Observations)
		if err != nil {
			h.writeServiceError(w, err, "failed to update session")
			return
		}
	}
	writeJSON(w, http.StatusOK, session)
}

// Delete handles DELETE /admin/sessions/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if _, err := h.service.Delete(r.Context(), sessionID); err != nil {
		h.writeServiceError(w, err, "failed to delete session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session deleted"})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrStartNotFuture),
		errors.Is(err, ErrEndBeforeStart),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrPatientNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, ErrSlotUnavailable),
		errors.Is(err, ErrSlotAlreadyTaken),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrStatusConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
