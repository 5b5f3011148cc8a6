package contact

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/psipractice/booking-api/internal/notify"
	"github.com/psipractice/booking-api/pkg/logging"
)

// Request is the contact form payload.
type Request struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Validate normalizes and checks the form fields.
func (r *Request) Validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Message = strings.TrimSpace(r.Message)

	if len(r.Name) < 2 {
		return "name must be at least 2 characters"
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return "a valid email is required"
	}
	if len(r.Message) < 10 {
		return "message must be at least 10 characters"
	}
	return ""
}

// Handler forwards contact form submissions to the practice inbox.
type Handler struct {
	sender     notify.EmailSender
	logger     *logging.Logger
	adminEmail string
}

func NewHandler(sender notify.EmailSender, logger *logging.Logger, adminEmail string) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sender: sender, logger: logger, adminEmail: adminEmail}
}

// Submit handles POST /contact. The email is best effort; the caller gets a
// success response once validation passes.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	body := fmt.Sprintf("New contact form message.\n\nFrom: %s (%s)\n", req.Name, req.Email)
	if req.Phone != "" {
		body += fmt.Sprintf("Phone: %s\n", req.Phone)
	}
	body += "\n" + req.Message + "\n"

	if h.sender != nil && h.adminEmail != "" {
		err := h.sender.Send(r.Context(), notify.EmailMessage{
			To:      h.adminEmail,
			Subject: fmt.Sprintf("Contact form: %s", req.Name),
			Body:    body,
		})
		if err != nil {
			h.logger.Error("failed to forward contact message", "error", err, "from", req.Email)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "message received"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
