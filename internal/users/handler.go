package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/psipractice/booking-api/internal/identity"
	"github.com/psipractice/booking-api/pkg/logging"
)

// bcryptCost matches the cost the seeder uses for the admin account.
const bcryptCost = 12

// Handler handles registration and authentication requests.
type Handler struct {
	repo   Repository
	tokens *identity.TokenManager
	logger *logging.Logger
}

func NewHandler(repo Repository, tokens *identity.TokenManager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, tokens: tokens, logger: logger}
}

type authResponse struct {
	User   *User              `json:"user"`
	Tokens identity.TokenPair `json:"tokens"`
}

// Register handles POST /auth/register. New accounts are always patients;
// admin accounts are created by the seeder only.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	user, err := h.repo.Create(r.Context(), &User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         RolePatient,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	resp, err := h.issueTokens(r, user)
	if err != nil {
		h.logger.Error("failed to issue tokens", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.repo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("failed to look up user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	resp, err := h.issueTokens(r, user)
	if err != nil {
		h.logger.Error("failed to issue tokens", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /auth/refresh. The presented refresh token must match
// the one stored on the user row; a successful refresh rotates it.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	id, err := h.tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := h.repo.GetByID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if user.RefreshToken == nil || *user.RefreshToken != req.RefreshToken {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	resp, err := h.issueTokens(r, user)
	if err != nil {
		h.logger.Error("failed to rotate tokens", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to refresh")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListUsers handles GET /admin/users. An email query parameter narrows the
// result to one account so the dashboard can attach a patient to a session.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if email := r.URL.Query().Get("email"); email != "" {
		user, err := h.repo.GetByEmail(r.Context(), email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				writeError(w, http.StatusNotFound, "user not found")
				return
			}
			h.logger.Error("failed to look up user", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list users")
			return
		}
		writeJSON(w, http.StatusOK, []*User{user})
		return
	}

	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if list == nil {
		list = []*User{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) issueTokens(r *http.Request, user *User) (*authResponse, error) {
	pair, err := h.tokens.Issue(identity.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   identity.Role(user.Role),
	})
	if err != nil {
		return nil, err
	}
	if err := h.repo.UpdateRefreshToken(r.Context(), user.ID, &pair.RefreshToken); err != nil {
		return nil, err
	}
	return &authResponse{User: user, Tokens: pair}, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
