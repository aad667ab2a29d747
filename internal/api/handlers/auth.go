package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/launchdeck/launchdeck/internal/api/errors"
	"github.com/launchdeck/launchdeck/internal/auth"
	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/store"
	"github.com/launchdeck/launchdeck/internal/store/postgres"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	store  store.Store
	auth   *auth.Service
	logger *slog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(st store.Store, authSvc *auth.Service, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{store: st, auth: authSvc, logger: logger}
}

type registerRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Plan     models.Plan `json:"plan,omitempty"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

// Register creates a new user account and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, r, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeValidationError(w, r, "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeValidationError(w, r, "password must be at least 8 characters")
		return
	}
	if req.Plan == "" {
		req.Plan = models.PlanFree
	}
	if !req.Plan.IsValid() {
		writeValidationError(w, r, "unknown plan")
		return
	}

	user, err := h.store.Users().Create(r.Context(), req.Email, req.Password, req.Plan)
	if err != nil {
		if errors.Is(err, postgres.ErrDuplicateKey) {
			apierrors.WriteError(w, apierrors.New(apierrors.CodeConflict, "email already registered"))
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeDomainError(w, r, err)
		return
	}

	token, err := h.auth.GenerateToken(user.ID, user.Email, user.Plan)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		writeDomainError(w, r, err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "plan", user.Plan)
	writeJSON(w, http.StatusCreated, &authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, r, "invalid request body")
		return
	}

	user, err := h.store.Users().Authenticate(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
	if err != nil {
		apierrors.WriteError(w, apierrors.NewUnauthorizedError("invalid credentials"))
		return
	}

	token, err := h.auth.GenerateToken(user.ID, user.Email, user.Plan)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, &authResponse{Token: token, User: user})
}
