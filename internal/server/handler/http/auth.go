// Package http provides the HTTP API of the development chat server.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/atinyakov/GophChat/internal/middleware"
	"github.com/atinyakov/GophChat/internal/models"
	"github.com/atinyakov/GophChat/internal/service"
)

// AuthService defines the authentication operations required by the
// handlers.
type AuthService interface {
	Register(ctx context.Context, username, email, password, language string) (models.User, error)
	LoginWithPassword(ctx context.Context, login, password string) (service.LoginResult, error)
	Resume(ctx context.Context, token string) (service.LoginResult, error)
	LoginOAuth(ctx context.Context, creds models.OAuthCredentials) (service.LoginResult, error)
	Logout(ctx context.Context, userID, token string) error
	Authenticate(ctx context.Context, userID, token string) error
	RegisterPushToken(ctx context.Context, userID string, t models.PushToken) error
}

var validate = validator.New()

// AuthHandler handles registration, login, logout and push tokens.
type AuthHandler struct {
	AuthService AuthService
}

// RegisterRequest is the payload of POST /api/v1/users.register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
	Pass     string `json:"pass" validate:"required,min=6"`
	Language string `json:"language" validate:"omitempty,bcp47_language_tag"`
}

// Register creates a user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	u, err := h.AuthService.Register(r.Context(), req.Username, req.Email, req.Pass, req.Language)
	if errors.Is(err, service.ErrUserExists) {
		http.Error(w, "user already exists", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, success(map[string]any{"user": u}))
}

// LoginRequest is the payload of POST /api/v1/login. OAuth takes precedence
// over Resume, which takes precedence over User and Password.
type LoginRequest struct {
	User     string                   `json:"user"`
	Password string                   `json:"password"`
	Resume   string                   `json:"resume"`
	OAuth    *models.OAuthCredentials `json:"oauth"`
}

type loginData struct {
	UserID    string      `json:"userId"`
	AuthToken string      `json:"authToken"`
	Me        models.User `json:"me"`
}

// Login exchanges credentials for a user id and login token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	var (
		res service.LoginResult
		err error
	)
	ctx := r.Context()
	switch {
	case req.OAuth != nil:
		res, err = h.AuthService.LoginOAuth(ctx, *req.OAuth)
	case req.Resume != "":
		res, err = h.AuthService.Resume(ctx, req.Resume)
	case req.User != "" && req.Password != "":
		res, err = h.AuthService.LoginWithPassword(ctx, req.User, req.Password)
	default:
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"status":  "error",
			"message": "Unauthorized",
		})
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   loginData{UserID: res.UserID, AuthToken: res.AuthToken, Me: res.Me},
	})
}

// Logout revokes the token the request was authenticated with.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, token := middleware.GetUserIDFromContext(ctx), middleware.GetTokenFromContext(ctx)
	if err := h.AuthService.Logout(ctx, userID, token); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]string{"message": "You've been logged out!"},
	})
}

// PushToken registers the device push token of the caller.
func (h *AuthHandler) PushToken(w http.ResponseWriter, r *http.Request) {
	var req models.PushToken
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	userID := middleware.GetUserIDFromContext(r.Context())
	if err := h.AuthService.RegisterPushToken(r.Context(), userID, req); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, success(map[string]any{"result": req}))
}
