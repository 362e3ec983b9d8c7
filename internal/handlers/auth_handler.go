package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/moltmarket/backend/internal/auth"
)

// AuthHandler serves /v1/auth endpoints.
type AuthHandler struct {
	Auth   auth.Service
	Logger *slog.Logger
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequestMsg(w, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		badRequestMsg(w, "email, password and name are required")
		return
	}
	if len(req.Password) < 8 {
		badRequestMsg(w, "password must be at least 8 characters")
		return
	}

	user, err := h.Auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			writeErrorMsg(w, http.StatusConflict, "conflict", "email already registered")
			return
		}
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"user": user})
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequestMsg(w, "invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequestMsg(w, "email and password are required")
		return
	}

	token, user, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			unauthorizedMsg(w, "invalid credentials")
			return
		}
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"token": token, "user": user})
}
