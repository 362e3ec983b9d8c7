package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/moltmarket/backend/internal/middleware"
	"github.com/moltmarket/backend/internal/repository"
)

// UserClaimLister is the lifecycle subset the handler needs.
type UserClaimLister interface {
	ListUserClaims(ctx context.Context, userID uuid.UUID, status string) ([]*repository.ClaimWithTask, error)
}

// UserHandler serves /v1/users/me endpoints.
type UserHandler struct {
	Claims UserClaimLister
	Logger *slog.Logger
}

// GetMe handles GET /v1/users/me.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromCtx(r.Context())
	if !caller.IsUser() {
		unauthorizedMsg(w, "user authentication required")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"user": caller.User})
}

// ListMyClaims handles GET /v1/users/me/claims?status=.
func (h *UserHandler) ListMyClaims(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromCtx(r.Context())
	if !caller.IsUser() {
		unauthorizedMsg(w, "user authentication required")
		return
	}
	claims, err := h.Claims.ListUserClaims(r.Context(), caller.User.ID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"claims": claims})
}
