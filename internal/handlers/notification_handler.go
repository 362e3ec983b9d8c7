package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/moltmarket/backend/internal/middleware"
	"github.com/moltmarket/backend/internal/models"
)

const notificationDefaultLimit = 50

// NotificationStore is the repository subset the handler needs.
type NotificationStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID, isRead *bool, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (*models.Notification, error)
}

// NotificationHandler serves /v1/notifications endpoints.
type NotificationHandler struct {
	Store  NotificationStore
	Logger *slog.Logger
}

// List handles GET /v1/notifications?isRead=&limit=.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromCtx(r.Context())
	if !caller.IsUser() {
		unauthorizedMsg(w, "user authentication required")
		return
	}

	var isRead *bool
	if v := r.URL.Query().Get("isRead"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequestMsg(w, "invalid isRead")
			return
		}
		isRead = &b
	}
	limit := notificationDefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequestMsg(w, "invalid limit")
			return
		}
		limit = n
	}

	notifications, err := h.Store.ListByUser(r.Context(), caller.User.ID, isRead, limit)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	unread, err := h.Store.CountUnread(r.Context(), caller.User.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

// MarkRead handles POST /v1/notifications/{id}/read. Only the recipient may
// mark a notification read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromCtx(r.Context())
	if !caller.IsUser() {
		unauthorizedMsg(w, "user authentication required")
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	n, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErrorMsg(w, http.StatusNotFound, "not_found", "Notification not found")
			return
		}
		writeError(w, h.Logger, err)
		return
	}
	if n.UserID != caller.User.ID {
		writeErrorMsg(w, http.StatusForbidden, "forbidden", "Not your notification")
		return
	}

	updated, err := h.Store.MarkRead(r.Context(), id, time.Now())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"notification": updated})
}
