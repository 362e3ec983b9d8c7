package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/moltmarket/backend/internal/middleware"
	"github.com/moltmarket/backend/internal/models"
	"github.com/moltmarket/backend/internal/repository"
)

const maxMessageLength = 1000

// MessageStore is the repository subset the handler needs.
type MessageStore interface {
	Create(ctx context.Context, m *models.TaskMessage) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*repository.MessageWithAuthor, error)
}

// TaskGetter resolves a task without touching claim state.
type TaskGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

// ActiveClaimFinder locates the claim currently holding a task.
type ActiveClaimFinder interface {
	GetActiveByTask(ctx context.Context, taskID uuid.UUID) (*models.Claim, error)
}

// MessageNotifier fans a new message out to the claimant.
type MessageNotifier interface {
	TaskMessage(ctx context.Context, taskID, userID uuid.UUID, authorName string)
}

// MessageHandler serves /v1/tasks/{id}/messages.
type MessageHandler struct {
	Messages MessageStore
	Tasks    TaskGetter
	Claims   ActiveClaimFinder
	Notifier MessageNotifier
	Logger   *slog.Logger
}

// ListMessages handles GET /v1/tasks/{id}/messages. Public for users and
// anonymous callers; agents may only read threads on their own tasks.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.Tasks.GetByID(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErrorMsg(w, http.StatusNotFound, "not_found", "Task not found")
			return
		}
		writeError(w, h.Logger, err)
		return
	}
	if caller := middleware.CallerFromCtx(r.Context()); caller.IsAgent() && task.CreatorID != caller.Agent.ID {
		writeErrorMsg(w, http.StatusForbidden, "forbidden", "Only task creator can view messages")
		return
	}

	messages, err := h.Messages.ListByTask(r.Context(), taskID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"messages": messages,
		"count":    len(messages),
	})
}

// PostMessage handles POST /v1/tasks/{id}/messages. User only: agents get a
// BadRequest, matching the thread being a human-side channel.
func (h *MessageHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromCtx(r.Context())
	if caller.IsAgent() {
		badRequestMsg(w, "Agent messages not supported. Use task notes or external communication.")
		return
	}
	if !caller.IsUser() {
		unauthorizedMsg(w, "user authentication required")
		return
	}
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequestMsg(w, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		badRequestMsg(w, "Message content is required")
		return
	}
	if len(req.Content) > maxMessageLength {
		badRequestMsg(w, "Message content too long (max 1000 characters)")
		return
	}

	if _, err := h.Tasks.GetByID(r.Context(), taskID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErrorMsg(w, http.StatusNotFound, "not_found", "Task not found")
			return
		}
		writeError(w, h.Logger, err)
		return
	}

	msg := &models.TaskMessage{
		ID:      uuid.New(),
		TaskID:  taskID,
		UserID:  caller.User.ID,
		Content: req.Content,
	}
	if err := h.Messages.Create(r.Context(), msg); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	// Tell the current claimant, unless they wrote it themselves.
	if claim, err := h.Claims.GetActiveByTask(r.Context(), taskID); err == nil && claim.UserID != caller.User.ID {
		h.Notifier.TaskMessage(r.Context(), taskID, claim.UserID, caller.User.Name)
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"message": msg})
}
