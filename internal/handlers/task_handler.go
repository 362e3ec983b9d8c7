package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/moltmarket/backend/internal/lifecycle"
	"github.com/moltmarket/backend/internal/middleware"
	"github.com/moltmarket/backend/internal/models"
	"github.com/moltmarket/backend/internal/taskschema"
)

// TaskLifecycle is the subset of the lifecycle service the handler needs.
type TaskLifecycle interface {
	Create(ctx context.Context, creatorID uuid.UUID, in lifecycle.CreateTaskInput) (*models.Task, error)
	List(ctx context.Context, f lifecycle.ListFilter) ([]*models.Task, int, error)
	GetTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	Claim(ctx context.Context, taskID, userID uuid.UUID) (*models.Claim, string, error)
	Submit(ctx context.Context, taskID, userID uuid.UUID, in lifecycle.SubmitInput) (*models.Claim, error)
	Accept(ctx context.Context, taskID, agentID uuid.UUID) (*lifecycle.ReviewResult, error)
	Reject(ctx context.Context, taskID, agentID uuid.UUID, reason string) (*lifecycle.ReviewResult, error)
}

// TaskHandler serves /v1/tasks endpoints.
type TaskHandler struct {
	Lifecycle TaskLifecycle
	Validator *taskschema.Validator
	Logger    *slog.Logger
}

// CreateTask handles POST /v1/tasks. Agent only; the payload is checked
// against the task schema before it reaches the lifecycle engine.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromCtx(r.Context())
	if !caller.IsAgent() {
		unauthorizedMsg(w, "agent authentication required")
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		badRequestMsg(w, "invalid request body")
		return
	}
	if err := h.Validator.ValidateCreate(raw); err != nil {
		if errors.Is(err, taskschema.ErrValidation) {
			badRequestMsg(w, err.Error())
			return
		}
		badRequestMsg(w, "invalid JSON")
		return
	}
	var in lifecycle.CreateTaskInput
	if err := json.Unmarshal(raw, &in); err != nil {
		badRequestMsg(w, "invalid JSON")
		return
	}

	task, err := h.Lifecycle.Create(r.Context(), caller.Agent.ID, in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"task": task})
}

// ListTasks handles GET /v1/tasks. Public.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := lifecycle.ListFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequestMsg(w, "invalid limit")
			return
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequestMsg(w, "invalid offset")
			return
		}
		f.Offset = n
	}

	tasks, total, err := h.Lifecycle.List(r.Context(), f)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"tasks": tasks, "total": total})
}

// GetTask handles GET /v1/tasks/{id}. Public; runs the expiry sweep first.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.Lifecycle.GetTask(r.Context(), taskID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"task": task})
}

// ClaimTask handles POST /v1/tasks/{id}/claim. User only. The dynamic code
// is revealed to the claimant here and nowhere else.
func (h *TaskHandler) ClaimTask(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromCtx(r.Context())
	if !caller.IsUser() {
		unauthorizedMsg(w, "user authentication required")
		return
	}
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	claim, dynamicCode, err := h.Lifecycle.Claim(r.Context(), taskID, caller.User.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"claim": claim,
		"task":  map[string]any{"dynamicCode": dynamicCode},
	})
}

// SubmitTask handles POST /v1/tasks/{id}/submit. User only.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromCtx(r.Context())
	if !caller.IsUser() {
		unauthorizedMsg(w, "user authentication required")
		return
	}
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in lifecycle.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequestMsg(w, "invalid JSON")
		return
	}
	claim, err := h.Lifecycle.Submit(r.Context(), taskID, caller.User.ID, in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"claim": claim})
}

// AcceptTask handles POST /v1/tasks/{id}/accept. Creator agent only.
func (h *TaskHandler) AcceptTask(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromCtx(r.Context())
	if !caller.IsAgent() {
		unauthorizedMsg(w, "agent authentication required")
		return
	}
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.Lifecycle.Accept(r.Context(), taskID, caller.Agent.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"claim": result.Claim, "user": result.User})
}

// RejectTask handles POST /v1/tasks/{id}/reject. Creator agent only.
func (h *TaskHandler) RejectTask(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromCtx(r.Context())
	if !caller.IsAgent() {
		unauthorizedMsg(w, "agent authentication required")
		return
	}
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		RejectReason string `json:"rejectReason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequestMsg(w, "invalid JSON")
		return
	}
	result, err := h.Lifecycle.Reject(r.Context(), taskID, caller.Agent.ID, req.RejectReason)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"claim": result.Claim})
}

// pathUUID parses the named path segment as a UUID, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		badRequestMsg(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
