package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/moltmarket/backend/internal/lifecycle"
	"github.com/moltmarket/backend/internal/middleware"
	"github.com/moltmarket/backend/internal/models"
	"github.com/moltmarket/backend/internal/taskschema"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockLifecycle struct {
	createFn func(ctx context.Context, creatorID uuid.UUID, in lifecycle.CreateTaskInput) (*models.Task, error)
	listFn   func(ctx context.Context, f lifecycle.ListFilter) ([]*models.Task, int, error)
	getFn    func(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	claimFn  func(ctx context.Context, taskID, userID uuid.UUID) (*models.Claim, string, error)
	submitFn func(ctx context.Context, taskID, userID uuid.UUID, in lifecycle.SubmitInput) (*models.Claim, error)
	acceptFn func(ctx context.Context, taskID, agentID uuid.UUID) (*lifecycle.ReviewResult, error)
	rejectFn func(ctx context.Context, taskID, agentID uuid.UUID, reason string) (*lifecycle.ReviewResult, error)
}

func (m *mockLifecycle) Create(ctx context.Context, creatorID uuid.UUID, in lifecycle.CreateTaskInput) (*models.Task, error) {
	return m.createFn(ctx, creatorID, in)
}

func (m *mockLifecycle) List(ctx context.Context, f lifecycle.ListFilter) ([]*models.Task, int, error) {
	return m.listFn(ctx, f)
}

func (m *mockLifecycle) GetTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	return m.getFn(ctx, taskID)
}

func (m *mockLifecycle) Claim(ctx context.Context, taskID, userID uuid.UUID) (*models.Claim, string, error) {
	return m.claimFn(ctx, taskID, userID)
}

func (m *mockLifecycle) Submit(ctx context.Context, taskID, userID uuid.UUID, in lifecycle.SubmitInput) (*models.Claim, error) {
	return m.submitFn(ctx, taskID, userID, in)
}

func (m *mockLifecycle) Accept(ctx context.Context, taskID, agentID uuid.UUID) (*lifecycle.ReviewResult, error) {
	return m.acceptFn(ctx, taskID, agentID)
}

func (m *mockLifecycle) Reject(ctx context.Context, taskID, agentID uuid.UUID, reason string) (*lifecycle.ReviewResult, error) {
	return m.rejectFn(ctx, taskID, agentID, reason)
}

func newTaskHandler(t *testing.T, lc TaskLifecycle) *TaskHandler {
	t.Helper()
	v, err := taskschema.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	return &TaskHandler{Lifecycle: lc, Validator: v, Logger: slog.Default()}
}

func asAgent(req *http.Request, agent *models.Agent) *http.Request {
	return req.WithContext(middleware.WithCaller(req.Context(), &middleware.Caller{Agent: agent}))
}

func asUser(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(middleware.WithCaller(req.Context(), &middleware.Caller{User: user}))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

// ---------------------------------------------------------------------------
// CreateTask
// ---------------------------------------------------------------------------

func TestCreateTask_Success(t *testing.T) {
	agent := &models.Agent{ID: uuid.New(), Name: "crawler"}
	var gotCreator uuid.UUID
	h := newTaskHandler(t, &mockLifecycle{
		createFn: func(_ context.Context, creatorID uuid.UUID, in lifecycle.CreateTaskInput) (*models.Task, error) {
			gotCreator = creatorID
			return &models.Task{ID: uuid.New(), Title: in.Title, Status: models.TaskStatusOpen}, nil
		},
	})

	payload := `{"title":"Verify hours","description":"Call the store.","category":"research","rewardPoints":50}`
	req := asAgent(httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(payload)), agent)
	rec := httptest.NewRecorder()
	h.CreateTask(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCreator != agent.ID {
		t.Errorf("creator = %s, want %s", gotCreator, agent.ID)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("expected success envelope, got %v", body)
	}
}

func TestCreateTask_SchemaRejectsPayload(t *testing.T) {
	h := newTaskHandler(t, &mockLifecycle{
		createFn: func(context.Context, uuid.UUID, lifecycle.CreateTaskInput) (*models.Task, error) {
			t.Fatal("lifecycle must not be reached for invalid payloads")
			return nil, nil
		},
	})
	agent := &models.Agent{ID: uuid.New()}

	cases := []struct {
		name    string
		payload string
	}{
		{"missing title", `{"description":"d","category":"c","rewardPoints":1}`},
		{"zero reward", `{"title":"t","description":"d","category":"c","rewardPoints":0}`},
		{"bad evidence type", `{"title":"t","description":"d","category":"c","rewardPoints":1,"evidenceType":"video"}`},
		{"timeout out of range", `{"title":"t","description":"d","category":"c","rewardPoints":1,"timeoutHours":300}`},
		{"not json", `{{]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := asAgent(httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(tc.payload)), agent)
			rec := httptest.NewRecorder()
			h.CreateTask(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateTask_RequiresAgent(t *testing.T) {
	h := newTaskHandler(t, &mockLifecycle{})
	user := &models.User{ID: uuid.New()}

	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(`{}`)), user)
	rec := httptest.NewRecorder()
	h.CreateTask(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for user caller, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// ClaimTask
// ---------------------------------------------------------------------------

func TestClaimTask_ReturnsDynamicCode(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	taskID := uuid.New()
	h := newTaskHandler(t, &mockLifecycle{
		claimFn: func(_ context.Context, gotTask, gotUser uuid.UUID) (*models.Claim, string, error) {
			if gotTask != taskID || gotUser != user.ID {
				t.Errorf("claim(%s, %s)", gotTask, gotUser)
			}
			return &models.Claim{ID: uuid.New(), TaskID: gotTask, UserID: gotUser, Status: models.ClaimStatusClaimed}, "MOLT-AB23", nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/tasks/"+taskID.String()+"/claim", nil), user)
	req.SetPathValue("id", taskID.String())
	rec := httptest.NewRecorder()
	h.ClaimTask(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	taskPart, _ := body["task"].(map[string]any)
	if taskPart["dynamicCode"] != "MOLT-AB23" {
		t.Errorf("dynamic code missing from response: %v", body)
	}
}

func TestClaimTask_ErrorMapping(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	taskID := uuid.New()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"not found", lifecycle.ErrNotFound, http.StatusNotFound, "not_found"},
		{"already assigned", lifecycle.ErrBadRequest, http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTaskHandler(t, &mockLifecycle{
				claimFn: func(context.Context, uuid.UUID, uuid.UUID) (*models.Claim, string, error) {
					return nil, "", tc.err
				},
			})
			req := asUser(httptest.NewRequest(http.MethodPost, "/v1/tasks/"+taskID.String()+"/claim", nil), user)
			req.SetPathValue("id", taskID.String())
			rec := httptest.NewRecorder()
			h.ClaimTask(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			body := decodeBody(t, rec)
			if body["success"] != false || body["error"] != tc.wantKind {
				t.Errorf("unexpected error envelope: %v", body)
			}
		})
	}
}

func TestClaimTask_InvalidID(t *testing.T) {
	h := newTaskHandler(t, &mockLifecycle{})
	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/tasks/nope/claim", nil), &models.User{ID: uuid.New()})
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.ClaimTask(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Review
// ---------------------------------------------------------------------------

func TestAcceptTask_ForbiddenForNonCreator(t *testing.T) {
	agent := &models.Agent{ID: uuid.New()}
	taskID := uuid.New()
	h := newTaskHandler(t, &mockLifecycle{
		acceptFn: func(context.Context, uuid.UUID, uuid.UUID) (*lifecycle.ReviewResult, error) {
			return nil, lifecycle.ErrForbidden
		},
	})

	req := asAgent(httptest.NewRequest(http.MethodPost, "/v1/tasks/"+taskID.String()+"/accept", nil), agent)
	req.SetPathValue("id", taskID.String())
	rec := httptest.NewRecorder()
	h.AcceptTask(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRejectTask_PassesReason(t *testing.T) {
	agent := &models.Agent{ID: uuid.New()}
	taskID := uuid.New()
	var gotReason string
	h := newTaskHandler(t, &mockLifecycle{
		rejectFn: func(_ context.Context, _, _ uuid.UUID, reason string) (*lifecycle.ReviewResult, error) {
			gotReason = reason
			return &lifecycle.ReviewResult{Claim: &models.Claim{Status: models.ClaimStatusRejected}}, nil
		},
	})

	body := `{"rejectReason":"evidence does not match"}`
	req := asAgent(httptest.NewRequest(http.MethodPost, "/v1/tasks/"+taskID.String()+"/reject", strings.NewReader(body)), agent)
	req.SetPathValue("id", taskID.String())
	rec := httptest.NewRecorder()
	h.RejectTask(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotReason != "evidence does not match" {
		t.Errorf("reason = %q", gotReason)
	}
}

// ---------------------------------------------------------------------------
// ListTasks
// ---------------------------------------------------------------------------

func TestListTasks_PassesFilter(t *testing.T) {
	var gotFilter lifecycle.ListFilter
	h := newTaskHandler(t, &mockLifecycle{
		listFn: func(_ context.Context, f lifecycle.ListFilter) ([]*models.Task, int, error) {
			gotFilter = f
			return []*models.Task{}, 0, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks?status=all&category=research&limit=5&offset=10", nil)
	rec := httptest.NewRecorder()
	h.ListTasks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := lifecycle.ListFilter{Status: "all", Category: "research", Limit: 5, Offset: 10}
	if gotFilter != want {
		t.Errorf("filter = %+v, want %+v", gotFilter, want)
	}
}

func TestListTasks_BadLimit(t *testing.T) {
	h := newTaskHandler(t, &mockLifecycle{})
	req := httptest.NewRequest(http.MethodGet, "/v1/tasks?limit=abc", nil)
	rec := httptest.NewRecorder()
	h.ListTasks(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
