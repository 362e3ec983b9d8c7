package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/moltmarket/backend/internal/models"
)

type mockNotificationStore struct {
	byID   map[uuid.UUID]*models.Notification
	unread int
	marked []uuid.UUID
}

func (m *mockNotificationStore) ListByUser(_ context.Context, userID uuid.UUID, _ *bool, _ int) ([]*models.Notification, error) {
	var out []*models.Notification
	for _, n := range m.byID {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationStore) CountUnread(context.Context, uuid.UUID) (int, error) {
	return m.unread, nil
}

func (m *mockNotificationStore) GetByID(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	n, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return n, nil
}

func (m *mockNotificationStore) MarkRead(_ context.Context, id uuid.UUID, at time.Time) (*models.Notification, error) {
	m.marked = append(m.marked, id)
	n := m.byID[id]
	n.IsRead = true
	n.ReadAt = &at
	return n, nil
}

func TestNotificationList_IncludesUnreadCount(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	n := &models.Notification{ID: uuid.New(), UserID: user.ID, Type: models.NotificationTaskAccepted}
	store := &mockNotificationStore{byID: map[uuid.UUID]*models.Notification{n.ID: n}, unread: 1}
	h := &NotificationHandler{Store: store, Logger: slog.Default()}

	req := asUser(httptest.NewRequest(http.MethodGet, "/v1/notifications", nil), user)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["unreadCount"] != float64(1) {
		t.Errorf("unreadCount = %v", body["unreadCount"])
	}
}

func TestNotificationMarkRead_OwnerOnly(t *testing.T) {
	owner := &models.User{ID: uuid.New()}
	other := &models.User{ID: uuid.New()}
	n := &models.Notification{ID: uuid.New(), UserID: owner.ID}
	store := &mockNotificationStore{byID: map[uuid.UUID]*models.Notification{n.ID: n}}
	h := &NotificationHandler{Store: store, Logger: slog.Default()}

	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/notifications/"+n.ID.String()+"/read", nil), other)
	req.SetPathValue("id", n.ID.String())
	rec := httptest.NewRecorder()
	h.MarkRead(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rec.Code)
	}
	if len(store.marked) != 0 {
		t.Error("notification must not be marked read")
	}

	req = asUser(httptest.NewRequest(http.MethodPost, "/v1/notifications/"+n.ID.String()+"/read", nil), owner)
	req.SetPathValue("id", n.ID.String())
	rec = httptest.NewRecorder()
	h.MarkRead(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.marked) != 1 {
		t.Error("notification not marked read")
	}
}

func TestNotificationMarkRead_NotFound(t *testing.T) {
	store := &mockNotificationStore{byID: map[uuid.UUID]*models.Notification{}}
	h := &NotificationHandler{Store: store, Logger: slog.Default()}
	id := uuid.New()

	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/notifications/"+id.String()+"/read", nil), &models.User{ID: uuid.New()})
	req.SetPathValue("id", id.String())
	rec := httptest.NewRecorder()
	h.MarkRead(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
