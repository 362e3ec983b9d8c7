package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/moltmarket/backend/internal/models"
)

type mockLeaderboard struct {
	gotKind  string
	gotLimit int
	users    []*models.User
}

func (m *mockLeaderboard) Leaderboard(_ context.Context, kind string, limit int) ([]*models.User, error) {
	m.gotKind = kind
	m.gotLimit = limit
	return m.users, nil
}

func TestGetLeaderboard_RanksUsers(t *testing.T) {
	store := &mockLeaderboard{users: []*models.User{
		{ID: uuid.New(), Name: "first", Points: 300},
		{ID: uuid.New(), Name: "second", Points: 120},
	}}
	h := &LeaderboardHandler{Users: store, Logger: slog.Default()}

	req := httptest.NewRequest(http.MethodGet, "/v1/leaderboard", nil)
	rec := httptest.NewRecorder()
	h.GetLeaderboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.gotKind != "total" || store.gotLimit != 100 {
		t.Errorf("defaults not applied: kind=%q limit=%d", store.gotKind, store.gotLimit)
	}
	body := decodeBody(t, rec)
	board, _ := body["leaderboard"].([]any)
	if len(board) != 2 {
		t.Fatalf("expected 2 entries, got %v", body)
	}
	first, _ := board[0].(map[string]any)
	if first["rank"] != float64(1) || first["name"] != "first" {
		t.Errorf("unexpected first entry: %v", first)
	}
}

func TestGetLeaderboard_LimitClamped(t *testing.T) {
	store := &mockLeaderboard{}
	h := &LeaderboardHandler{Users: store, Logger: slog.Default()}

	req := httptest.NewRequest(http.MethodGet, "/v1/leaderboard?type=streak&limit=500", nil)
	rec := httptest.NewRecorder()
	h.GetLeaderboard(rec, req)

	if store.gotKind != "streak" {
		t.Errorf("kind = %q", store.gotKind)
	}
	if store.gotLimit != 200 {
		t.Errorf("limit should clamp to 200, got %d", store.gotLimit)
	}
}

func TestGetLeaderboard_InvalidType(t *testing.T) {
	h := &LeaderboardHandler{Users: &mockLeaderboard{}, Logger: slog.Default()}
	req := httptest.NewRequest(http.MethodGet, "/v1/leaderboard?type=weekly", nil)
	rec := httptest.NewRecorder()
	h.GetLeaderboard(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
