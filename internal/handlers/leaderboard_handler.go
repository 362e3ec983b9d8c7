package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/moltmarket/backend/internal/models"
	"github.com/moltmarket/backend/internal/repository"
)

const (
	leaderboardDefaultLimit = 100
	leaderboardMaxLimit     = 200
)

type LeaderboardStore interface {
	Leaderboard(ctx context.Context, kind string, limit int) ([]*models.User, error)
}

// LeaderboardHandler serves GET /v1/leaderboard.
type LeaderboardHandler struct {
	Users  LeaderboardStore
	Logger *slog.Logger
}

type rankedUser struct {
	Rank int `json:"rank"`
	*models.User
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("type")
	switch kind {
	case "":
		kind = repository.LeaderboardTotal
	case repository.LeaderboardTotal, repository.LeaderboardToday, repository.LeaderboardStreak:
	default:
		badRequestMsg(w, "Invalid leaderboard type. Use: total, today, or streak")
		return
	}

	limit := leaderboardDefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequestMsg(w, "invalid limit")
			return
		}
		limit = n
	}
	if limit > leaderboardMaxLimit {
		limit = leaderboardMaxLimit
	}

	users, err := h.Users.Leaderboard(r.Context(), kind, limit)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	ranked := make([]rankedUser, len(users))
	for i, u := range users {
		ranked[i] = rankedUser{Rank: i + 1, User: u}
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"leaderboard": ranked,
		"type":        kind,
	})
}
