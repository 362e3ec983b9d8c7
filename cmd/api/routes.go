package main

import (
	"log/slog"
	"net/http"

	"github.com/moltmarket/backend/internal/auth"
	"github.com/moltmarket/backend/internal/handlers"
	"github.com/moltmarket/backend/internal/lifecycle"
	"github.com/moltmarket/backend/internal/middleware"
	"github.com/moltmarket/backend/internal/notify"
	"github.com/moltmarket/backend/internal/registry"
	"github.com/moltmarket/backend/internal/repository"
	"github.com/moltmarket/backend/internal/taskschema"
)

// RouteDeps bundles everything RegisterRoutes wires together.
type RouteDeps struct {
	Lifecycle  *lifecycle.Service
	Auth       auth.Service
	Registry   registry.Service
	Validator  *taskschema.Validator
	Users      *repository.UserRepo
	APIKeys    *repository.APIKeyRepo
	Claims     *repository.ClaimRepo
	Tasks      *repository.TaskRepo
	Messages   *repository.MessageRepo
	Notifs     *repository.NotificationRepo
	Dispatcher *notify.Dispatcher
	Logger     *slog.Logger
}

// RegisterRoutes adds all /v1/ endpoints to the given mux.
// Agent routes use API key auth, user routes use session auth; task reads
// are public.
func RegisterRoutes(mux *http.ServeMux, d RouteDeps) {
	taskH := &handlers.TaskHandler{Lifecycle: d.Lifecycle, Validator: d.Validator, Logger: d.Logger}
	msgH := &handlers.MessageHandler{Messages: d.Messages, Tasks: d.Tasks, Claims: d.Claims, Notifier: d.Dispatcher, Logger: d.Logger}
	authH := &handlers.AuthHandler{Auth: d.Auth, Logger: d.Logger}
	agentH := &handlers.AgentHandler{Registry: d.Registry, Logger: d.Logger}
	userH := &handlers.UserHandler{Claims: d.Lifecycle, Logger: d.Logger}
	notifH := &handlers.NotificationHandler{Store: d.Notifs, Logger: d.Logger}
	boardH := &handlers.LeaderboardHandler{Users: d.Users, Logger: d.Logger}

	agentAuth := middleware.AgentAuth(d.APIKeys)
	userAuth := middleware.SessionAuth(d.Auth, d.Users)
	eitherAuth := middleware.EitherAuth(d.APIKeys, d.Auth, d.Users)
	optionalAuth := middleware.OptionalAuth(d.APIKeys, d.Auth, d.Users)

	mux.HandleFunc("POST /v1/auth/register", authH.Register)
	mux.HandleFunc("POST /v1/auth/login", authH.Login)
	mux.HandleFunc("POST /v1/agents", agentH.RegisterAgent)

	mux.Handle("POST /v1/tasks", agentAuth(http.HandlerFunc(taskH.CreateTask)))
	mux.HandleFunc("GET /v1/tasks", taskH.ListTasks)
	mux.HandleFunc("GET /v1/tasks/{id}", taskH.GetTask)

	mux.Handle("POST /v1/tasks/{id}/claim", userAuth(http.HandlerFunc(taskH.ClaimTask)))
	mux.Handle("POST /v1/tasks/{id}/submit", userAuth(http.HandlerFunc(taskH.SubmitTask)))
	mux.Handle("POST /v1/tasks/{id}/accept", agentAuth(http.HandlerFunc(taskH.AcceptTask)))
	mux.Handle("POST /v1/tasks/{id}/reject", agentAuth(http.HandlerFunc(taskH.RejectTask)))

	// Thread reads are public; the handler restricts agents to their own tasks.
	mux.Handle("GET /v1/tasks/{id}/messages", optionalAuth(http.HandlerFunc(msgH.ListMessages)))
	mux.Handle("POST /v1/tasks/{id}/messages", eitherAuth(http.HandlerFunc(msgH.PostMessage)))

	mux.HandleFunc("GET /v1/leaderboard", boardH.GetLeaderboard)

	mux.Handle("GET /v1/users/me", userAuth(http.HandlerFunc(userH.GetMe)))
	mux.Handle("GET /v1/users/me/claims", userAuth(http.HandlerFunc(userH.ListMyClaims)))

	mux.Handle("GET /v1/notifications", userAuth(http.HandlerFunc(notifH.List)))
	mux.Handle("POST /v1/notifications/{id}/read", userAuth(http.HandlerFunc(notifH.MarkRead)))
}
