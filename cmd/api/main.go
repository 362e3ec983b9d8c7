package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/moltmarket/backend/internal/auth"
	"github.com/moltmarket/backend/internal/config"
	"github.com/moltmarket/backend/internal/lifecycle"
	"github.com/moltmarket/backend/internal/notify"
	"github.com/moltmarket/backend/internal/registry"
	"github.com/moltmarket/backend/internal/repository"
	"github.com/moltmarket/backend/internal/taskschema"
	"github.com/moltmarket/backend/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// .env values never override variables already set in the environment.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. make dev-up or docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	if err := migrations.Apply(ctx, pool); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied")

	// Repositories
	userRepo := repository.NewUserRepo(pool)
	agentRepo := repository.NewAgentRepo(pool)
	apiKeyRepo := repository.NewAPIKeyRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	claimRepo := repository.NewClaimRepo(pool)
	messageRepo := repository.NewMessageRepo(pool)
	notificationRepo := repository.NewNotificationRepo(pool)

	// Background jobs
	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewCreateNotificationWorker(notificationRepo))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	dispatcher := notify.NewDispatcher(func(ctx context.Context, args notify.CreateNotificationArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	}, logger)

	// Anti-spam policy with hot reload
	policy := config.NewPolicyHolder(cfg.Policy)
	if cfgPath != "" {
		go func() {
			if err := policy.Watch(ctx, cfgPath, logger); err != nil {
				slog.Error("Policy watch stopped", "error", err)
			}
		}()
	}

	// Services
	lifecycleSvc := lifecycle.NewService(pool, taskRepo, claimRepo, userRepo, dispatcher, policy, logger)
	authSvc := auth.NewService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	registrySvc := registry.NewService(agentRepo, apiKeyRepo)

	validator, err := taskschema.NewValidator()
	if err != nil {
		slog.Error("Task schema validator init failed", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	RegisterRoutes(mux, RouteDeps{
		Lifecycle:  lifecycleSvc,
		Auth:       authSvc,
		Registry:   registrySvc,
		Validator:  validator,
		Users:      userRepo,
		APIKeys:    apiKeyRepo,
		Claims:     claimRepo,
		Tasks:      taskRepo,
		Messages:   messageRepo,
		Notifs:     notificationRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (processes notification jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	addr := "0.0.0.0:" + cfg.Server.Port
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
