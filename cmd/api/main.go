package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/fhhwr/backend/internal/config"
	"github.com/fhhwr/backend/internal/handlers"
	"github.com/fhhwr/backend/internal/middleware"
	"github.com/fhhwr/backend/internal/notify"
	"github.com/fhhwr/backend/internal/repository"
	"github.com/fhhwr/backend/internal/router"
	"github.com/fhhwr/backend/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	taskRepo := repository.NewTaskRepo(pool)
	workerRepo := repository.NewWorkerRepo(pool)
	customerRepo := repository.NewCustomerRepo(pool)
	notificationRepo := repository.NewNotificationRepo(pool)

	// Notification worker
	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewNotifyCustomerWorker(notificationRepo, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxNotifyWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertNotify := func(ctx context.Context, tx pgx.Tx, args notify.NotifyCustomerArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}

	// Core services
	availability := services.NewAvailabilityFilter(workerRepo, taskRepo)
	matcher := services.NewSkillMatcher(taskRepo)
	recommender := services.NewSimilarityRecommender(taskRepo)
	dispatcher := services.NewDispatcher(pool, availability, matcher, recommender, taskRepo, logger)
	lifecycle := services.NewLifecycle(pool, taskRepo, workerRepo, insertNotify, logger)

	taskHandler := &handlers.TaskHandler{
		Dispatcher:    dispatcher,
		Lifecycle:     lifecycle,
		TaskRepo:      taskRepo,
		Customers:     customerRepo,
		Workers:       workerRepo,
		Notifications: notificationRepo,
		Logger:        logger,
	}

	handler := middleware.RequestLog(logger)(router.New(taskHandler))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(handler)

	// Start River client (delivers notifications)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
