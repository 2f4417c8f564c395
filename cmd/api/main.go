package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/taskmint/backend/internal/auth"
	"github.com/taskmint/backend/internal/config"
	"github.com/taskmint/backend/internal/database"
	"github.com/taskmint/backend/internal/handlers"
	"github.com/taskmint/backend/internal/ledger"
	"github.com/taskmint/backend/internal/notify"
	"github.com/taskmint/backend/internal/payments"
	"github.com/taskmint/backend/internal/repository"
	"github.com/taskmint/backend/internal/router"
	"github.com/taskmint/backend/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
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
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := database.Migrate(ctx, pool); err != nil {
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
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	accountRepo := repository.NewAccountRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	submissionRepo := repository.NewSubmissionRepo(pool)
	transactionRepo := repository.NewTransactionRepo(pool)
	withdrawalRepo := repository.NewWithdrawalRepo(pool)
	paymentRepo := repository.NewPaymentSessionRepo(pool)
	notificationRepo := repository.NewNotificationRepo(pool)

	// Notification worker and client
	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewWorker(notificationRepo))

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

	notifier := notify.NewEnqueuer(func(ctx context.Context, tx pgx.Tx, args notify.UserNotificationArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	})

	// Services
	providerClient := payments.NewClient(cfg.PaymentProviderURL, cfg.PaymentProviderKey)
	ledgerSvc := ledger.NewService(transactionRepo)
	taskSvc := services.NewTaskService(pool, taskRepo, accountRepo, ledgerSvc)
	submissionSvc := services.NewSubmissionService(pool, taskRepo, submissionRepo, accountRepo, ledgerSvc, notifier)
	withdrawalSvc := services.NewWithdrawalService(pool, withdrawalRepo, accountRepo, ledgerSvc, notifier)
	paymentSvc := services.NewPaymentService(pool, paymentRepo, transactionRepo, providerClient, ledgerSvc, notifier)

	authSvc := auth.NewService(accountRepo, cfg.JWTSecret)

	// Handlers
	stats := statsSource{tasks: taskRepo, submissions: submissionRepo, withdrawals: withdrawalRepo}
	deps := router.Deps{
		Auth:        auth.NewHandler(authSvc, logger),
		Tasks:       handlers.NewTaskHandler(taskSvc, taskRepo, logger),
		Submissions: handlers.NewSubmissionHandler(submissionSvc, submissionRepo, logger),
		Withdrawals: handlers.NewWithdrawalHandler(withdrawalSvc, withdrawalRepo, logger),
		Payments:    handlers.NewPaymentHandler(paymentSvc, transactionRepo, cfg.WebhookSecret, logger),
		Users:       handlers.NewUserHandler(accountRepo, notificationRepo, stats, logger),
		Validator:   authSvc,
		Accounts:    accountRepo,
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(router.New(deps))

	// Start River client (persists notifications)
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

// statsSource adapts the per-entity repositories to the single stats surface
// the user handler consumes.
type statsSource struct {
	tasks       *repository.TaskRepo
	submissions *repository.SubmissionRepo
	withdrawals *repository.WithdrawalRepo
}

func (s statsSource) CountTasksByBuyer(ctx context.Context, buyerID uuid.UUID) (int, int, error) {
	return s.tasks.CountByBuyer(ctx, buyerID)
}

func (s statsSource) CountSubmissionsByWorker(ctx context.Context, workerID uuid.UUID) (int, int, error) {
	return s.submissions.CountByWorker(ctx, workerID)
}

func (s statsSource) TotalApprovedWithdrawalDollars(ctx context.Context) (float64, error) {
	return s.withdrawals.TotalApprovedDollars(ctx)
}
