// Package main implements the entry point for the research API server,
// which accepts research topics, persists their task records, and enqueues
// work items for the research worker.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/draftforge/research-api/internal/api"
	apimiddleware "github.com/draftforge/research-api/internal/api/middleware"
	"github.com/draftforge/research-api/internal/config"
	"github.com/draftforge/research-api/internal/platform/logger"
	"github.com/draftforge/research-api/internal/platform/postgres"
	"github.com/draftforge/research-api/internal/queue"
	"github.com/draftforge/research-api/internal/service"
)

func main() {
	migrationsDir := flag.String("migrations-dir", "migrations", "directory containing SQL migrations")
	flag.Parse()

	if err := run(*migrationsDir); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run(migrationsDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := openDatabase(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", "error", err)
		}
	}()

	if err := applyMigrations(db, migrationsDir); err != nil {
		return err
	}

	taskStore := postgres.NewPostgresTaskStore(db, appLogger)

	publisher := queue.NewAsynqPublisher(
		asynq.RedisClientOpt{Addr: cfg.Queue.RedisAddr},
		appLogger,
	)
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("failed to close queue publisher", "error", err)
		}
	}()

	taskService, err := service.NewTaskService(taskStore, publisher, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create task service: %w", err)
	}

	router := setupRouter(taskService, appLogger)
	return serveHTTP(cfg.Server.Port, router, appLogger)
}

// openDatabase opens the task store connection and verifies it is reachable.
func openDatabase(url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// applyMigrations brings the schema up to date at startup.
func applyMigrations(db *sql.DB, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// setupRouter builds the HTTP routing table with the standard middleware
// chain.
func setupRouter(taskService service.TaskService, appLogger *slog.Logger) http.Handler {
	taskHandler := api.NewTaskHandler(taskService, appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks/{id}", taskHandler.GetTask)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// serveHTTP runs the server until SIGINT or SIGTERM, then shuts down
// gracefully with a bounded drain window.
func serveHTTP(port int, router http.Handler, appLogger *slog.Logger) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("starting server", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-shutdownCh:
		appLogger.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	appLogger.Info("server shutdown completed")
	return nil
}
