// Package main implements the entry point for the research worker, which
// consumes queued work items, runs the research provider, stores the
// resulting artifact, and records the task outcome.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/afero"

	"github.com/draftforge/research-api/internal/config"
	"github.com/draftforge/research-api/internal/platform/anthropic"
	"github.com/draftforge/research-api/internal/platform/blob"
	"github.com/draftforge/research-api/internal/platform/logger"
	"github.com/draftforge/research-api/internal/platform/postgres"
	"github.com/draftforge/research-api/internal/platform/secrets"
	"github.com/draftforge/research-api/internal/queue"
	"github.com/draftforge/research-api/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("worker configuration loaded",
		"redis_addr", cfg.Queue.RedisAddr,
		"concurrency", cfg.Queue.Concurrency,
		"model", cfg.LLM.Model)

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", "error", err)
		}
	}()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	taskStore := postgres.NewPostgresTaskStore(db, appLogger)

	// The credential is resolved on first use and cached for the process
	// lifetime, so a missing key surfaces on the first work item rather
	// than blocking startup.
	secretProvider := secrets.NewCached(secrets.EnvProvider{Name: cfg.LLM.APIKeyEnv})

	generator, err := anthropic.NewResearchGenerator(appLogger, secretProvider, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create research generator: %w", err)
	}

	artifactFs := afero.NewBasePathFs(afero.NewOsFs(), cfg.Blob.Root)
	blobStore := blob.NewFileStore(artifactFs, appLogger)

	wk, err := worker.New(taskStore, generator, blobStore, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.Queue.RedisAddr},
		asynq.Config{
			Concurrency: cfg.Queue.Concurrency,
			Queues:      map[string]int{queue.QueueName: 1},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypeResearch, wk.HandleTask)

	appLogger.Info("starting worker", "queue", queue.QueueName)

	// Run blocks until SIGINT or SIGTERM and drains in-flight work items
	// before returning.
	if err := srv.Run(mux); err != nil {
		return fmt.Errorf("worker server failed: %w", err)
	}

	appLogger.Info("worker shutdown completed")
	return nil
}
