package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/draftforge/research-api/internal/domain"
	"github.com/draftforge/research-api/internal/platform/logger"
	"github.com/draftforge/research-api/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
const pgUniqueViolationCode = "23505"

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
// It saves a new task to the database, handling domain validation.
// Returns validation errors from the domain Task if data is invalid.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, topic, status, artifact_key, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.Topic,
		task.Status,
		task.ArtifactKey,
		task.ErrorMessage,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			// The accept path generates the ID exactly once, so a collision
			// means a duplicate create attempt for the same task.
			log.Warn("duplicate task ID during creation",
				slog.String("error", err.Error()),
				slog.String("task_id", task.ID.String()))
			return store.NewStoreError("task", "create", "task already exists", err)
		}

		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	log.Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))
	return nil
}

// GetByID implements store.TaskStore.GetByID
// It retrieves a task by its unique ID.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving task by ID", slog.String("task_id", id.String()))

	query := `
		SELECT id, topic, status, artifact_key, error_message, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	var task domain.Task
	var status string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.Topic,
		&status,
		&task.ArtifactKey,
		&task.ErrorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, err
	}

	task.Status = domain.TaskStatus(status)

	log.Debug("task retrieved successfully",
		slog.String("task_id", id.String()),
		slog.String("status", string(task.Status)))
	return &task, nil
}

// Patch implements store.TaskStore.Patch
// It applies a field-level update built from the typed patch descriptor and
// always rewrites updated_at. When the patch carries a status, the current
// row's status is read first and the transition validated against the
// domain's transition table.
// Returns store.ErrTaskNotFound if the task does not exist and
// store.ErrIllegalTransition for a forbidden status change.
func (s *PostgresTaskStore) Patch(ctx context.Context, id uuid.UUID, patch store.TaskPatch) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if patch.IsEmpty() {
		return store.ErrEmptyPatch
	}

	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return domain.ErrInvalidTaskStatus
		}

		var current string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = $1`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				log.Debug("task not found for patch", slog.String("task_id", id.String()))
				return store.ErrTaskNotFound
			}
			log.Error("failed to read current task status",
				slog.String("error", err.Error()),
				slog.String("task_id", id.String()))
			return err
		}

		if !domain.TaskStatus(current).CanTransitionTo(*patch.Status) {
			log.Warn("rejected illegal status transition",
				slog.String("task_id", id.String()),
				slog.String("current_status", current),
				slog.String("target_status", string(*patch.Status)))
			return fmt.Errorf("%w: %s -> %s", store.ErrIllegalTransition, current, *patch.Status)
		}
	}

	// Build the SET clause from the named optional fields. The field set is
	// closed, so placeholders stay positional and predictable.
	setClauses := []string{}
	args := []any{}
	arg := 1

	if patch.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", arg))
		args = append(args, string(*patch.Status))
		arg++
	}
	if patch.ArtifactKey != nil {
		setClauses = append(setClauses, fmt.Sprintf("artifact_key = $%d", arg))
		args = append(args, *patch.ArtifactKey)
		arg++
	}
	if patch.ErrorMessage != nil {
		setClauses = append(setClauses, fmt.Sprintf("error_message = $%d", arg))
		args = append(args, *patch.ErrorMessage)
		arg++
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", arg))
	args = append(args, time.Now().UTC())
	arg++

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d", strings.Join(setClauses, ", "), arg)
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to patch task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("task not found for patch",
			slog.String("task_id", id.String()))
		return store.ErrTaskNotFound
	}

	log.Info("task patched successfully",
		slog.String("task_id", id.String()),
		slog.Bool("status_changed", patch.Status != nil))
	return nil
}
