package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/draftforge/research-api/internal/domain"
	"github.com/draftforge/research-api/internal/queue"
	"github.com/draftforge/research-api/internal/store"
	"github.com/google/uuid"
)

// TaskService provides research-task operations for the accept path.
type TaskService interface {
	// CreateTaskAndEnqueue creates a new task in pending state and publishes
	// a work item for asynchronous processing.
	CreateTaskAndEnqueue(ctx context.Context, topic string) (*domain.Task, error)

	// GetTask retrieves a task by its ID.
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
}

// Common sentinel errors for TaskService
var (
	// ErrTaskNotFound indicates that the task does not exist
	ErrTaskNotFound = errors.New("task not found")
)

// TaskServiceError wraps errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "create_task")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
// It returns known sentinel errors directly without wrapping.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTaskNotFound) || errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}

	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	taskStore store.TaskStore
	publisher queue.Publisher
	logger    *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	publisher queue.Publisher,
	logger *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "taskStore cannot be nil",
		}
	}
	if publisher == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "publisher cannot be nil",
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		taskStore: taskStore,
		publisher: publisher,
		logger:    logger.With("component", "task_service"),
	}, nil
}

// CreateTaskAndEnqueue creates a new task with pending status and publishes
// a work item referencing it. The record write always precedes the publish:
// a task that never existed must never be enqueued. If the publish fails
// after a successful write, the task is marked failed best-effort so no
// pending record is left without a corresponding queued work item.
func (s *taskServiceImpl) CreateTaskAndEnqueue(
	ctx context.Context,
	topic string,
) (*domain.Task, error) {
	// 1. Create a new task with pending status. Validation errors (empty or
	// over-length topic) surface unwrapped so the handler can classify them.
	task, err := domain.NewTask(topic)
	if err != nil {
		s.logger.Warn("rejected invalid task",
			"error", err)
		return nil, err
	}

	// 2. Persist the record before anything is published.
	if err := s.taskStore.Create(ctx, task); err != nil {
		s.logger.Error("failed to save task",
			"error", err,
			"task_id", task.ID)
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	s.logger.Info("task created with pending status",
		"task_id", task.ID)

	// 3. Publish the work item.
	item := queue.WorkItem{
		TaskID: task.ID.String(),
		Topic:  task.Topic,
	}
	if err := s.publisher.Publish(ctx, item); err != nil {
		s.logger.Error("failed to publish work item",
			"error", err,
			"task_id", task.ID)

		// Best-effort compensation: mark the just-created record failed so
		// it does not linger as an orphaned pending task. A secondary
		// failure here is logged, never escalated in place of the publish
		// error.
		s.markFailed(ctx, task.ID, "failed to enqueue research work item")

		return nil, NewTaskServiceError("create_task", "failed to publish work item", err)
	}

	s.logger.Info("work item published",
		"task_id", task.ID)

	return task, nil
}

// GetTask retrieves a task by its ID.
func (s *taskServiceImpl) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("failed to retrieve task",
			"error", err,
			"task_id", taskID)
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}

	return task, nil
}

// markFailed patches the task to failed with the given diagnostic,
// swallowing and logging any secondary failure.
func (s *taskServiceImpl) markFailed(ctx context.Context, taskID uuid.UUID, message string) {
	failed := domain.TaskStatusFailed
	patch := store.TaskPatch{
		Status:       &failed,
		ErrorMessage: &message,
	}
	if err := s.taskStore.Patch(ctx, taskID, patch); err != nil {
		s.logger.Error("failed to mark task as failed after publish failure",
			"error", err,
			"task_id", taskID)
	}
}
