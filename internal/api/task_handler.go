// Package api contains the HTTP handlers for the research task service.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/draftforge/research-api/internal/api/shared"
	"github.com/draftforge/research-api/internal/domain"
	"github.com/draftforge/research-api/internal/service"
)

// CreateTaskRequest represents the request body for submitting a research topic.
type CreateTaskRequest struct {
	Topic string `json:"topic" validate:"required,max=500"`
}

// CreateTaskResponse acknowledges an accepted research request. Processing
// happens asynchronously; the client polls with the returned task ID.
type CreateTaskResponse struct {
	TaskID  string `json:"taskId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TaskResponse represents the full lifecycle record of a research task.
type TaskResponse struct {
	TaskID      string    `json:"taskId"`
	Topic       string    `json:"topic"`
	Status      string    `json:"status"`
	ArtifactKey string    `json:"s3Key,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskHandler handles research-task HTTP requests.
type TaskHandler struct {
	taskService service.TaskService
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		validator:   validator.New(),
		logger:      logger.With("component", "task_handler"),
	}
}

// CreateTask handles POST /api/tasks requests. A successful submission
// returns 202 Accepted: the record exists and a work item is queued, but the
// research itself has not run yet.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	task, err := h.taskService.CreateTaskAndEnqueue(r.Context(), req.Topic)
	if err != nil {
		// Domain validation failures are the client's to fix; everything
		// else is a server-side failure of the write or the publish.
		if errors.Is(err, domain.ErrEmptyTopic) || errors.Is(err, domain.ErrTopicTooLong) {
			shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to accept research task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateTaskResponse{
		TaskID:  task.ID.String(),
		Status:  string(task.Status),
		Message: "research task accepted",
	})
}

// GetTask handles GET /api/tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.taskService.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to retrieve task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// taskToResponse converts a domain.Task to its API representation.
func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		TaskID:      task.ID.String(),
		Topic:       task.Topic,
		Status:      string(task.Status),
		ArtifactKey: task.ArtifactKey,
		Error:       task.ErrorMessage,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}
