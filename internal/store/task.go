package store

import (
	"context"

	"github.com/draftforge/research-api/internal/domain"
	"github.com/google/uuid"
)

// TaskPatch is a typed update descriptor for a task record. Only non-nil
// fields are written; the store always rewrites updated_at. Using an
// explicit set of named optional fields keeps concurrent writers from
// erasing unrelated columns with a destructive replace.
type TaskPatch struct {
	// Status, when set, advances the task's lifecycle. The store validates
	// the transition against the current row and rejects illegal ones with
	// ErrIllegalTransition.
	Status *domain.TaskStatus

	// ArtifactKey, when set, records the blob key of the finished research
	// artifact. Set only on the transition to researched.
	ArtifactKey *string

	// ErrorMessage, when set, records a short diagnostic string. Set only
	// on the transition to failed.
	ErrorMessage *string
}

// IsEmpty reports whether the patch names no fields at all.
func (p TaskPatch) IsEmpty() bool {
	return p.Status == nil && p.ArtifactKey == nil && p.ErrorMessage == nil
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Patch applies a field-level update to an existing task and rewrites
	// updated_at. Returns ErrTaskNotFound if the task does not exist and
	// ErrIllegalTransition if the patch's status is not reachable from the
	// task's current status.
	Patch(ctx context.Context, id uuid.UUID, patch TaskPatch) error
}
