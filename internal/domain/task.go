package domain

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskStatus represents the processing state of a research task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending     TaskStatus = "pending"
	TaskStatusResearching TaskStatus = "researching"
	TaskStatusResearched  TaskStatus = "researched"
	TaskStatusFailed      TaskStatus = "failed"
)

// MaxTopicLength is the maximum number of characters allowed in a task topic.
// A topic of exactly MaxTopicLength characters is accepted.
const MaxTopicLength = 500

// Common validation errors for Task
var (
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrEmptyTopic        = errors.New("task topic cannot be empty")
	ErrTopicTooLong      = errors.New("task topic exceeds maximum length")
	ErrInvalidTaskStatus = errors.New("invalid task status")
)

// Task represents one research request and its lifecycle record.
// The ID is assigned exactly once at creation and doubles as the
// derivation input for the artifact's blob key.
type Task struct {
	ID           uuid.UUID  `json:"taskId"`
	Topic        string     `json:"topic"`
	Status       TaskStatus `json:"status"`
	ArtifactKey  string     `json:"s3Key,omitempty"`
	ErrorMessage string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NewTask creates a new Task for the given topic.
// It generates a new UUID for the task ID, sets the status to pending,
// and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTask(topic string) (*Task, error) {
	task := &Task{
		ID:        uuid.New(),
		Topic:     topic,
		Status:    TaskStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.Topic == "" {
		return ErrEmptyTopic
	}

	if utf8.RuneCountInString(t.Topic) > MaxTopicLength {
		return ErrTopicTooLong
	}

	if !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}

	return nil
}

// IsValid checks if the status is one of the known TaskStatus values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusResearching, TaskStatusResearched, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is a resting state: under correct
// operation no further status progression is expected once it is reached.
// A failed task can still be resurrected to researching by a queue
// redelivery; researched never regresses.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusResearched || s == TaskStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal status
// transition. The lifecycle moves forward only:
//
//	pending -> researching -> researched
//	pending|researching -> failed
//	failed -> researching (queue redelivery restarting a failed attempt)
//
// Writing the same status again is always legal so that concurrent
// deliveries converge on identical terminal writes. Researched accepts no
// other transition.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if !next.IsValid() {
		return false
	}

	if s == next {
		return true
	}

	switch s {
	case TaskStatusPending:
		return next == TaskStatusResearching || next == TaskStatusFailed
	case TaskStatusResearching:
		return next == TaskStatusResearched || next == TaskStatusFailed
	case TaskStatusFailed:
		return next == TaskStatusResearching
	default:
		return false
	}
}
