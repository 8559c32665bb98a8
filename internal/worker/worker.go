// Package worker consumes research work items from the queue and drives
// each task through its lifecycle: idempotency check, provider call,
// artifact write, terminal status update. The handler is invoked once per
// queue delivery, including redeliveries, and must stay correct under
// at-least-once semantics.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/draftforge/research-api/internal/domain"
	"github.com/draftforge/research-api/internal/generation"
	"github.com/draftforge/research-api/internal/platform/blob"
	"github.com/draftforge/research-api/internal/queue"
	"github.com/draftforge/research-api/internal/store"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilTaskStore = errors.New("task store cannot be nil")
	ErrNilGenerator = errors.New("generator cannot be nil")
	ErrNilBlobStore = errors.New("blob store cannot be nil")

	// ErrMalformedWorkItem marks a poison message: the payload cannot be
	// parsed, so no task record can be located. Escalated unhandled so the
	// queue's dead-letter path captures the raw item for inspection.
	ErrMalformedWorkItem = errors.New("malformed work item")

	// ErrMissingTaskID marks a work item without a usable task identifier.
	// Escalated the same way as a malformed payload: with no key there is
	// no record to update.
	ErrMissingTaskID = errors.New("work item missing task ID")
)

// Outcome describes the result of processing one work item.
type Outcome struct {
	TaskID      string            `json:"taskId"`
	ArtifactKey string            `json:"artifactKey,omitempty"`
	Status      domain.TaskStatus `json:"status"`

	// AlreadyComplete is set when the delivery was a duplicate of a task
	// that had already reached researched; no provider call or blob write
	// happened.
	AlreadyComplete bool `json:"alreadyComplete,omitempty"`
}

// Worker processes research work items.
type Worker struct {
	tasks     store.TaskStore
	generator generation.Generator
	blobs     blob.Store
	logger    *slog.Logger
}

// New creates a Worker with the given dependencies.
func New(
	tasks store.TaskStore,
	generator generation.Generator,
	blobs blob.Store,
	logger *slog.Logger,
) (*Worker, error) {
	if tasks == nil {
		return nil, ErrNilTaskStore
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if blobs == nil {
		return nil, ErrNilBlobStore
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		tasks:     tasks,
		generator: generator,
		blobs:     blobs,
		logger:    logger.With("component", "research_worker"),
	}, nil
}

// Process handles one queue delivery. A nil error acknowledges the item
// (the queue deletes it); a non-nil error escalates to the queue's retry
// mechanism, which redelivers the item until the attempt budget is spent
// and then dead-letters it.
//
// Errors during the research phase are recorded on the task record
// best-effort before escalation, so the record stays informative while the
// queue retries. The escalated error is always the original failure, never
// a secondary failure from the recording attempt.
func (w *Worker) Process(ctx context.Context, payload []byte) (*Outcome, error) {
	// 1. Structural validation. An unparseable payload is poison: there is
	// no identifier to write a failure against, so escalate untouched.
	var item queue.WorkItem
	if err := json.Unmarshal(payload, &item); err != nil {
		w.logger.Error("received unparseable work item",
			"error", err,
			"payload_bytes", len(payload))
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkItem, err)
	}

	// 2. Required fields. A missing or invalid task ID is poison for the
	// same reason. A missing topic with a valid ID is a recoverable
	// application error: redelivery cannot repair the payload, so the task
	// is failed and the item acknowledged to stop retries.
	if item.TaskID == "" {
		w.logger.Error("received work item without task ID")
		return nil, ErrMissingTaskID
	}
	taskID, err := uuid.Parse(item.TaskID)
	if err != nil {
		w.logger.Error("received work item with invalid task ID",
			"error", err,
			"task_id", item.TaskID)
		return nil, fmt.Errorf("%w: %v", ErrMissingTaskID, err)
	}

	log := w.logger.With("task_id", item.TaskID)

	if item.Topic == "" {
		log.Warn("work item missing topic, failing task without retry")
		w.markFailed(ctx, taskID, "work item missing topic")
		return &Outcome{TaskID: item.TaskID, Status: domain.TaskStatusFailed}, nil
	}

	// 3. Idempotency guard. The queue may redeliver an item whose
	// processing succeeded but whose acknowledgement was lost; skip the
	// work instead of repeating it.
	task, err := w.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, w.failAndEscalate(ctx, log, taskID,
			fmt.Errorf("failed to load task record: %w", err))
	}

	if task.Status == domain.TaskStatusResearched {
		log.Info("task already researched, acknowledging duplicate delivery")
		return &Outcome{
			TaskID:          item.TaskID,
			ArtifactKey:     task.ArtifactKey,
			Status:          domain.TaskStatusResearched,
			AlreadyComplete: true,
		}, nil
	}

	// 4. Advance to researching. Advisory progress information, not a
	// lock: a concurrent duplicate may already hold the record. If that
	// duplicate finished first, the transition is rejected and we converge
	// on its result instead of re-running the research.
	researching := domain.TaskStatusResearching
	if err := w.tasks.Patch(ctx, taskID, store.TaskPatch{Status: &researching}); err != nil {
		if errors.Is(err, store.ErrIllegalTransition) {
			if current, rerr := w.tasks.GetByID(ctx, taskID); rerr == nil &&
				current.Status == domain.TaskStatusResearched {
				log.Info("concurrent delivery completed the task, acknowledging")
				return &Outcome{
					TaskID:          item.TaskID,
					ArtifactKey:     current.ArtifactKey,
					Status:          domain.TaskStatusResearched,
					AlreadyComplete: true,
				}, nil
			}
		}
		return nil, w.failAndEscalate(ctx, log, taskID,
			fmt.Errorf("failed to advance task to researching: %w", err))
	}

	log.Info("task researching", "topic_length", len(item.Topic))

	// 5-7. Provider call. Credential retrieval and text-block extraction
	// live behind the generator; any failure here, including a
	// provider-contract violation, fails the task and escalates for the
	// queue to retry.
	body, err := w.generator.Research(ctx, item.Topic)
	if err != nil {
		return nil, w.failAndEscalate(ctx, log, taskID, err)
	}

	// 8. Persist the artifact under its deterministic key before the
	// status update that references it.
	key := blob.ArtifactKey(item.TaskID)
	if err := w.blobs.Put(ctx, key, blob.ContentTypeMarkdown, []byte(body)); err != nil {
		return nil, w.failAndEscalate(ctx, log, taskID, err)
	}

	// 9. Terminal update. Both halves of a duplicate race write the same
	// status and key, so whichever lands last changes nothing.
	researched := domain.TaskStatusResearched
	if err := w.tasks.Patch(ctx, taskID, store.TaskPatch{
		Status:      &researched,
		ArtifactKey: &key,
	}); err != nil {
		return nil, w.failAndEscalate(ctx, log, taskID,
			fmt.Errorf("failed to finalize task: %w", err))
	}

	log.Info("task researched", "artifact_key", key)

	// 10. Done.
	return &Outcome{
		TaskID:      item.TaskID,
		ArtifactKey: key,
		Status:      domain.TaskStatusResearched,
	}, nil
}

// failAndEscalate records the failure on the task record best-effort and
// returns the original error for escalation. A secondary failure while
// recording is logged and swallowed; it never masks the original error.
func (w *Worker) failAndEscalate(ctx context.Context, log *slog.Logger, taskID uuid.UUID, original error) error {
	log.Error("task processing failed, escalating for queue retry",
		"error", original)
	w.markFailed(ctx, taskID, original.Error())
	return original
}

// markFailed patches the task to failed with the given diagnostic,
// swallowing and logging any secondary failure.
func (w *Worker) markFailed(ctx context.Context, taskID uuid.UUID, message string) {
	failed := domain.TaskStatusFailed
	patch := store.TaskPatch{
		Status:       &failed,
		ErrorMessage: &message,
	}
	if err := w.tasks.Patch(ctx, taskID, patch); err != nil {
		w.logger.Error("failed to record failure state on task",
			"error", err,
			"task_id", taskID)
	}
}
