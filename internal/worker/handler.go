package worker

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// HandleTask adapts Process to the asynq handler contract. Returning nil
// deletes the message; returning an error hands the item back to the
// broker's retry schedule, which archives it once the attempt budget is
// exhausted.
func (w *Worker) HandleTask(ctx context.Context, t *asynq.Task) error {
	outcome, err := w.Process(ctx, t.Payload())
	if err != nil {
		return err
	}

	w.logger.Info("work item acknowledged",
		slog.String("task_id", outcome.TaskID),
		slog.String("status", string(outcome.Status)),
		slog.Bool("already_complete", outcome.AlreadyComplete))
	return nil
}
