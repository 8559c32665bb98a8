package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// AsynqPublisher implements Publisher on top of an asynq client. Each work
// item is enqueued on QueueName with the fixed redelivery budget; retry
// scheduling, visibility timeouts, and the dead-letter archive are owned by
// the broker, never by this package.
type AsynqPublisher struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewAsynqPublisher creates a publisher backed by the given Redis broker.
// If logger is nil, a default logger will be used.
func NewAsynqPublisher(redisOpt asynq.RedisClientOpt, logger *slog.Logger) *AsynqPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &AsynqPublisher{
		client: asynq.NewClient(redisOpt),
		logger: logger.With(slog.String("component", "queue_publisher")),
	}
}

// Ensure AsynqPublisher implements Publisher
var _ Publisher = (*AsynqPublisher)(nil)

// Publish implements Publisher.Publish.
func (p *AsynqPublisher) Publish(ctx context.Context, item WorkItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal work item: %w", err)
	}

	task := asynq.NewTask(TaskTypeResearch, payload)
	info, err := p.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(MaxDeliveryAttempts),
	)
	if err != nil {
		p.logger.Error("failed to enqueue work item",
			slog.String("error", err.Error()),
			slog.String("task_id", item.TaskID))
		return fmt.Errorf("failed to enqueue work item: %w", err)
	}

	p.logger.Info("work item enqueued",
		slog.String("task_id", item.TaskID),
		slog.String("queue", info.Queue),
		slog.String("message_id", info.ID))
	return nil
}

// Close releases the underlying broker connection.
func (p *AsynqPublisher) Close() error {
	return p.client.Close()
}
