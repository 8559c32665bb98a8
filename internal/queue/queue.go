// Package queue defines the work-queue contract between the accept path
// and the worker. The broker provides at-least-once delivery with a
// visibility timeout; items that exhaust their redelivery budget land in
// the dead-letter archive for manual inspection.
package queue

import "context"

// Queue routing constants shared by the publisher and the consumer.
const (
	// TaskTypeResearch is the message type for research work items.
	TaskTypeResearch = "research:topic"

	// QueueName is the broker queue carrying research work items.
	QueueName = "research"

	// MaxDeliveryAttempts is the fixed redelivery budget. After this many
	// failed attempts beyond the first delivery, the broker moves the item
	// to the dead-letter archive.
	MaxDeliveryAttempts = 2
)

// WorkItem is the ephemeral queue payload referencing a task. It is not
// separately persisted; its only durable trace is the task record it
// references.
type WorkItem struct {
	TaskID string `json:"taskId"`
	Topic  string `json:"topic"`
}

// Publisher publishes work items for asynchronous processing.
type Publisher interface {
	// Publish enqueues a work item. The referenced task record must already
	// exist; callers own the write-then-publish ordering.
	Publish(ctx context.Context, item WorkItem) error
}
