// Package queue publishes anomaly events to a message broker.
package queue

import "context"

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch publishes multiple messages and waits for all to complete.
	// Returns the number of successfully published messages and any error
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	// Close closes the connection
	Close() error
}

// BatchMessage represents a message for batch publishing
type BatchMessage struct {
	Subject string
	Data    []byte
}

// NopPublisher discards every message. It backs the "none" queue type.
type NopPublisher struct{}

// Publish discards the message
func (NopPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return nil
}

// PublishBatch discards the messages and reports them as published
func (NopPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	return len(messages), nil
}

// Close is a no-op
func (NopPublisher) Close() error {
	return nil
}
