package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/soltixdb/brutlag/internal/utils"
)

// MemoryPublisher keeps published messages in memory per subject.
// It is useful for tests and local runs without a broker.
type MemoryPublisher struct {
	messages map[string][][]byte
	capacity int
	closed   bool
	mu       sync.Mutex
}

// NewMemoryPublisher creates a new in-memory publisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		messages: make(map[string][][]byte),
		capacity: utils.MemoryQueueCapacity,
	}
}

// Publish stores a copy of data under subject
func (q *MemoryPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("publisher closed")
	}
	if len(q.messages[subject]) >= q.capacity {
		return fmt.Errorf("subject full: %s", subject)
	}

	// Copy so callers may reuse their buffer
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	q.messages[subject] = append(q.messages[subject], dataCopy)
	return nil
}

// PublishBatch publishes multiple messages
func (q *MemoryPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0
	for _, msg := range messages {
		if err := q.Publish(ctx, msg.Subject, msg.Data); err != nil {
			continue
		}
		successCount++
	}
	return successCount, nil
}

// Drain returns and removes every message stored under subject
func (q *MemoryPublisher) Drain(subject string) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs := q.messages[subject]
	delete(q.messages, subject)
	return msgs
}

// Pending returns the number of stored messages for subject
func (q *MemoryPublisher) Pending(subject string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages[subject])
}

// Close drops all stored messages and rejects further publishes
func (q *MemoryPublisher) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.messages = make(map[string][][]byte)
	return nil
}
