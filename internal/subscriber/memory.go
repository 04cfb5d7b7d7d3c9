package subscriber

import (
	"context"
	"fmt"
	"sync"

	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/utils"
)

type memoryMessage struct {
	subject string
	data    []byte
}

type memorySubscription struct {
	handler MessageHandler
	ctx     context.Context
	cancel  context.CancelFunc
	ch      chan memoryMessage
}

// MemorySubscriber delivers messages handed to its Publish method. It backs
// the "memory" queue type, where requests never leave the process.
type MemorySubscriber struct {
	logger        *logging.Logger
	subscriptions map[string]*memorySubscription
	mu            sync.RWMutex
}

// NewMemorySubscriber creates a new in-memory subscriber
func NewMemorySubscriber(logger *logging.Logger) *MemorySubscriber {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MemorySubscriber{
		logger:        logger.With("component", "subscriber.memory"),
		subscriptions: make(map[string]*memorySubscription),
	}
}

// Subscribe subscribes to a subject with the given handler
func (s *MemorySubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, subject)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySubscription{
		handler: handler,
		ctx:     subCtx,
		cancel:  cancel,
		ch:      make(chan memoryMessage, utils.MemoryQueueCapacity),
	}
	s.subscriptions[subject] = sub

	go s.consume(sub)

	s.logger.Info("Subscribed to in-memory subject", "subject", subject)
	return nil
}

// Publish queues a message for the subject's handler. It fails when nobody
// is subscribed or the buffer is full.
func (s *MemorySubscriber) Publish(ctx context.Context, subject string, data []byte) error {
	s.mu.RLock()
	sub, ok := s.subscriptions[subject]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no subscription for subject: %s", subject)
	}

	select {
	case sub.ch <- memoryMessage{subject: subject, data: append([]byte(nil), data...)}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("subject %s is full (%d messages)", subject, cap(sub.ch))
	}
}

func (s *MemorySubscriber) consume(sub *memorySubscription) {
	for {
		select {
		case <-sub.ctx.Done():
			return
		case msg := <-sub.ch:
			if err := sub.handler(sub.ctx, msg.subject, msg.data); err != nil {
				s.logger.Error("Failed to handle message", "subject", msg.subject, "error", err)
			}
		}
	}
}

// Unsubscribe unsubscribes from a subject. Queued messages are dropped.
func (s *MemorySubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	sub.cancel()
	delete(s.subscriptions, subject)

	s.logger.Info("Unsubscribed from in-memory subject", "subject", subject)
	return nil
}

// Close closes all subscriptions
func (s *MemorySubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subscriptions {
		sub.cancel()
	}
	s.subscriptions = make(map[string]*memorySubscription)
	return nil
}
