package subscriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/soltixdb/brutlag/internal/logging"
)

// KafkaSubscriber reads Kafka topics as a member of a consumer group.
// Subjects map to topics unchanged, as in the queue publisher.
type KafkaSubscriber struct {
	brokers []string
	cfg     Config
	logger  *logging.Logger
	readers map[string]*kafka.Reader
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewKafkaSubscriber creates a new Kafka subscriber
func NewKafkaSubscriber(brokers []string, cfg Config, logger *logging.Logger) (*KafkaSubscriber, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &KafkaSubscriber{
		brokers: brokers,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "subscriber.kafka"),
		readers: make(map[string]*kafka.Reader),
		cancels: make(map[string]context.CancelFunc),
	}, nil
}

func (s *KafkaSubscriber) readerConfig(topic string) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:           s.brokers,
		GroupID:           s.cfg.ConsumerGroup,
		Topic:             topic,
		MinBytes:          1,
		MaxBytes:          10e6,
		MaxWait:           time.Second,
		StartOffset:       kafka.FirstOffset,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			s.logger.Debug(fmt.Sprintf(msg, args...))
		}),
	}
}

// Subscribe subscribes to a topic with the given handler
func (s *KafkaSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.readers[subject]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, subject)
	}

	reader := kafka.NewReader(s.readerConfig(subject))
	subCtx, cancel := context.WithCancel(ctx)
	s.readers[subject] = reader
	s.cancels[subject] = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.consume(subCtx, reader, subject, handler)
	}()

	s.logger.Info("Subscribed to Kafka topic", "topic", subject, "group", s.cfg.ConsumerGroup)
	return nil
}

// consume retries a failed message up to MaxDeliver times, then commits
// past it so that one bad request cannot stall the partition
func (s *KafkaSubscriber) consume(ctx context.Context, reader *kafka.Reader, subject string, handler MessageHandler) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("Failed to fetch message", "topic", subject, "error", err)
			time.Sleep(time.Second)
			continue
		}

		for attempt := 1; attempt <= s.cfg.MaxDeliver; attempt++ {
			if err = handler(ctx, subject, msg.Value); err == nil || ctx.Err() != nil {
				break
			}
			s.logger.Warn("Failed to handle message", "topic", subject, "offset", msg.Offset, "attempt", attempt, "error", err)
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Error("Dropping message after retries", "topic", subject, "offset", msg.Offset, "error", err)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			s.logger.Error("Failed to commit message", "topic", subject, "offset", msg.Offset, "error", err)
		}
	}
}

// Unsubscribe unsubscribes from a topic
func (s *KafkaSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancel, exists := s.cancels[subject]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}
	cancel()
	delete(s.cancels, subject)

	if reader, ok := s.readers[subject]; ok {
		if err := reader.Close(); err != nil {
			s.logger.Warn("Failed to close reader", "topic", subject, "error", err)
		}
		delete(s.readers, subject)
	}

	s.logger.Info("Unsubscribed from Kafka topic", "topic", subject)
	return nil
}

// Close closes all readers and subscriptions
func (s *KafkaSubscriber) Close() error {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = make(map[string]context.CancelFunc)

	var lastErr error
	for topic, reader := range s.readers {
		if err := reader.Close(); err != nil {
			s.logger.Warn("Failed to close reader", "topic", topic, "error", err)
			lastErr = err
		}
	}
	s.readers = make(map[string]*kafka.Reader)
	s.mu.Unlock()

	s.wg.Wait()
	return lastErr
}
