package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/utils"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Stream   string // Stream prefix, matching the queue publisher
}

// RedisSubscriber reads Redis Streams through a consumer group
type RedisSubscriber struct {
	client        *redis.Client
	prefix        string
	cfg           Config
	logger        *logging.Logger
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// NewRedisSubscriber creates a Redis Streams subscriber and checks connectivity
func NewRedisSubscriber(redisCfg RedisConfig, cfg Config, logger *logging.Logger) (*RedisSubscriber, error) {
	opts, err := redis.ParseURL(redisCfg.URL)
	if err != nil {
		opts = &redis.Options{
			Addr:     redisCfg.URL,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), utils.QueueConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisSubscriberWithClient(client, redisCfg.Stream, cfg, logger), nil
}

func newRedisSubscriberWithClient(client *redis.Client, prefix string, cfg Config, logger *logging.Logger) *RedisSubscriber {
	if prefix == "" {
		prefix = utils.DefaultStreamPrefix
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RedisSubscriber{
		client:        client,
		prefix:        prefix,
		cfg:           cfg.withDefaults(),
		logger:        logger.With("component", "subscriber.redis"),
		subscriptions: make(map[string]context.CancelFunc),
	}
}

// streamName converts a subject to a Redis stream name
func (s *RedisSubscriber) streamName(subject string) string {
	return fmt.Sprintf("%s:%s", s.prefix, subject)
}

// Subscribe creates the consumer group if needed and starts reading
func (s *RedisSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streamName(subject)
	if _, exists := s.subscriptions[stream]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, subject)
	}

	err := s.client.XGroupCreateMkStream(ctx, stream, s.cfg.ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.subscriptions[stream] = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.consume(subCtx, stream, subject, handler)
	}()

	s.logger.Info("Subscribed to Redis stream", "stream", stream, "group", s.cfg.ConsumerGroup, "consumer", s.cfg.ConsumerID)
	return nil
}

// consume first replays this consumer's unacknowledged entries, then reads
// new ones. Failed entries stay pending and are retried on the next start.
func (s *RedisSubscriber) consume(ctx context.Context, stream, subject string, handler MessageHandler) {
	start := "0"
	for ctx.Err() == nil {
		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.cfg.ConsumerGroup,
			Consumer: s.cfg.ConsumerID,
			Streams:  []string{stream, start},
			Count:    int64(s.cfg.BatchSize),
			Block:    time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			s.logger.Error("Failed to read from stream", "stream", stream, "error", err)
			time.Sleep(time.Second)
			continue
		}

		delivered := 0
		for _, st := range streams {
			for _, message := range st.Messages {
				delivered++
				s.handle(ctx, stream, subject, message, handler)
			}
		}
		if start == "0" && delivered == 0 {
			start = ">"
		}
	}
}

func (s *RedisSubscriber) handle(ctx context.Context, stream, subject string, message redis.XMessage, handler MessageHandler) {
	var data []byte
	switch v := message.Values["data"].(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		s.logger.Warn("Invalid message format", "stream", stream, "id", message.ID)
		s.ack(ctx, stream, message.ID)
		return
	}

	if err := handler(ctx, subject, data); err != nil {
		s.logger.Error("Failed to handle message", "stream", stream, "id", message.ID, "error", err)
		return
	}
	s.ack(ctx, stream, message.ID)
}

func (s *RedisSubscriber) ack(ctx context.Context, stream, id string) {
	if err := s.client.XAck(ctx, stream, s.cfg.ConsumerGroup, id).Err(); err != nil {
		s.logger.Error("Failed to ACK message", "stream", stream, "id", id, "error", err)
	}
}

// Unsubscribe stops reading a stream
func (s *RedisSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streamName(subject)
	cancel, exists := s.subscriptions[stream]
	if !exists {
		return fmt.Errorf("not subscribed to stream: %s", stream)
	}
	cancel()
	delete(s.subscriptions, stream)

	s.logger.Info("Unsubscribed from Redis stream", "stream", stream)
	return nil
}

// Close stops every reader and closes the client
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()
	for _, cancel := range s.subscriptions {
		cancel()
	}
	s.subscriptions = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	s.wg.Wait()
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	return nil
}
