package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/queue"
	"github.com/soltixdb/brutlag/internal/utils"
)

// NATSConfig represents NATS connection configuration
type NATSConfig struct {
	URL      string
	Username string
	Password string
}

// NATSSubscriber consumes JetStream subjects through a durable queue
// consumer shared by every process in the consumer group
type NATSSubscriber struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	cfg           Config
	logger        *logging.Logger
	subscriptions map[string]*nats.Subscription
	mu            sync.Mutex
}

// NewNATSSubscriber connects to NATS with JetStream enabled
func NewNATSSubscriber(natsCfg NATSConfig, cfg Config, logger *logging.Logger) (*NATSSubscriber, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With("component", "subscriber.nats")

	opts := []nats.Option{
		nats.Name(fmt.Sprintf("brutlag-worker-%s", cfg.ConsumerID)),
		nats.Timeout(utils.QueueConnectTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if natsCfg.Username != "" {
		opts = append(opts, nats.UserInfo(natsCfg.Username, natsCfg.Password))
	}

	conn, err := nats.Connect(natsCfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSSubscriber{
		conn:          conn,
		js:            js,
		cfg:           cfg.withDefaults(),
		logger:        logger,
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

// Subscribe subscribes to a subject with the given handler
func (s *NATSSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, subject)
	}

	if err := s.ensureStream(subject); err != nil {
		return err
	}

	durable := durableName(s.cfg.ConsumerGroup, subject)
	sub, err := s.js.QueueSubscribe(subject, durable, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			_ = msg.Nak()
			return
		}

		if err := handler(ctx, msg.Subject, msg.Data); err != nil {
			s.logger.Error("Failed to handle message",
				"subject", msg.Subject,
				"error", err,
				"data_preview", string(msg.Data[:min(100, len(msg.Data))]))
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxAckPending(s.cfg.BatchSize),
		nats.AckWait(utils.DefaultRequestTimeout+5*time.Second),
		nats.MaxDeliver(s.cfg.MaxDeliver),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.subscriptions[subject] = sub
	s.logger.Info("Subscribed to subject", "subject", subject, "durable", durable)
	return nil
}

// ensureStream creates the work-queue stream for subject unless a stream
// already captures it. The name matches the one the queue publisher uses.
func (s *NATSSubscriber) ensureStream(subject string) error {
	if name, err := s.js.StreamNameBySubject(subject); err == nil && name != "" {
		return nil
	}

	_, err := s.js.AddStream(&nats.StreamConfig{
		Name:      queue.StreamName(subject),
		Subjects:  []string{subject},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream for subject %s: %w", subject, err)
	}
	return nil
}

// durableName builds a consumer name, which may not contain dots or wildcards
func durableName(group, subject string) string {
	r := strings.NewReplacer(".", "_", "*", "all", ">", "rest")
	return fmt.Sprintf("%s-%s", group, r.Replace(subject))
}

// Unsubscribe unsubscribes from a subject. The durable consumer is kept so
// that a restarted worker resumes where it stopped.
func (s *NATSSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", subject, err)
	}

	delete(s.subscriptions, subject)
	s.logger.Info("Unsubscribed from subject", "subject", subject)
	return nil
}

// Close drains all subscriptions and closes the connection
func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions = make(map[string]*nats.Subscription)
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return err
	}
	s.logger.Info("NATS subscriber closed")
	return nil
}
