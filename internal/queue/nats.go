package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/soltixdb/brutlag/internal/utils"
)

// NATSConfig represents NATS connection configuration
type NATSConfig struct {
	URL      string
	Username string
	Password string
}

// NATSPublisher publishes to NATS JetStream. A file-backed stream is created
// for each subject on first use unless one already captures it.
type NATSPublisher struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	streams map[string]bool
	mu      sync.Mutex
}

// newNATSPublisher connects to NATS with JetStream enabled
func newNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("brutlag"),
		nats.Timeout(utils.QueueConnectTimeout),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSPublisherWithConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// newNATSPublisherWithConn wraps an existing connection
func newNATSPublisherWithConn(conn *nats.Conn) (*NATSPublisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSPublisher{
		conn:    conn,
		js:      js,
		streams: make(map[string]bool),
	}, nil
}

// ensureStream makes sure a stream captures subject
func (q *NATSPublisher) ensureStream(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.streams[subject] {
		return nil
	}

	if _, err := q.js.StreamNameBySubject(subject); err == nil {
		q.streams[subject] = true
		return nil
	}

	_, err := q.js.AddStream(&nats.StreamConfig{
		Name:     StreamName(subject),
		Subjects: []string{subject},
		Storage:  nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream for subject %s: %w", subject, err)
	}

	q.streams[subject] = true
	return nil
}

// Publish publishes a message and waits for the JetStream acknowledgement
func (q *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}

	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch publishes all messages asynchronously and waits for the
// acknowledgements, bounded by ctx
func (q *NATSPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))
	for _, msg := range messages {
		if err := q.ensureStream(msg.Subject); err != nil {
			continue
		}
		future, err := q.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			continue
		}
		futures = append(futures, future)
	}

	select {
	case <-q.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	successCount := 0
	for _, future := range futures {
		select {
		case <-future.Ok():
			successCount++
		case <-future.Err():
		}
	}

	return successCount, nil
}

// Close drains pending publishes and closes the connection
func (q *NATSPublisher) Close() error {
	if err := q.conn.Drain(); err != nil {
		q.conn.Close()
		return err
	}
	return nil
}

// StreamName derives the JetStream stream name for a subject.
// Stream names can only contain: A-Z, a-z, 0-9, dash (-) and underscore (_)
func StreamName(subject string) string {
	result := make([]byte, 0, len(utils.DefaultStreamPrefix)+1+len(subject))
	result = append(result, utils.DefaultStreamPrefix...)
	result = append(result, '-')
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
