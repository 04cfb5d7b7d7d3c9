// Package subscriber consumes messages from the broker the queue package
// publishes to. Handlers that return an error leave the message for
// redelivery where the broker supports it.
package subscriber

import (
	"context"
	"errors"
)

// ErrAlreadySubscribed is returned when a subject already has a handler
var ErrAlreadySubscribed = errors.New("already subscribed")

// MessageHandler is a function that processes incoming messages
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Subscriber defines the interface for message subscription
type Subscriber interface {
	// Subscribe starts delivering messages on subject to handler until ctx
	// is cancelled or the subject is unsubscribed
	Subscribe(ctx context.Context, subject string, handler MessageHandler) error

	// Unsubscribe stops delivery for subject
	Unsubscribe(subject string) error

	// Close stops every subscription and releases the connection
	Close() error
}

// Config holds common subscriber configuration
type Config struct {
	// ConsumerID identifies this process inside the consumer group
	ConsumerID string

	// ConsumerGroup shares the work on a subject between processes
	ConsumerGroup string

	// MaxDeliver bounds redelivery of messages whose handler failed
	MaxDeliver int

	// BatchSize is the number of messages fetched per read where applicable
	BatchSize int
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		ConsumerGroup: "brutlag-workers",
		MaxDeliver:    3,
		BatchSize:     10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = d.ConsumerGroup
	}
	if c.MaxDeliver <= 0 {
		c.MaxDeliver = d.MaxDeliver
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	return c
}
