package subscriber

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestNewKafkaSubscriber_NoBrokers(t *testing.T) {
	if _, err := NewKafkaSubscriber(nil, DefaultConfig(), nil); err == nil {
		t.Error("expected error without brokers")
	}
}

func TestKafkaSubscriber_ReaderConfig(t *testing.T) {
	sub, err := NewKafkaSubscriber([]string{"localhost:9092"}, Config{ConsumerGroup: "g"}, nil)
	if err != nil {
		t.Fatalf("NewKafkaSubscriber failed: %v", err)
	}

	rc := sub.readerConfig("brutlag.requests")
	if rc.GroupID != "g" || rc.Topic != "brutlag.requests" {
		t.Errorf("unexpected reader config: group %q topic %q", rc.GroupID, rc.Topic)
	}
	if rc.StartOffset != kafka.FirstOffset {
		t.Error("new groups should start from the first offset")
	}
}

func TestKafkaSubscriber_SubscribeTwice(t *testing.T) {
	sub, err := NewKafkaSubscriber([]string{"127.0.0.1:1"}, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewKafkaSubscriber failed: %v", err)
	}
	defer func() { _ = sub.Close() }()

	noop := func(ctx context.Context, subject string, data []byte) error { return nil }
	if err := sub.Subscribe(context.Background(), "t", noop); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := sub.Subscribe(context.Background(), "t", noop); !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("expected ErrAlreadySubscribed, got %v", err)
	}
	if err := sub.Unsubscribe("t"); err != nil {
		t.Errorf("Unsubscribe failed: %v", err)
	}
	if err := sub.Unsubscribe("t"); err == nil {
		t.Error("second Unsubscribe should fail")
	}
}
