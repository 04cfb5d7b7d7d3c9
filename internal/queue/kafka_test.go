package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

// Test helper: Kafka integration tests run only when KAFKA_TEST=1
func isKafkaAvailable() bool {
	return os.Getenv("KAFKA_TEST") == "1"
}

// Test helper: get Kafka brokers from env or default
func getKafkaBrokers() []string {
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		return []string{brokers}
	}
	return []string{"localhost:9092"}
}

func TestNewKafkaPublisher_NoBrokers(t *testing.T) {
	if _, err := newKafkaPublisher(KafkaConfig{}); err == nil {
		t.Error("Expected error without brokers")
	}
}

func TestNewKafkaPublisher_Defaults(t *testing.T) {
	q, err := newKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("newKafkaPublisher failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	if q.config.BatchSize != 100 {
		t.Errorf("Expected default batch size 100, got %d", q.config.BatchSize)
	}
	if q.config.BatchTimeout != 10*time.Millisecond {
		t.Errorf("Expected default batch timeout 10ms, got %v", q.config.BatchTimeout)
	}
	if q.config.RequiredAcks != int(kafka.RequireOne) {
		t.Errorf("Expected RequireOne, got %d", q.config.RequiredAcks)
	}
	if q.config.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", q.config.MaxRetries)
	}
}

func TestKafkaPublisher_WriterPerTopic(t *testing.T) {
	q, err := newKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("newKafkaPublisher failed: %v", err)
	}

	w1 := q.writer("anomalies")
	w2 := q.writer("anomalies")
	w3 := q.writer("reports")

	if w1 != w2 {
		t.Error("Expected the same writer for the same topic")
	}
	if w1 == w3 {
		t.Error("Expected different writers for different topics")
	}
	if w1.Topic != "anomalies" {
		t.Errorf("Expected topic 'anomalies', got %s", w1.Topic)
	}

	if stats := q.Stats("missing"); stats.Writes != 0 {
		t.Errorf("Expected empty stats for unknown topic, got %+v", stats)
	}

	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(q.writers) != 0 {
		t.Error("Close should release all writers")
	}
}

func TestKafkaPublisher_PublishBatch_Empty(t *testing.T) {
	q, err := newKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("newKafkaPublisher failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	n, err := q.PublishBatch(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("Expected 0 and no error, got %d, %v", n, err)
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	if !isKafkaAvailable() {
		t.Skip("Kafka not available, skipping test")
	}

	q, err := newKafkaPublisher(KafkaConfig{Brokers: getKafkaBrokers()})
	if err != nil {
		t.Fatalf("newKafkaPublisher failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := q.Publish(ctx, "brutlag-test-anomalies", []byte(`{"index":5}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	n, err := q.PublishBatch(ctx, []BatchMessage{
		{Subject: "brutlag-test-anomalies", Data: []byte("a")},
		{Subject: "brutlag-test-anomalies", Data: []byte("b")},
	})
	if err != nil || n != 2 {
		t.Errorf("Expected 2 published, got %d, %v", n, err)
	}
}
