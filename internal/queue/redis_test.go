package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Test helper: check if Redis is available
func isRedisAvailable() bool {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return client.Ping(ctx).Err() == nil
}

// Test helper: get Redis URL from env or default
func getRedisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379"
}

func TestRedisPublisher_StreamName(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer func() { _ = client.Close() }()

	q := newRedisPublisherWithClient(client, RedisConfig{})
	if got := q.streamName("anomalies"); got != "brutlag:anomalies" {
		t.Errorf("Expected default prefix, got %s", got)
	}

	q = newRedisPublisherWithClient(client, RedisConfig{Stream: "custom"})
	if got := q.streamName("anomalies"); got != "custom:anomalies" {
		t.Errorf("Expected custom prefix, got %s", got)
	}
}

func TestNewRedisPublisher_Unreachable(t *testing.T) {
	if _, err := newRedisPublisher(RedisConfig{URL: "redis://127.0.0.1:1"}); err == nil {
		t.Error("Expected error for unreachable Redis")
	}
}

func TestRedisPublisher_Publish(t *testing.T) {
	if !isRedisAvailable() {
		t.Skip("Redis not available, skipping test")
	}

	q, err := newRedisPublisher(RedisConfig{URL: getRedisURL(), Stream: "brutlag-test"})
	if err != nil {
		t.Fatalf("newRedisPublisher failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	ctx := context.Background()
	stream := q.streamName("anomalies")
	q.client.Del(ctx, stream)
	defer q.client.Del(ctx, stream)

	if err := q.Publish(ctx, "anomalies", []byte("one")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	n, err := q.PublishBatch(ctx, []BatchMessage{
		{Subject: "anomalies", Data: []byte("two")},
		{Subject: "anomalies", Data: []byte("three")},
	})
	if err != nil || n != 2 {
		t.Fatalf("Expected 2 published, got %d, %v", n, err)
	}

	length, err := q.client.XLen(ctx, stream).Result()
	if err != nil {
		t.Fatalf("XLen failed: %v", err)
	}
	if length != 3 {
		t.Errorf("Expected 3 entries, got %d", length)
	}
}
