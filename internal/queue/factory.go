package queue

import (
	"fmt"
	"strings"

	"github.com/soltixdb/brutlag/internal/config"
	"github.com/soltixdb/brutlag/internal/utils"
)

// NewPublisher creates a Publisher based on configuration.
// An empty type or "none" disables publishing.
func NewPublisher(cfg config.QueueConfig) (Publisher, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))

	switch queueType {
	case "", utils.QueueTypeNone:
		return NopPublisher{}, nil

	case utils.QueueTypeNATS:
		return newNATSPublisher(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
		})

	case utils.QueueTypeRedis:
		return newRedisPublisher(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		})

	case utils.QueueTypeKafka:
		brokers := cfg.KafkaBrokers
		if len(brokers) == 0 && cfg.URL != "" {
			brokers = strings.Split(cfg.URL, ",")
		}
		return newKafkaPublisher(KafkaConfig{Brokers: brokers})

	case utils.QueueTypeMemory:
		return NewMemoryPublisher(), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: none, nats, redis, kafka, memory)", queueType)
	}
}
