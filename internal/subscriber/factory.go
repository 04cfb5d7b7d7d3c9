package subscriber

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/soltixdb/brutlag/internal/config"
	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/utils"
)

// NewSubscriber creates a Subscriber for the configured queue type. The
// "none" type has nothing to consume from and is rejected.
func NewSubscriber(cfg config.QueueConfig, subCfg Config, logger *logging.Logger) (Subscriber, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	subCfg = subCfg.withDefaults()
	if subCfg.ConsumerID == "" {
		subCfg.ConsumerID = consumerID()
	}

	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	switch queueType {
	case utils.QueueTypeNATS:
		return NewNATSSubscriber(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
		}, subCfg, logger)

	case utils.QueueTypeRedis:
		return NewRedisSubscriber(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		}, subCfg, logger)

	case utils.QueueTypeKafka:
		brokers := cfg.KafkaBrokers
		if len(brokers) == 0 && cfg.URL != "" {
			brokers = strings.Split(cfg.URL, ",")
		}
		return NewKafkaSubscriber(brokers, subCfg, logger)

	case utils.QueueTypeMemory:
		return NewMemorySubscriber(logger), nil

	case "", utils.QueueTypeNone:
		return nil, fmt.Errorf("queue type %q has nothing to subscribe to", cfg.Type)

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}
}

// consumerID names this process: hostname plus a short random suffix so
// that two workers on one host stay distinct
func consumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "brutlag"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
