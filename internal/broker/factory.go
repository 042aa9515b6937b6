package broker

import (
	"fmt"

	"bikeman/internal/config"
	"bikeman/internal/logger"
)

// Open creates the producer and consumer of the configured broker, both labelled with
// serviceName in logs and metrics.
func Open(cfg config.BrokerConfig, log logger.Logger, serviceName string) (Producer, Consumer, error) {
	switch cfg.Type {
	case config.BrokerTypeKafka:
		producer := NewKafkaProducer(cfg.Kafka, log)
		consumer := NewKafkaConsumer(cfg.Kafka, log)
		if serviceName != "" {
			producer.SetServiceName(serviceName)
			consumer.SetServiceName(serviceName)
		}
		return producer, consumer, nil
	default:
		return nil, nil, fmt.Errorf("unsupported broker type %q", cfg.Type)
	}
}
