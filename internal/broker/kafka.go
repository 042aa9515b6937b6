package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"bikeman/internal/config"
	"bikeman/internal/constants"
	"bikeman/internal/logger"
	"bikeman/pkg/errors"
	"bikeman/pkg/logging"
	"bikeman/pkg/metrics"
	"bikeman/pkg/retry"
	"bikeman/pkg/tracing"
)

type KafkaProducer struct {
	writer      *kafka.Writer
	logger      logger.Logger
	serviceName string
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
	return &KafkaProducer{writer: w, logger: log, serviceName: "unknown"}
}

func (p *KafkaProducer) SetServiceName(name string) {
	p.serviceName = name
}

// Publish writes msg keyed by msg.Key, so all responses of one transaction land on the
// same partition.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg Message) error {
	carried := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		carried[k] = v
	}
	carried = tracing.InjectHeaders(ctx, carried)

	headers := make([]kafka.Header, 0, len(carried))
	for k, v := range carried {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     []byte(msg.Key),
			Value:   msg.Value,
			Headers: headers,
			Time:    time.Now(),
		},
	)
	metrics.ObserveKafkaWriteDuration(p.serviceName, topic, time.Since(start))

	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten(p.serviceName, topic)
	metrics.ObserveKafkaMessageSize(p.serviceName, topic, "out", len(msg.Value))
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	reader      *kafka.Reader
	logger      logger.Logger
	dlqProducer Producer
	policy      retry.Policy
	serviceName string
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	consumer := &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		policy:      retry.PolicyFromConfig(cfg.Retry),
		serviceName: "unknown",
	}

	if cfg.DLQTopic != "" {
		consumer.dlqProducer = NewKafkaProducer(cfg, log)
	}

	return consumer
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
	if p, ok := c.dlqProducer.(*KafkaProducer); ok {
		p.SetServiceName(name)
	}
}

// Consume reads topic until ctx is done. Messages of a partition are handled one after
// another; a message is committed once it was handled or moved to the DLQ.
func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
		"service_name", c.serviceName,
	)

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		consumeCtx := logging.WithServiceName(ctx, c.serviceName)
		c.logger.InfowCtx(consumeCtx, "Started consuming",
			"topic", topic,
		)

		for {
			start := time.Now()
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.InfowCtx(consumeCtx, "Stopped consuming",
						"topic", topic,
						"reason", "context canceled",
					)
					return
				}
				c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
					"error", err,
					"topic", topic,
				)
				time.Sleep(time.Second)
				continue
			}

			metrics.ObserveKafkaReadDuration(c.serviceName, topic, time.Since(start))
			metrics.IncKafkaMessagesRead(c.serviceName, topic)
			metrics.ObserveKafkaMessageSize(c.serviceName, topic, "in", len(m.Value))
			metrics.SetKafkaConsumerLag(c.serviceName, topic, m.Partition, m.HighWaterMark-m.Offset-1)

			c.handleMessage(consumeCtx, m, handler, topic)
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, m kafka.Message, handler HandlerFunc, topic string) {
	msg := fromKafka(m)

	msgCtx, span := tracing.StartConsumerSpan(ctx, topic, msg.Headers)
	defer span.End()
	if traceID := tracing.TraceID(msgCtx); traceID != "" {
		msgCtx = logging.WithTraceID(msgCtx, traceID)
	}

	if err := c.processMessageWithRetry(msgCtx, msg, handler, topic); err != nil {
		tracing.RecordError(span, err)
		c.logger.ErrorwCtx(msgCtx, "Failed to process message",
			"error", err,
			"topic", topic,
		)
		if c.dlqProducer != nil {
			if dlqErr := c.sendToDLQ(msgCtx, msg, err, topic); dlqErr != nil {
				c.logger.ErrorwCtx(msgCtx, "Failed to send message to DLQ",
					"error", dlqErr,
					"topic", topic,
				)
			}
		} else {
			c.logger.WarnwCtx(msgCtx, "No DLQ configured, committing message to avoid blocking",
				"topic", topic,
			)
		}
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
			"error", err,
			"topic", topic,
		)
	}
}

func fromKafka(m kafka.Message) Message {
	msg := Message{
		Key:     string(m.Key),
		Value:   m.Value,
		Headers: make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

func (c *KafkaConsumer) Close() error {
	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	if c.dlqProducer != nil {
		if closeErr := c.dlqProducer.Close(); closeErr != nil {
			if err == nil {
				err = closeErr
			}
		}
	}
	c.wg.Wait()
	return err
}

func (c *KafkaConsumer) processMessageWithRetry(ctx context.Context, msg Message, handler HandlerFunc, topic string) error {
	return retry.Do(ctx, c.policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
					"error", err,
					"topic", topic,
				)
			}
		}()
		return handler(ctx, msg)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, topic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", c.policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}

func (c *KafkaConsumer) sendToDLQ(ctx context.Context, msg Message, originalErr error, sourceTopic string) error {
	reason := dlqReason(originalErr)

	headers := make(map[string]string, len(msg.Headers)+4)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderDLQReason] = reason
	headers[HeaderDLQError] = originalErr.Error()
	headers[HeaderDLQSourceTopic] = sourceTopic
	headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339Nano)

	err := c.dlqProducer.Publish(ctx, c.cfg.DLQTopic, Message{Key: msg.Key, Value: msg.Value, Headers: headers})
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, sourceTopic, reason).Inc()
	c.logger.InfowCtx(ctx, "Message sent to DLQ",
		"source_topic", sourceTopic,
		"dlq_topic", c.cfg.DLQTopic,
		"reason", reason,
	)

	return nil
}

func dlqReason(err error) string {
	switch {
	case errors.IsConfigurationFault(err):
		return "configuration_fault"
	case errors.IsValidation(err):
		return "invalid_envelope"
	default:
		return "max_retries_exceeded"
	}
}
