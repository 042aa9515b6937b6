package broker

import (
	"context"
)

// Message is one raw record moved through the broker.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

type Producer interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, msg Message) error

const (
	HeaderDLQReason      = "dlq_reason"
	HeaderDLQError       = "dlq_error"
	HeaderDLQSourceTopic = "dlq_source_topic"
	HeaderDLQTimestamp   = "dlq_timestamp"
)
