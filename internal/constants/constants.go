package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	DefaultInputTopic  = "ixsi_requests"
	DefaultOutputTopic = "ixsi_responses"
)

const (
	DefaultMongoDBName            = "bikeman"
	DefaultAvailabilityCollection = "booking_targets"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultSubscriptionKeyPrefix = "ixsi:subscriptions:"
	DefaultSweepInterval         = time.Minute
)

const (
	DefaultAvailabilityTimeout = 5 * time.Second
	DefaultRequestTimeout      = 10 * time.Second
)

const (
	MaxEnvelopeBytes = 1 << 20
	MaxBatchSize     = 500
)
