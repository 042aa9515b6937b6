package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EnvelopesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ixsi_envelopes_total",
			Help: "Total number of envelopes dispatched (count)",
		},
		[]string{"transport", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ixsi_requests_total",
			Help: "Total number of requests processed, by variant and outcome code (count)",
		},
		[]string{"tag", "family", "outcome"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ixsi_request_duration_ms",
			Help:    "Processing duration of a single request in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"tag"},
	)

	EnvelopeBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ixsi_envelope_batch_size",
			Help:    "Number of requests carried by an inbound envelope (count)",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	HandlerPanicsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ixsi_handler_panics_total",
			Help: "Total number of panics recovered from request processors (count)",
		},
		[]string{"tag"},
	)

	AuthenticationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ixsi_authentications_total",
			Help: "Total number of user authentication attempts (count)",
		},
		[]string{"mode", "result"},
	)

	SubscriptionOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_operations_total",
			Help: "Total number of subscription registry operations (count)",
		},
		[]string{"store", "operation", "status"},
	)

	SubscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscriptions_active",
			Help: "Number of subscriptions held by the registry, including not yet purged expired ones (count)",
		},
	)

	SubscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions purged after their expiry (count)",
		},
	)

	AvailabilityQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_queries_total",
			Help: "Total number of availability source queries (count)",
		},
		[]string{"source", "operation", "status"},
	)

	AvailabilityQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "availability_query_duration_ms",
			Help:    "Duration of availability source queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"source", "operation"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag (difference between latest offset and committed offset) (count)",
		},
		[]string{"service", "topic", "partition"},
	)

	KafkaReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_read_duration_ms",
			Help:    "Duration of reading messages from Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

func RegisterDispatchMetrics() {
	prometheus.MustRegister(EnvelopesTotal)
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(EnvelopeBatchSize)
	prometheus.MustRegister(HandlerPanicsTotal)
	prometheus.MustRegister(AuthenticationsTotal)
}

func RegisterSubscriptionMetrics() {
	prometheus.MustRegister(SubscriptionOperationsTotal)
	prometheus.MustRegister(SubscriptionsActive)
	prometheus.MustRegister(SubscriptionsExpiredTotal)
}

func RegisterAvailabilityMetrics() {
	prometheus.MustRegister(AvailabilityQueriesTotal)
	prometheus.MustRegister(AvailabilityQueryDuration)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaConsumerLag)
	prometheus.MustRegister(KafkaReadDuration)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterGatewayMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func IncEnvelope(transport, status string) {
	EnvelopesTotal.WithLabelValues(transport, status).Inc()
}

func IncRequest(tag, family, outcome string) {
	RequestsTotal.WithLabelValues(tag, family, outcome).Inc()
}

func ObserveRequestDuration(tag string, duration time.Duration) {
	RequestDuration.WithLabelValues(tag).Observe(float64(duration.Milliseconds()))
}

func ObserveBatchSize(size int) {
	EnvelopeBatchSize.Observe(float64(size))
}

func IncHandlerPanic(tag string) {
	HandlerPanicsTotal.WithLabelValues(tag).Inc()
}

func IncAuthentication(mode, result string) {
	AuthenticationsTotal.WithLabelValues(mode, result).Inc()
}

func IncSubscriptionOperation(store, operation, status string) {
	SubscriptionOperationsTotal.WithLabelValues(store, operation, status).Inc()
}

func SetSubscriptionsActive(count int) {
	SubscriptionsActive.Set(float64(count))
}

func AddSubscriptionsExpired(count int) {
	SubscriptionsExpiredTotal.Add(float64(count))
}

func IncAvailabilityQuery(source, operation, status string) {
	AvailabilityQueriesTotal.WithLabelValues(source, operation, status).Inc()
}

func ObserveAvailabilityQueryDuration(source, operation string, duration time.Duration) {
	AvailabilityQueryDuration.WithLabelValues(source, operation).Observe(float64(duration.Milliseconds()))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	KafkaConsumerLag.WithLabelValues(service, topic, fmt.Sprintf("%d", partition)).Set(float64(lag))
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	KafkaReadDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}
