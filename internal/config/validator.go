package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	BrokerTypeKafka = "kafka"
	BrokerTypeNone  = "none"

	SubscriptionStoreMemory = "memory"
	SubscriptionStoreRedis  = "redis"

	AvailabilitySourcePostgres = "postgres"
	AvailabilitySourceMongoDB  = "mongodb"
	AvailabilitySourceMemory   = "memory"

	SystemSourceConfig   = "config"
	SystemSourcePostgres = "postgres"
)

var sslModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// validator collects every violation instead of stopping at the first.
type validator struct {
	errs []error
}

func (v *validator) check(ok bool, field, format string, args ...interface{}) {
	if !ok {
		v.errs = append(v.errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
}

func (v *validator) port(field string, port int) {
	v.check(port >= 1 && port <= 65535, field, "port must be between 1 and 65535, got %d", port)
}

// ValidateStatic checks cfg without touching the network. All violations are reported
// together.
func ValidateStatic(cfg *Config) error {
	v := &validator{}

	v.server(cfg.Server)
	v.broker(cfg.Broker)
	v.database(cfg.Database)
	v.dispatch(cfg.Dispatch)
	v.subscription(cfg.Subscription, cfg.Database)
	v.availability(cfg.Availability, cfg.Database)
	v.trust(cfg.Trust, cfg.Database)
	v.check(cfg.IXSI.ProviderID != "", "ixsi.provider_id", "provider id is required")

	return errors.Join(v.errs...)
}

func (v *validator) server(cfg ServerConfig) {
	v.port("server.port", cfg.Port)
	v.check(cfg.ReadTimeout > 0, "server.read_timeout", "read timeout must be positive")
	v.check(cfg.WriteTimeout > 0, "server.write_timeout", "write timeout must be positive")
}

func (v *validator) broker(cfg BrokerConfig) {
	switch cfg.Type {
	case BrokerTypeNone:
	case BrokerTypeKafka:
		v.kafka(cfg.Kafka)
	case "":
		v.check(false, "broker.type", "broker type is required")
	default:
		v.check(false, "broker.type", "unknown broker type: %s (supported: kafka, none)", cfg.Type)
	}
}

func (v *validator) kafka(cfg KafkaConfig) {
	v.check(len(cfg.Brokers) > 0, "broker.kafka.brokers", "at least one Kafka broker is required")
	for i, addr := range cfg.Brokers {
		v.check(addr != "", fmt.Sprintf("broker.kafka.brokers[%d]", i), "broker address cannot be empty")
	}
	v.check(cfg.GroupID != "", "broker.kafka.group_id", "consumer group id is required")
	v.check(cfg.InputTopic != "", "broker.kafka.input_topic", "input topic is required")
	v.check(cfg.OutputTopic != "", "broker.kafka.output_topic", "output topic is required")

	r := cfg.Retry
	v.check(r.MaxAttempts >= 0, "broker.kafka.retry.max_attempts", "max_attempts must be non-negative")
	v.check(r.InitialInterval >= 0, "broker.kafka.retry.initial_interval", "initial_interval must be non-negative")
	v.check(r.MaxInterval >= 0, "broker.kafka.retry.max_interval", "max_interval must be non-negative")
	v.check(r.MaxInterval == 0 || r.MaxInterval >= r.InitialInterval,
		"broker.kafka.retry.max_interval", "max_interval must not be below initial_interval")
	v.check(r.Multiplier > 0, "broker.kafka.retry.multiplier", "multiplier must be positive")
}

func (v *validator) database(cfg DatabaseConfig) {
	if pg := cfg.Postgres; pg.Host != "" || pg.Port > 0 {
		v.check(pg.Host != "", "database.postgres.host", "host is required")
		v.port("database.postgres.port", pg.Port)
		v.check(pg.User != "", "database.postgres.user", "user is required")
		v.check(pg.DBName != "", "database.postgres.dbname", "database name is required")
		v.check(pg.SSLMode == "" || sslModes[pg.SSLMode],
			"database.postgres.sslmode", "invalid SSL mode: %s", pg.SSLMode)
	}

	if rd := cfg.Redis; rd.Host != "" || rd.Port > 0 {
		v.check(rd.Host != "", "database.redis.host", "host is required")
		v.port("database.redis.port", rd.Port)
	}

	if mg := cfg.MongoDB; mg.URI != "" {
		v.check(strings.HasPrefix(mg.URI, "mongodb://") || strings.HasPrefix(mg.URI, "mongodb+srv://"),
			"database.mongodb.uri", "URI must start with mongodb:// or mongodb+srv://")
		v.check(mg.Database != "", "database.mongodb.database", "database name is required")
	}
}

func (v *validator) dispatch(cfg DispatchConfig) {
	v.check(!cfg.Parallel || cfg.MaxConcurrency >= 1,
		"dispatch.max_concurrency", "max_concurrency must be at least 1 when parallel dispatch is enabled")
	v.check(cfg.RequestTimeout >= 0, "dispatch.request_timeout", "request timeout must be non-negative")
}

func (v *validator) subscription(cfg SubscriptionConfig, db DatabaseConfig) {
	switch cfg.Store {
	case SubscriptionStoreMemory:
	case SubscriptionStoreRedis:
		v.check(db.Redis.Host != "", "subscription.store", "redis store requires database.redis to be configured")
		v.check(cfg.KeyPrefix != "", "subscription.key_prefix", "key prefix is required for the redis store")
	default:
		v.check(false, "subscription.store", "invalid store: %s (valid: memory, redis)", cfg.Store)
	}
	v.check(cfg.SweepInterval >= 0, "subscription.sweep_interval", "sweep interval must be non-negative")
}

func (v *validator) availability(cfg AvailabilityConfig, db DatabaseConfig) {
	switch cfg.Source {
	case AvailabilitySourceMemory:
	case AvailabilitySourcePostgres:
		v.check(db.Postgres.Host != "", "availability.source", "postgres source requires database.postgres to be configured")
	case AvailabilitySourceMongoDB:
		v.check(db.MongoDB.URI != "", "availability.source", "mongodb source requires database.mongodb to be configured")
		v.check(cfg.Collection != "", "availability.collection", "collection is required for the mongodb source")
	default:
		v.check(false, "availability.source", "invalid source: %s (valid: postgres, mongodb, memory)", cfg.Source)
	}
	v.check(cfg.Timeout > 0, "availability.timeout", "timeout must be positive")
}

func (v *validator) trust(cfg TrustConfig, db DatabaseConfig) {
	switch cfg.SystemSource {
	case SystemSourceConfig:
		v.check(len(cfg.Systems) > 0, "trust.systems", "at least one partner system is required")
	case SystemSourcePostgres:
		v.check(db.Postgres.Host != "", "trust.system_source", "postgres system source requires database.postgres to be configured")
	default:
		v.check(false, "trust.system_source", "invalid system source: %s (valid: config, postgres)", cfg.SystemSource)
	}
}
