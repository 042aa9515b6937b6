package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configFile, overlays environment variables and validates the result. Every
// key is also readable from the upper-cased, underscore-separated environment variable,
// so database.postgres.host is DATABASE_POSTGRES_HOST.
func Load(configFile string) (*Config, error) {
	viper.Reset()
	setDefaults()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyListOverrides(&cfg)
	normalize(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// envKeys are the keys a deployment may set from the environment alone, without a value
// in the config file.
var envKeys = []string{
	"server.port",
	"server.read_timeout",
	"server.write_timeout",

	"database.run_migrations",
	"database.postgres.host",
	"database.postgres.port",
	"database.postgres.user",
	"database.postgres.password",
	"database.postgres.dbname",
	"database.postgres.sslmode",
	"database.redis.host",
	"database.redis.port",
	"database.redis.password",
	"database.redis.db",
	"database.mongodb.uri",
	"database.mongodb.database",

	"broker.type",
	"broker.kafka.group_id",
	"broker.kafka.input_topic",
	"broker.kafka.output_topic",
	"broker.kafka.dlq_topic",

	"dispatch.parallel",
	"dispatch.max_concurrency",
	"dispatch.request_timeout",
	"subscription.store",
	"subscription.key_prefix",
	"availability.source",
	"availability.timeout",
	"trust.system_source",
	"ixsi.provider_id",
	"gateway.ops_token",

	"logging.level",
	"logging.format",
	"tracing.enabled",
	"tracing.service_name",
	"tracing.otlp.endpoint",
	"tracing.otlp.insecure",
}

// applyListOverrides reads comma-separated lists, which viper does not split when they
// come from the environment.
func applyListOverrides(cfg *Config) {
	if brokers := splitList(os.Getenv("BROKER_KAFKA_BROKERS")); len(brokers) > 0 {
		cfg.Broker.Kafka.Brokers = brokers
	}
	if systems := splitList(os.Getenv("TRUST_SYSTEMS")); len(systems) > 0 {
		cfg.Trust.Systems = systems
	}
}

// normalize lowercases the enumerated settings so the rest of the service can compare
// them against the declared constants directly.
func normalize(cfg *Config) {
	for _, s := range []*string{
		&cfg.Broker.Type,
		&cfg.Subscription.Store,
		&cfg.Availability.Source,
		&cfg.Trust.SystemSource,
		&cfg.Database.Postgres.SSLMode,
	} {
		*s = strings.ToLower(strings.TrimSpace(*s))
	}
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")

	viper.SetDefault("broker.type", BrokerTypeKafka)
	viper.SetDefault("broker.kafka.retry.max_attempts", 3)
	viper.SetDefault("broker.kafka.retry.initial_interval", "100ms")
	viper.SetDefault("broker.kafka.retry.max_interval", "5s")
	viper.SetDefault("broker.kafka.retry.multiplier", 2.0)

	viper.SetDefault("dispatch.max_concurrency", 4)
	viper.SetDefault("dispatch.request_timeout", "10s")

	viper.SetDefault("subscription.store", SubscriptionStoreMemory)
	viper.SetDefault("subscription.key_prefix", "ixsi:subscriptions:")
	viper.SetDefault("subscription.sweep_interval", "1m")

	viper.SetDefault("availability.source", AvailabilitySourcePostgres)
	viper.SetDefault("availability.timeout", "5s")
	viper.SetDefault("availability.collection", "booking_targets")

	viper.SetDefault("trust.system_source", SystemSourceConfig)

	viper.SetDefault("logging.level", "info")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
