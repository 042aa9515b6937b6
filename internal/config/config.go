package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Dispatch       DispatchConfig
	Subscription   SubscriptionConfig
	Availability   AvailabilityConfig
	Trust          TrustConfig
	IXSI           IXSIConfig `mapstructure:"ixsi"`
	Gateway        GatewayConfig
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers     []string    `mapstructure:"brokers"`
	GroupID     string      `mapstructure:"group_id"`
	InputTopic  string      `mapstructure:"input_topic"`
	OutputTopic string      `mapstructure:"output_topic"`
	DLQTopic    string      `mapstructure:"dlq_topic"`
	Retry       RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DispatchConfig controls how the requests of one envelope are scheduled.
type DispatchConfig struct {
	Parallel       bool          `mapstructure:"parallel"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type SubscriptionConfig struct {
	Store         string        `mapstructure:"store"` // "memory" or "redis"
	KeyPrefix     string        `mapstructure:"key_prefix"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type AvailabilityConfig struct {
	Source     string        `mapstructure:"source"` // "postgres", "mongodb" or "memory"
	Timeout    time.Duration `mapstructure:"timeout"`
	Collection string        `mapstructure:"collection"`
}

type TrustConfig struct {
	SystemSource string   `mapstructure:"system_source"` // "config" or "postgres"
	Systems      []string `mapstructure:"systems"`
}

type IXSIConfig struct {
	ProviderID string `mapstructure:"provider_id"`
}

type GatewayConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	// OpsToken guards the operator routes. They are not mounted when it is empty.
	OpsToken string `mapstructure:"ops_token"`
}

type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RPS             float64       `mapstructure:"rps"`
	Burst           int           `mapstructure:"burst"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxAge          time.Duration `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}
