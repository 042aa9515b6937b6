package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"bikeman/internal/broker"
	"bikeman/internal/config"
	"bikeman/internal/logger"
)

// Base holds what every service process owns regardless of its transports: configuration,
// the logger and, when a broker is configured, the producer and consumer.
type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
	Consumer broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitBroker creates the producer and consumer for the configured broker. It does nothing
// when broker.type is "none".
func (b *Base) InitBroker(serviceName string) error {
	if b.Config.Broker.Type == config.BrokerTypeNone {
		b.Logger.Info("No broker configured, envelopes are accepted over HTTP only")
		return nil
	}

	producer, consumer, err := broker.Open(b.Config.Broker, b.Logger, serviceName)
	if err != nil {
		return fmt.Errorf("failed to open broker: %w", err)
	}

	b.Producer = producer
	b.Consumer = consumer
	b.Logger.Infow("Broker initialized", "type", b.Config.Broker.Type, "service", serviceName)
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

// Shutdown closes the consumer, then the producer, then runs additionalShutdown.
func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.InfowCtx(ctx, "Shutting down")

	errs := b.ShutdownBroker()
	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown errors: %w", err)
	}

	b.Logger.InfowCtx(ctx, "Shutdown complete")
	return nil
}
