package subscription

import (
	"context"
	"time"

	"bikeman/internal/config"
	"bikeman/internal/ixsi"
	"bikeman/pkg/circuitbreaker"
)

// CircuitBreakerStore guards a remote Store with a circuit breaker.
type CircuitBreakerStore struct {
	store Store
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerStore(store Store, cfg config.CircuitBreakerConfig) *CircuitBreakerStore {
	s := &CircuitBreakerStore{store: store}
	if cbConfig := circuitbreaker.FromConfig("subscriptions-"+store.Name(), cfg); cbConfig != nil {
		s.cb = circuitbreaker.NewWrapper(*cbConfig)
	}
	return s
}

func (s *CircuitBreakerStore) Name() string {
	return s.store.Name()
}

func (s *CircuitBreakerStore) Subscribe(ctx context.Context, systemID string, targets []ixsi.BookingTargetID, ttl *time.Duration) error {
	_, err := circuitbreaker.Run(ctx, s.cb, func() (struct{}, error) {
		return struct{}{}, s.store.Subscribe(ctx, systemID, targets, ttl)
	})
	return err
}

func (s *CircuitBreakerStore) Unsubscribe(ctx context.Context, systemID string, targets []ixsi.BookingTargetID) error {
	_, err := circuitbreaker.Run(ctx, s.cb, func() (struct{}, error) {
		return struct{}{}, s.store.Unsubscribe(ctx, systemID, targets)
	})
	return err
}

func (s *CircuitBreakerStore) Active(ctx context.Context, systemID string) ([]Subscription, error) {
	return circuitbreaker.Run(ctx, s.cb, func() ([]Subscription, error) {
		return s.store.Active(ctx, systemID)
	})
}

func (s *CircuitBreakerStore) Count(ctx context.Context) (int, error) {
	return circuitbreaker.Run(ctx, s.cb, func() (int, error) {
		return s.store.Count(ctx)
	})
}

func (s *CircuitBreakerStore) State() string {
	if s.cb == nil {
		return "disabled"
	}
	return s.cb.State().String()
}
