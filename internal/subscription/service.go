package subscription

import (
	"context"
	"fmt"
	"math"
	"time"

	"bikeman/internal/availability"
	"bikeman/internal/ixsi"
	"bikeman/internal/logger"
	"bikeman/pkg/metrics"
)

// maxHorizonMinutes is the largest event horizon whose lifetime fits in a time.Duration.
const maxHorizonMinutes = math.MaxInt64 / int64(time.Minute)

// Snapshot is the answer to a catch-up pull. It always holds the complete subscribed set.
type Snapshot struct {
	Records        []ixsi.AvailabilityRecord
	Last           bool
	MessageBlockID string
}

type Service struct {
	store  Store
	source availability.Source
	logger logger.Logger
}

func NewService(store Store, source availability.Source, log logger.Logger) *Service {
	return &Service{store: store, source: source, logger: log}
}

// Subscribe subscribes systemID to targets. ttlMinutes bounds the lifetime and must be
// positive when given.
func (s *Service) Subscribe(ctx context.Context, systemID string, targets []ixsi.BookingTargetID, ttlMinutes *int) error {
	var ttl *time.Duration
	if ttlMinutes != nil {
		if *ttlMinutes <= 0 {
			return ixsi.InvalidRequest("Invalid event horizon",
				fmt.Sprintf("event horizon must be a positive number of minutes, got %d", *ttlMinutes))
		}
		if int64(*ttlMinutes) > maxHorizonMinutes {
			return ixsi.InvalidRequest("Invalid event horizon",
				fmt.Sprintf("event horizon must not exceed %d minutes, got %d", maxHorizonMinutes, *ttlMinutes))
		}
		d := time.Duration(*ttlMinutes) * time.Minute
		ttl = &d
	}

	err := s.store.Subscribe(ctx, systemID, targets, ttl)
	s.record("subscribe", err)
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", systemID, err)
	}

	s.logger.DebugwCtx(ctx, "Subscribed to booking targets", "count", len(targets), "ttl_minutes", ttlMinutes)
	return nil
}

func (s *Service) Unsubscribe(ctx context.Context, systemID string, targets []ixsi.BookingTargetID) error {
	err := s.store.Unsubscribe(ctx, systemID, targets)
	s.record("unsubscribe", err)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe %s: %w", systemID, err)
	}

	s.logger.DebugwCtx(ctx, "Unsubscribed from booking targets", "count", len(targets))
	return nil
}

// Subscriptions returns the unexpired subscriptions of systemID.
func (s *Service) Subscriptions(ctx context.Context, systemID string) ([]Subscription, error) {
	subs, err := s.store.Active(ctx, systemID)
	s.record("active", err)
	if err != nil {
		return nil, fmt.Errorf("failed to read subscriptions of %s: %w", systemID, err)
	}
	return subs, nil
}

// ActiveTargets returns the booking targets systemID is currently subscribed to.
func (s *Service) ActiveTargets(ctx context.Context, systemID string) ([]ixsi.BookingTargetID, error) {
	subs, err := s.Subscriptions(ctx, systemID)
	if err != nil {
		return nil, err
	}
	targets := make([]ixsi.BookingTargetID, len(subs))
	for i, sub := range subs {
		targets[i] = sub.Target
	}
	return targets, nil
}

// FullSnapshot returns the current availability of every target systemID is subscribed to,
// in a single block.
func (s *Service) FullSnapshot(ctx context.Context, systemID string) (Snapshot, error) {
	targets, err := s.ActiveTargets(ctx, systemID)
	if err != nil {
		return Snapshot{}, err
	}
	if len(targets) == 0 {
		return Snapshot{}, ixsi.InvalidRequest("No subscriptions", "the requesting system has no active subscriptions")
	}

	records, err := s.source.Snapshot(ctx, targets)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch availability snapshot: %w", err)
	}

	return Snapshot{
		Records:        records,
		Last:           true,
		MessageBlockID: ixsi.SingleMessageBlockID,
	}, nil
}

// Count returns the number of stored subscriptions and refreshes the gauge.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, err
	}
	metrics.SetSubscriptionsActive(n)
	return n, nil
}

func (s *Service) record(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncSubscriptionOperation(s.store.Name(), operation, status)
}
