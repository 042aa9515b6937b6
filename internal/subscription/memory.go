package subscription

import (
	"context"
	"sync"
	"time"

	"bikeman/internal/ixsi"
	"bikeman/internal/logger"
	"bikeman/pkg/metrics"
)

// MemoryStore keeps subscriptions in process. A single mutex guards the whole table, which
// makes every call atomic with respect to every other.
type MemoryStore struct {
	mu   sync.Mutex
	subs map[string]map[ixsi.BookingTargetID]*time.Time
	now  func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		subs: make(map[string]map[ixsi.BookingTargetID]*time.Time),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Name() string {
	return "memory"
}

func (s *MemoryStore) Subscribe(_ context.Context, systemID string, targets []ixsi.BookingTargetID, ttl *time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := expiryFrom(s.now(), ttl)
	bySystem, ok := s.subs[systemID]
	if !ok {
		bySystem = make(map[ixsi.BookingTargetID]*time.Time, len(targets))
		s.subs[systemID] = bySystem
	}
	for _, t := range targets {
		bySystem[t] = expiresAt
	}
	return nil
}

func (s *MemoryStore) Unsubscribe(_ context.Context, systemID string, targets []ixsi.BookingTargetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bySystem, ok := s.subs[systemID]
	if !ok {
		return nil
	}
	for _, t := range targets {
		delete(bySystem, t)
	}
	if len(bySystem) == 0 {
		delete(s.subs, systemID)
	}
	return nil
}

func (s *MemoryStore) Active(_ context.Context, systemID string) ([]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	bySystem := s.subs[systemID]
	out := make([]Subscription, 0, len(bySystem))
	expired := 0
	for target, expiresAt := range bySystem {
		sub := Subscription{SystemID: systemID, Target: target, ExpiresAt: expiresAt}
		if !sub.activeAt(now) {
			delete(bySystem, target)
			expired++
			continue
		}
		out = append(out, sub)
	}
	if bySystem != nil && len(bySystem) == 0 {
		delete(s.subs, systemID)
	}
	if expired > 0 {
		metrics.AddSubscriptionsExpired(expired)
	}

	sortByTarget(out)
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, bySystem := range s.subs {
		n += len(bySystem)
	}
	return n, nil
}

// Sweep drops every expired subscription and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for systemID, bySystem := range s.subs {
		for target, expiresAt := range bySystem {
			if expiresAt != nil && !expiresAt.After(now) {
				delete(bySystem, target)
				dropped++
			}
		}
		if len(bySystem) == 0 {
			delete(s.subs, systemID)
		}
	}
	if dropped > 0 {
		metrics.AddSubscriptionsExpired(dropped)
	}
	return dropped
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration, log logger.Logger) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Debugw("Swept expired subscriptions", "count", n)
				}
				if total, err := s.Count(ctx); err == nil {
					metrics.SetSubscriptionsActive(total)
				}
			}
		}
	}()
}
