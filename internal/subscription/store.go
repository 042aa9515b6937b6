package subscription

import (
	"context"
	"sort"
	"time"

	"bikeman/internal/ixsi"
)

// Subscription is the interest of one partner system in one booking target.
// A nil ExpiresAt means the subscription lasts until it is removed.
type Subscription struct {
	SystemID  string               `json:"systemId"`
	Target    ixsi.BookingTargetID `json:"bookingTargetId"`
	ExpiresAt *time.Time           `json:"expiresAt,omitempty"`
}

func (s Subscription) activeAt(now time.Time) bool {
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}

// Store keeps subscriptions keyed by (system, target). Implementations must be safe for
// concurrent use, and a Subscribe or Unsubscribe call must become visible to Active as a
// whole.
type Store interface {
	Name() string
	// Subscribe upserts one subscription per target. A nil ttl never expires.
	Subscribe(ctx context.Context, systemID string, targets []ixsi.BookingTargetID, ttl *time.Duration) error
	// Unsubscribe removes the given subscriptions. Absent ones are ignored.
	Unsubscribe(ctx context.Context, systemID string, targets []ixsi.BookingTargetID) error
	// Active returns the unexpired subscriptions of systemID sorted by target.
	Active(ctx context.Context, systemID string) ([]Subscription, error)
	// Count returns the number of stored subscriptions over all systems.
	Count(ctx context.Context) (int, error)
}

func sortByTarget(subs []Subscription) {
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].Target.String() < subs[j].Target.String()
	})
}

func expiryFrom(now time.Time, ttl *time.Duration) *time.Time {
	if ttl == nil {
		return nil
	}
	at := now.Add(*ttl)
	return &at
}
