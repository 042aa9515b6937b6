package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"bikeman/internal/ixsi"
)

// Target is one booking target held by a MemorySource.
type Target struct {
	Info      ixsi.BookingTargetInfo
	State     ixsi.AvailabilityRecord
	UpdatedAt time.Time
}

// MemorySource is an in-process Source used for local runs and tests.
type MemorySource struct {
	mu      sync.RWMutex
	targets map[ixsi.BookingTargetID]Target
}

func NewMemorySource(targets ...Target) *MemorySource {
	s := &MemorySource{targets: make(map[ixsi.BookingTargetID]Target, len(targets))}
	for _, t := range targets {
		s.Put(t)
	}
	return s
}

// Put inserts or replaces a target, keyed by its state's target id.
func (s *MemorySource) Put(t Target) {
	t.Info.Target = t.State.Target
	s.mu.Lock()
	s.targets[t.State.Target] = t
	s.mu.Unlock()
}

func (s *MemorySource) Snapshot(_ context.Context, targets []ixsi.BookingTargetID) ([]ixsi.AvailabilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[ixsi.BookingTargetID]ixsi.AvailabilityRecord, len(targets))
	for _, id := range targets {
		if t, ok := s.targets[id]; ok {
			found[id] = t.State
		}
	}
	return orderBy(targets, found), nil
}

func (s *MemorySource) ChangedProviders(_ context.Context, sinceMillis int64) (bool, error) {
	since := time.UnixMilli(sinceMillis)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.targets {
		if t.UpdatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemorySource) Targets(_ context.Context, providerIDs []string) ([]ixsi.BookingTargetInfo, error) {
	wanted := make(map[string]bool, len(providerIDs))
	for _, p := range providerIDs {
		wanted[p] = true
	}

	s.mu.RLock()
	out := make([]ixsi.BookingTargetInfo, 0, len(s.targets))
	for id, t := range s.targets {
		if len(wanted) == 0 || wanted[id.ProviderID] {
			out = append(out, t.Info)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Target.String() < out[j].Target.String() })
	return out, nil
}
