package availability

import (
	"context"

	"bikeman/internal/ixsi"
)

// Source is the external collaborator holding the current state of booking targets.
type Source interface {
	// Snapshot returns the current availability of the given targets. Unknown targets are
	// left out of the result.
	Snapshot(ctx context.Context, targets []ixsi.BookingTargetID) ([]ixsi.AvailabilityRecord, error)
	// ChangedProviders reports whether any booking target changed after sinceMillis.
	ChangedProviders(ctx context.Context, sinceMillis int64) (bool, error)
	// Targets lists the static description of the booking targets of the given providers,
	// or of all providers when providerIDs is empty.
	Targets(ctx context.Context, providerIDs []string) ([]ixsi.BookingTargetInfo, error)
}

// orderBy returns the records of found in the order of targets, skipping unknown targets.
func orderBy(targets []ixsi.BookingTargetID, found map[ixsi.BookingTargetID]ixsi.AvailabilityRecord) []ixsi.AvailabilityRecord {
	out := make([]ixsi.AvailabilityRecord, 0, len(found))
	for _, t := range targets {
		if rec, ok := found[t]; ok {
			out = append(out, rec)
		}
	}
	return out
}
