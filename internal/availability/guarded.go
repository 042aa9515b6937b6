package availability

import (
	"context"
	"errors"
	"time"

	"bikeman/internal/ixsi"
	"bikeman/pkg/circuitbreaker"
	apperrors "bikeman/pkg/errors"
	"bikeman/pkg/metrics"
)

// GuardedSource bounds every call to the wrapped Source by a timeout and, when cb is not
// nil, a circuit breaker. An expired timeout surfaces as ErrTimeout.
type GuardedSource struct {
	source  Source
	name    string
	timeout time.Duration
	cb      *circuitbreaker.Wrapper
}

func NewGuardedSource(source Source, name string, timeout time.Duration, cb *circuitbreaker.Wrapper) *GuardedSource {
	return &GuardedSource{source: source, name: name, timeout: timeout, cb: cb}
}

func (g *GuardedSource) Snapshot(ctx context.Context, targets []ixsi.BookingTargetID) ([]ixsi.AvailabilityRecord, error) {
	return guard(ctx, g, "snapshot", func(ctx context.Context) ([]ixsi.AvailabilityRecord, error) {
		return g.source.Snapshot(ctx, targets)
	})
}

func (g *GuardedSource) ChangedProviders(ctx context.Context, sinceMillis int64) (bool, error) {
	return guard(ctx, g, "changed_providers", func(ctx context.Context) (bool, error) {
		return g.source.ChangedProviders(ctx, sinceMillis)
	})
}

func (g *GuardedSource) Targets(ctx context.Context, providerIDs []string) ([]ixsi.BookingTargetInfo, error) {
	return guard(ctx, g, "targets", func(ctx context.Context) ([]ixsi.BookingTargetInfo, error) {
		return g.source.Targets(ctx, providerIDs)
	})
}

func guard[T any](ctx context.Context, g *GuardedSource, op string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := circuitbreaker.Run(ctx, g.cb, func() (T, error) {
		return fn(ctx)
	})

	metrics.ObserveAvailabilityQueryDuration(g.name, op, time.Since(start))
	if err != nil {
		metrics.IncAvailabilityQuery(g.name, op, "error")
		if errors.Is(err, context.DeadlineExceeded) {
			return result, apperrors.ErrTimeout.
				WithDetail("message", "availability source "+g.name+" timed out after "+g.timeout.String()).
				WithCause(err)
		}
		return result, err
	}
	metrics.IncAvailabilityQuery(g.name, op, "success")
	return result, nil
}
