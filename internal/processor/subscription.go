package processor

import (
	"context"

	"bikeman/internal/ixsi"
	"bikeman/internal/subscription"
)

// Subscriptions is what the subscription processors need from the registry.
type Subscriptions interface {
	Subscribe(ctx context.Context, systemID string, targets []ixsi.BookingTargetID, ttlMinutes *int) error
	Unsubscribe(ctx context.Context, systemID string, targets []ixsi.BookingTargetID) error
	FullSnapshot(ctx context.Context, systemID string) (subscription.Snapshot, error)
}

// AvailabilitySubscription subscribes the requesting system to availability changes, or
// unsubscribes it when the request says so.
type AvailabilitySubscription struct {
	subscriptions Subscriptions
}

func NewAvailabilitySubscription(subscriptions Subscriptions) *AvailabilitySubscription {
	return &AvailabilitySubscription{subscriptions: subscriptions}
}

func (p *AvailabilitySubscription) Tag() ixsi.Tag { return ixsi.TagAvailabilitySubscription }

func (p *AvailabilitySubscription) Process(ctx context.Context, req ixsi.SubscriptionRequest, systemID string) (ixsi.SubscriptionResponse, error) {
	r, ok := req.(ixsi.AvailabilitySubscriptionRequest)
	if !ok {
		return nil, unexpectedPayload(p.Tag(), req)
	}
	if len(r.BookingTargetIDs) == 0 {
		return nil, ixsi.InvalidRequest("No booking targets", "at least one booking target id is required")
	}

	var err error
	if r.Unsubscription {
		err = p.subscriptions.Unsubscribe(ctx, systemID, r.BookingTargetIDs)
	} else {
		err = p.subscriptions.Subscribe(ctx, systemID, r.BookingTargetIDs, r.EventHorizonMinutes)
	}
	if err != nil {
		return nil, err
	}
	return ixsi.AvailabilitySubscriptionResponse{}, nil
}

func (p *AvailabilitySubscription) BuildError(rec *ixsi.ErrorRecord) ixsi.SubscriptionResponse {
	return ixsi.AvailabilitySubscriptionResponse{Outcome: ixsi.Outcome{Error: rec}}
}

// CompleteAvailability returns the availability of everything the requesting system is
// subscribed to, as one unsplit block.
type CompleteAvailability struct {
	subscriptions Subscriptions
}

func NewCompleteAvailability(subscriptions Subscriptions) *CompleteAvailability {
	return &CompleteAvailability{subscriptions: subscriptions}
}

func (p *CompleteAvailability) Tag() ixsi.Tag { return ixsi.TagCompleteAvailability }

func (p *CompleteAvailability) Process(ctx context.Context, req ixsi.SubscriptionRequest, systemID string) (ixsi.SubscriptionResponse, error) {
	if _, ok := req.(ixsi.CompleteAvailabilityRequest); !ok {
		return nil, unexpectedPayload(p.Tag(), req)
	}

	snap, err := p.subscriptions.FullSnapshot(ctx, systemID)
	if err != nil {
		return nil, err
	}
	return ixsi.CompleteAvailabilityResponse{
		BookingTargets: snap.Records,
		Last:           snap.Last,
		MessageBlockID: snap.MessageBlockID,
	}, nil
}

func (p *CompleteAvailability) BuildError(rec *ixsi.ErrorRecord) ixsi.SubscriptionResponse {
	return ixsi.CompleteAvailabilityResponse{
		Outcome:        ixsi.Outcome{Error: rec},
		Last:           true,
		MessageBlockID: ixsi.SingleMessageBlockID,
	}
}
