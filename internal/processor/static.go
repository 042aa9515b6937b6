package processor

import (
	"context"
	"fmt"

	"bikeman/internal/availability"
	"bikeman/internal/ixsi"
)

func unexpectedPayload(tag ixsi.Tag, payload ixsi.RequestPayload) error {
	return fmt.Errorf("%s processor received %T", tag, payload)
}

// ChangedProviders reports this service's provider id when any of its booking targets
// changed since the requested timestamp, and an empty list otherwise.
type ChangedProviders struct {
	source     availability.Source
	providerID string
}

func NewChangedProviders(source availability.Source, providerID string) *ChangedProviders {
	return &ChangedProviders{source: source, providerID: providerID}
}

func (p *ChangedProviders) Tag() ixsi.Tag { return ixsi.TagChangedProviders }

func (p *ChangedProviders) Process(ctx context.Context, req ixsi.StaticRequest) (ixsi.StaticResponse, error) {
	r, ok := req.(ixsi.ChangedProvidersRequest)
	if !ok {
		return nil, unexpectedPayload(p.Tag(), req)
	}

	changed, err := p.source.ChangedProviders(ctx, r.Timestamp.UnixMilli())
	if err != nil {
		return nil, err
	}

	resp := ixsi.ChangedProvidersResponse{Providers: []string{}}
	if changed {
		resp.Providers = append(resp.Providers, p.providerID)
	}
	return resp, nil
}

func (p *ChangedProviders) BuildError(rec *ixsi.ErrorRecord) ixsi.StaticResponse {
	return ixsi.ChangedProvidersResponse{Outcome: ixsi.Outcome{Error: rec}}
}

type BookingTargetsInfo struct {
	source availability.Source
}

func NewBookingTargetsInfo(source availability.Source) *BookingTargetsInfo {
	return &BookingTargetsInfo{source: source}
}

func (p *BookingTargetsInfo) Tag() ixsi.Tag { return ixsi.TagBookingTargetsInfo }

func (p *BookingTargetsInfo) Process(ctx context.Context, req ixsi.StaticRequest) (ixsi.StaticResponse, error) {
	r, ok := req.(ixsi.BookingTargetsInfoRequest)
	if !ok {
		return nil, unexpectedPayload(p.Tag(), req)
	}

	targets, err := p.source.Targets(ctx, r.ProviderIDs)
	if err != nil {
		return nil, err
	}
	return ixsi.BookingTargetsInfoResponse{BookingTargets: targets}, nil
}

func (p *BookingTargetsInfo) BuildError(rec *ixsi.ErrorRecord) ixsi.StaticResponse {
	return ixsi.BookingTargetsInfoResponse{Outcome: ixsi.Outcome{Error: rec}}
}
