package processor

import (
	"context"
	"fmt"

	"bikeman/internal/availability"
	"bikeman/internal/ixsi"
)

// Availability answers anonymous and identified users alike with the current state of the
// requested booking targets.
type Availability struct {
	source availability.Source
}

func NewAvailability(source availability.Source) *Availability {
	return &Availability{source: source}
}

func (p *Availability) Tag() ixsi.Tag { return ixsi.TagAvailability }

func (p *Availability) ProcessAnonymously(ctx context.Context, _ ixsi.Language, req ixsi.UserRequest) (ixsi.UserResponse, error) {
	return p.snapshot(ctx, req)
}

func (p *Availability) ProcessForUser(ctx context.Context, _ ixsi.Language, _ ixsi.Identity, req ixsi.UserRequest) (ixsi.UserResponse, error) {
	return p.snapshot(ctx, req)
}

func (p *Availability) snapshot(ctx context.Context, req ixsi.UserRequest) (ixsi.UserResponse, error) {
	r, ok := req.(ixsi.AvailabilityRequest)
	if !ok {
		return nil, unexpectedPayload(p.Tag(), req)
	}
	if len(r.BookingTargetIDs) == 0 {
		return nil, ixsi.InvalidRequest("No booking targets", "at least one booking target id is required")
	}

	records, err := p.source.Snapshot(ctx, r.BookingTargetIDs)
	if err != nil {
		return nil, err
	}
	return ixsi.AvailabilityResponse{BookingTargets: records}, nil
}

func (p *Availability) BuildError(rec *ixsi.ErrorRecord) ixsi.UserResponse {
	return ixsi.AvailabilityResponse{Outcome: ixsi.Outcome{Error: rec}}
}

// UserStore persists end-user credentials.
type UserStore interface {
	CreateUser(ctx context.Context, user ixsi.UserInfo) error
}

// CreateUser registers an end user for the requesting partner. Anonymous requests may
// register, since the user does not exist yet.
type CreateUser struct {
	users UserStore
}

func NewCreateUser(users UserStore) *CreateUser {
	return &CreateUser{users: users}
}

func (p *CreateUser) Tag() ixsi.Tag { return ixsi.TagCreateUser }

func (p *CreateUser) ProcessAnonymously(ctx context.Context, _ ixsi.Language, req ixsi.UserRequest) (ixsi.UserResponse, error) {
	return p.create(ctx, req)
}

func (p *CreateUser) ProcessForUser(ctx context.Context, _ ixsi.Language, _ ixsi.Identity, req ixsi.UserRequest) (ixsi.UserResponse, error) {
	return p.create(ctx, req)
}

func (p *CreateUser) create(ctx context.Context, req ixsi.UserRequest) (ixsi.UserResponse, error) {
	r, ok := req.(ixsi.CreateUserRequest)
	if !ok {
		return nil, unexpectedPayload(p.Tag(), req)
	}
	u := r.User
	if u.ProviderID == "" || u.UserID == "" || u.Password == "" {
		return nil, ixsi.InvalidRequest("Incomplete user", "providerId, userId and password are required")
	}

	if err := p.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return ixsi.CreateUserResponse{ProviderID: u.ProviderID, UserID: u.UserID}, nil
}

func (p *CreateUser) BuildError(rec *ixsi.ErrorRecord) ixsi.UserResponse {
	return ixsi.CreateUserResponse{Outcome: ixsi.Outcome{Error: rec}}
}

// Unsupported answers every request of its tag with not-implemented.
type Unsupported struct {
	tag ixsi.Tag
}

func NewUnsupported(tag ixsi.Tag) *Unsupported {
	return &Unsupported{tag: tag}
}

func (p *Unsupported) Tag() ixsi.Tag { return p.tag }

func (p *Unsupported) ProcessAnonymously(context.Context, ixsi.Language, ixsi.UserRequest) (ixsi.UserResponse, error) {
	return nil, p.notImplemented()
}

func (p *Unsupported) ProcessForUser(context.Context, ixsi.Language, ixsi.Identity, ixsi.UserRequest) (ixsi.UserResponse, error) {
	return nil, p.notImplemented()
}

func (p *Unsupported) notImplemented() *ixsi.ErrorRecord {
	return ixsi.NotImplemented(fmt.Sprintf("%s is not supported", p.tag))
}

func (p *Unsupported) BuildError(rec *ixsi.ErrorRecord) ixsi.UserResponse {
	return ixsi.Failed(p.tag, rec)
}
