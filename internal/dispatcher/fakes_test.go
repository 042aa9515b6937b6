package dispatcher

import (
	"context"
	"sync/atomic"

	"bikeman/internal/ixsi"
)

type staticFunc struct {
	tag ixsi.Tag
	fn  func(ctx context.Context, req ixsi.StaticRequest) (ixsi.StaticResponse, error)
}

func (p *staticFunc) Tag() ixsi.Tag { return p.tag }

func (p *staticFunc) Process(ctx context.Context, req ixsi.StaticRequest) (ixsi.StaticResponse, error) {
	return p.fn(ctx, req)
}

func (p *staticFunc) BuildError(rec *ixsi.ErrorRecord) ixsi.StaticResponse {
	return ixsi.Failed(p.tag, rec)
}

type userCall struct {
	identity ixsi.Identity
	language ixsi.Language
}

// userSpy records how it was called and answers with an empty availability response
// unless fn is set.
type userSpy struct {
	tag   ixsi.Tag
	fn    func(ctx context.Context) (ixsi.UserResponse, error)
	calls []userCall
}

func (p *userSpy) Tag() ixsi.Tag { return p.tag }

func (p *userSpy) ProcessAnonymously(ctx context.Context, lang ixsi.Language, _ ixsi.UserRequest) (ixsi.UserResponse, error) {
	p.calls = append(p.calls, userCall{identity: ixsi.AnonymousIdentity(), language: lang})
	return p.respond(ctx)
}

func (p *userSpy) ProcessForUser(ctx context.Context, lang ixsi.Language, identity ixsi.Identity, _ ixsi.UserRequest) (ixsi.UserResponse, error) {
	p.calls = append(p.calls, userCall{identity: identity, language: lang})
	return p.respond(ctx)
}

func (p *userSpy) respond(ctx context.Context) (ixsi.UserResponse, error) {
	if p.fn != nil {
		return p.fn(ctx)
	}
	return ixsi.AvailabilityResponse{}, nil
}

func (p *userSpy) BuildError(rec *ixsi.ErrorRecord) ixsi.UserResponse {
	return ixsi.AvailabilityResponse{Outcome: ixsi.Outcome{Error: rec}}
}

type authSpy struct {
	next  Authenticator
	calls atomic.Int32
}

func (a *authSpy) Authenticate(ctx context.Context, auth *ixsi.AuthBlock) (ixsi.Identity, error) {
	a.calls.Add(1)
	return a.next.Authenticate(ctx, auth)
}

type fakeUsers struct {
	password string
}

func (f fakeUsers) ValidateUser(_ context.Context, user ixsi.UserInfo) (ixsi.Identity, error) {
	if user.Password != f.password {
		return ixsi.Identity{}, ixsi.UserInvalid("Wrong password")
	}
	return ixsi.Identity{ProviderID: user.ProviderID, UserID: user.UserID}, nil
}
