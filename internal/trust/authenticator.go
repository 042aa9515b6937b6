package trust

import (
	"context"

	"bikeman/internal/ixsi"
	"bikeman/pkg/metrics"
)

const (
	modeAnonymous = "anonymous"
	modeUser      = "user"
	modeSession   = "session"
	modeNone      = "none"
)

// Authenticator is the second trust stage. It resolves the AuthBlock of a user-triggered
// request to an identity.
type Authenticator struct {
	users UserDirectory
}

func NewAuthenticator(users UserDirectory) *Authenticator {
	return &Authenticator{users: users}
}

// Authenticate checks the members of auth in a fixed order: anonymous flag, user
// credentials, session id. The first member that is set decides the outcome.
func (a *Authenticator) Authenticate(ctx context.Context, auth *ixsi.AuthBlock) (ixsi.Identity, error) {
	switch {
	case auth == nil:
		return a.reject(modeNone, ixsi.NotImplemented("Authentication requirements are not met"))

	case auth.Anonymous:
		metrics.IncAuthentication(modeAnonymous, "success")
		return ixsi.AnonymousIdentity(), nil

	case auth.UserInfo != nil:
		if len(auth.UserInfo) != 1 {
			return a.reject(modeUser, ixsi.InvalidRequest(
				"More than one user per request is not allowed",
				"exactly one user info element is expected",
			))
		}
		identity, err := a.users.ValidateUser(ctx, auth.UserInfo[0])
		if err != nil {
			metrics.IncAuthentication(modeUser, "failure")
			return ixsi.Identity{}, err
		}
		metrics.IncAuthentication(modeUser, "success")
		return identity, nil

	case auth.SessionID != "":
		return a.reject(modeSession, ixsi.NotImplemented("Session-based authentication is not supported"))

	default:
		return a.reject(modeNone, ixsi.NotImplemented("Authentication requirements are not met"))
	}
}

func (a *Authenticator) reject(mode string, rec *ixsi.ErrorRecord) (ixsi.Identity, error) {
	metrics.IncAuthentication(mode, "rejected")
	return ixsi.Identity{}, rec
}
