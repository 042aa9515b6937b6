package processor

import (
	"context"

	"bikeman/internal/ixsi"
)

// StaticProcessor handles a request that only needs a valid requesting system.
type StaticProcessor interface {
	Tag() ixsi.Tag
	Process(ctx context.Context, req ixsi.StaticRequest) (ixsi.StaticResponse, error)
	BuildError(rec *ixsi.ErrorRecord) ixsi.StaticResponse
}

// UserProcessor handles a request on behalf of an end user. Which method is called depends
// on how the request authenticated.
type UserProcessor interface {
	Tag() ixsi.Tag
	ProcessAnonymously(ctx context.Context, lang ixsi.Language, req ixsi.UserRequest) (ixsi.UserResponse, error)
	ProcessForUser(ctx context.Context, lang ixsi.Language, user ixsi.Identity, req ixsi.UserRequest) (ixsi.UserResponse, error)
	BuildError(rec *ixsi.ErrorRecord) ixsi.UserResponse
}

// SubscriptionProcessor handles a request acting on the subscriptions of the requesting
// system itself.
type SubscriptionProcessor interface {
	Tag() ixsi.Tag
	Process(ctx context.Context, req ixsi.SubscriptionRequest, systemID string) (ixsi.SubscriptionResponse, error)
	BuildError(rec *ixsi.ErrorRecord) ixsi.SubscriptionResponse
}
