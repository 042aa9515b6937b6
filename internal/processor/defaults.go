package processor

import (
	"bikeman/internal/availability"
	"bikeman/internal/ixsi"
)

type Deps struct {
	Source        availability.Source
	Subscriptions Subscriptions
	// Users backs CreateUserRequest. Without it the tag is answered with not-implemented.
	Users      UserStore
	ProviderID string
}

// NewDefaultRegistry registers a processor for every request tag of the schema. Tags this
// service does not serve get an Unsupported processor.
func NewDefaultRegistry(deps Deps) *Registry {
	r := NewRegistry()

	r.RegisterStatic(NewChangedProviders(deps.Source, deps.ProviderID))
	r.RegisterStatic(NewBookingTargetsInfo(deps.Source))

	r.RegisterUser(NewAvailability(deps.Source))
	if deps.Users != nil {
		r.RegisterUser(NewCreateUser(deps.Users))
	} else {
		r.RegisterUser(NewUnsupported(ixsi.TagCreateUser))
	}
	for _, tag := range []ixsi.Tag{
		ixsi.TagPlaceAvailability,
		ixsi.TagPriceInformation,
		ixsi.TagBooking,
		ixsi.TagChangeBooking,
		ixsi.TagBookingUnlock,
		ixsi.TagOpenSession,
		ixsi.TagCloseSession,
		ixsi.TagTokenGeneration,
		ixsi.TagChangeUser,
	} {
		r.RegisterUser(NewUnsupported(tag))
	}

	r.RegisterSubscription(NewAvailabilitySubscription(deps.Subscriptions))
	r.RegisterSubscription(NewCompleteAvailability(deps.Subscriptions))

	return r
}
