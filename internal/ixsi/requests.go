package ixsi

import "time"

// RequestPayload is implemented by every request variant.
type RequestPayload interface {
	Tag() Tag
}

// StaticRequest variants only need a valid requesting system.
type StaticRequest interface {
	RequestPayload
	staticRequest()
}

// UserRequest variants additionally need a resolved end-user identity.
type UserRequest interface {
	RequestPayload
	userRequest()
}

// SubscriptionRequest variants act on behalf of the requesting system itself.
type SubscriptionRequest interface {
	RequestPayload
	subscriptionRequest()
}

type staticFamily struct{}

func (staticFamily) staticRequest() {}

type userFamily struct{}

func (userFamily) userRequest() {}

type subscriptionFamily struct{}

func (subscriptionFamily) subscriptionRequest() {}

type ChangedProvidersRequest struct {
	staticFamily
	Timestamp time.Time `json:"timestamp"`
}

func (ChangedProvidersRequest) Tag() Tag { return TagChangedProviders }

type BookingTargetsInfoRequest struct {
	staticFamily
	ProviderIDs []string `json:"providerIds,omitempty"`
}

func (BookingTargetsInfoRequest) Tag() Tag { return TagBookingTargetsInfo }

type AvailabilityRequest struct {
	userFamily
	BookingTargetIDs []BookingTargetID `json:"bookingTargetIds"`
}

func (AvailabilityRequest) Tag() Tag { return TagAvailability }

type PlaceAvailabilityRequest struct {
	userFamily
	PlaceIDs []string `json:"placeIds"`
}

func (PlaceAvailabilityRequest) Tag() Tag { return TagPlaceAvailability }

type PriceInformationRequest struct {
	userFamily
	BookingTargetIDs []BookingTargetID `json:"bookingTargetIds"`
	Begin            time.Time         `json:"begin"`
	End              time.Time         `json:"end"`
}

func (PriceInformationRequest) Tag() Tag { return TagPriceInformation }

type BookingRequest struct {
	userFamily
	BookingTargetID BookingTargetID `json:"bookingTargetId"`
	Begin           time.Time       `json:"begin"`
	End             time.Time       `json:"end"`
}

func (BookingRequest) Tag() Tag { return TagBooking }

type ChangeBookingRequest struct {
	userFamily
	BookingID string     `json:"bookingId"`
	NewBegin  *time.Time `json:"newBegin,omitempty"`
	NewEnd    *time.Time `json:"newEnd,omitempty"`
	Cancel    bool       `json:"cancel,omitempty"`
}

func (ChangeBookingRequest) Tag() Tag { return TagChangeBooking }

type BookingUnlockRequest struct {
	userFamily
	BookingID string `json:"bookingId"`
}

func (BookingUnlockRequest) Tag() Tag { return TagBookingUnlock }

type OpenSessionRequest struct {
	userFamily
	SessionTimeoutMinutes int `json:"sessionTimeoutMinutes,omitempty"`
}

func (OpenSessionRequest) Tag() Tag { return TagOpenSession }

type CloseSessionRequest struct {
	userFamily
	SessionID string `json:"sessionId"`
}

func (CloseSessionRequest) Tag() Tag { return TagCloseSession }

type TokenGenerationRequest struct {
	userFamily
	BookingID string `json:"bookingId"`
}

func (TokenGenerationRequest) Tag() Tag { return TagTokenGeneration }

type CreateUserRequest struct {
	userFamily
	User UserInfo `json:"user"`
}

func (CreateUserRequest) Tag() Tag { return TagCreateUser }

type ChangeUserRequest struct {
	userFamily
	User UserInfo `json:"user"`
}

func (ChangeUserRequest) Tag() Tag { return TagChangeUser }

// AvailabilitySubscriptionRequest subscribes to, or with Unsubscription set unsubscribes
// from, availability changes of the listed booking targets. EventHorizonMinutes bounds the
// subscription lifetime.
type AvailabilitySubscriptionRequest struct {
	subscriptionFamily
	BookingTargetIDs    []BookingTargetID `json:"bookingTargetIds"`
	Unsubscription      bool              `json:"unsubscription,omitempty"`
	EventHorizonMinutes *int              `json:"eventHorizonMinutes,omitempty"`
}

func (AvailabilitySubscriptionRequest) Tag() Tag { return TagAvailabilitySubscription }

// CompleteAvailabilityRequest asks for the current availability of every booking target the
// requesting system is subscribed to.
type CompleteAvailabilityRequest struct {
	subscriptionFamily
}

func (CompleteAvailabilityRequest) Tag() Tag { return TagCompleteAvailability }

// NewRequestPayload returns an empty payload for tag, used when decoding.
func NewRequestPayload(tag Tag) (RequestPayload, bool) {
	switch tag {
	case TagChangedProviders:
		return &ChangedProvidersRequest{}, true
	case TagBookingTargetsInfo:
		return &BookingTargetsInfoRequest{}, true
	case TagAvailability:
		return &AvailabilityRequest{}, true
	case TagPlaceAvailability:
		return &PlaceAvailabilityRequest{}, true
	case TagPriceInformation:
		return &PriceInformationRequest{}, true
	case TagBooking:
		return &BookingRequest{}, true
	case TagChangeBooking:
		return &ChangeBookingRequest{}, true
	case TagBookingUnlock:
		return &BookingUnlockRequest{}, true
	case TagOpenSession:
		return &OpenSessionRequest{}, true
	case TagCloseSession:
		return &CloseSessionRequest{}, true
	case TagTokenGeneration:
		return &TokenGenerationRequest{}, true
	case TagCreateUser:
		return &CreateUserRequest{}, true
	case TagChangeUser:
		return &ChangeUserRequest{}, true
	case TagAvailabilitySubscription:
		return &AvailabilitySubscriptionRequest{}, true
	case TagCompleteAvailability:
		return &CompleteAvailabilityRequest{}, true
	default:
		return nil, false
	}
}
