package ixsi

// ResponsePayload is implemented by every response variant. A payload carries either its
// success fields or an error, never both.
type ResponsePayload interface {
	Tag() Tag
	Failure() *ErrorRecord
}

type StaticResponse interface {
	ResponsePayload
	staticResponse()
}

type UserResponse interface {
	ResponsePayload
	userResponse()
}

type SubscriptionResponse interface {
	ResponsePayload
	subscriptionResponse()
}

// Outcome is embedded by every response variant to carry a protocol error.
type Outcome struct {
	Error *ErrorRecord `json:"error,omitempty"`
}

func (o Outcome) Failure() *ErrorRecord { return o.Error }

// FailedResponse answers a request of any family with nothing but an error. It is used
// when no variant-specific payload exists or before a processor has been resolved.
type FailedResponse struct {
	Outcome
	RequestTag Tag `json:"-"`
}

// Failed builds a FailedResponse for tag.
func Failed(tag Tag, rec *ErrorRecord) FailedResponse {
	return FailedResponse{Outcome: Outcome{Error: rec}, RequestTag: tag}
}

func (r FailedResponse) Tag() Tag            { return r.RequestTag }
func (FailedResponse) staticResponse()       {}
func (FailedResponse) userResponse()         {}
func (FailedResponse) subscriptionResponse() {}

type ChangedProvidersResponse struct {
	Outcome
	Providers []string `json:"providers,omitempty"`
}

func (ChangedProvidersResponse) Tag() Tag        { return TagChangedProviders }
func (ChangedProvidersResponse) staticResponse() {}

type BookingTargetsInfoResponse struct {
	Outcome
	BookingTargets []BookingTargetInfo `json:"bookingTargets,omitempty"`
}

func (BookingTargetsInfoResponse) Tag() Tag        { return TagBookingTargetsInfo }
func (BookingTargetsInfoResponse) staticResponse() {}

type AvailabilityResponse struct {
	Outcome
	BookingTargets []AvailabilityRecord `json:"bookingTargets,omitempty"`
}

func (AvailabilityResponse) Tag() Tag      { return TagAvailability }
func (AvailabilityResponse) userResponse() {}

// CreateUserResponse confirms a stored user. The password is never echoed.
type CreateUserResponse struct {
	Outcome
	ProviderID string `json:"providerId,omitempty"`
	UserID     string `json:"userId,omitempty"`
}

func (CreateUserResponse) Tag() Tag      { return TagCreateUser }
func (CreateUserResponse) userResponse() {}

type AvailabilitySubscriptionResponse struct {
	Outcome
}

func (AvailabilitySubscriptionResponse) Tag() Tag              { return TagAvailabilitySubscription }
func (AvailabilitySubscriptionResponse) subscriptionResponse() {}

// CompleteAvailabilityResponse is the answer to a catch-up pull. The whole subscribed set
// is always delivered in one block, so Last is true and MessageBlockID is "none".
type CompleteAvailabilityResponse struct {
	Outcome
	BookingTargets []AvailabilityRecord `json:"bookingTargets,omitempty"`
	Last           bool                 `json:"last"`
	MessageBlockID string               `json:"messageBlockId"`
}

func (CompleteAvailabilityResponse) Tag() Tag              { return TagCompleteAvailability }
func (CompleteAvailabilityResponse) subscriptionResponse() {}

// SingleMessageBlockID marks a response that is not split across several messages.
const SingleMessageBlockID = "none"
