package ixsi

import (
	"fmt"
	"strings"
	"time"
)

// Tag identifies a concrete request variant. The matching response shares the tag.
type Tag string

const (
	TagChangedProviders   Tag = "ChangedProvidersRequest"
	TagBookingTargetsInfo Tag = "BookingTargetsInfoRequest"

	TagAvailability      Tag = "AvailabilityRequest"
	TagPlaceAvailability Tag = "PlaceAvailabilityRequest"
	TagPriceInformation  Tag = "PriceInformationRequest"
	TagBooking           Tag = "BookingRequest"
	TagChangeBooking     Tag = "ChangeBookingRequest"
	TagBookingUnlock     Tag = "BookingUnlockRequest"
	TagOpenSession       Tag = "OpenSessionRequest"
	TagCloseSession      Tag = "CloseSessionRequest"
	TagTokenGeneration   Tag = "TokenGenerationRequest"
	TagCreateUser        Tag = "CreateUserRequest"
	TagChangeUser        Tag = "ChangeUserRequest"

	TagAvailabilitySubscription Tag = "AvailabilitySubscriptionRequest"
	TagCompleteAvailability     Tag = "CompleteAvailabilityRequest"
)

// Family groups request variants by the validation pipeline they go through.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyStatic
	FamilyUserTriggered
	FamilySubscription
)

func (f Family) String() string {
	switch f {
	case FamilyStatic:
		return "static"
	case FamilyUserTriggered:
		return "user_triggered"
	case FamilySubscription:
		return "subscription"
	default:
		return "unknown"
	}
}

var tagFamilies = map[Tag]Family{
	TagChangedProviders:   FamilyStatic,
	TagBookingTargetsInfo: FamilyStatic,

	TagAvailability:      FamilyUserTriggered,
	TagPlaceAvailability: FamilyUserTriggered,
	TagPriceInformation:  FamilyUserTriggered,
	TagBooking:           FamilyUserTriggered,
	TagChangeBooking:     FamilyUserTriggered,
	TagBookingUnlock:     FamilyUserTriggered,
	TagOpenSession:       FamilyUserTriggered,
	TagCloseSession:      FamilyUserTriggered,
	TagTokenGeneration:   FamilyUserTriggered,
	TagCreateUser:        FamilyUserTriggered,
	TagChangeUser:        FamilyUserTriggered,

	TagAvailabilitySubscription: FamilySubscription,
	TagCompleteAvailability:     FamilySubscription,
}

// Family returns the family a tag belongs to, FamilyUnknown for tags outside the schema.
func (t Tag) Family() Family {
	return tagFamilies[t]
}

// AllTags returns every tag defined by the schema in a stable order.
func AllTags() []Tag {
	return []Tag{
		TagChangedProviders,
		TagBookingTargetsInfo,
		TagAvailability,
		TagPlaceAvailability,
		TagPriceInformation,
		TagBooking,
		TagChangeBooking,
		TagBookingUnlock,
		TagOpenSession,
		TagCloseSession,
		TagTokenGeneration,
		TagCreateUser,
		TagChangeUser,
		TagAvailabilitySubscription,
		TagCompleteAvailability,
	}
}

// Transaction correlates a response with the request it answers.
type Transaction struct {
	MessageID string    `json:"messageId"`
	TimeStamp time.Time `json:"timeStamp"`
}

// Language is the optional ISO 639-1 code a partner asks responses to be rendered in.
type Language string

// Envelope is one physical message. Inbound envelopes carry Requests, outbound ones Responses.
type Envelope struct {
	TransactionID string     `json:"transactionId"`
	Requests      []Request  `json:"requests,omitempty"`
	Responses     []Response `json:"responses,omitempty"`
}

// Request is a single entry of an inbound batch.
type Request struct {
	Transaction Transaction
	SystemID    string
	Language    Language
	Auth        *AuthBlock
	Payload     RequestPayload
}

// Tag returns the payload tag, or an empty tag when the payload is missing.
func (r Request) Tag() Tag {
	if r.Payload == nil {
		return ""
	}
	return r.Payload.Tag()
}

// Response is a single entry of an outbound batch.
type Response struct {
	Transaction Transaction
	CalcTime    time.Duration
	Payload     ResponsePayload
}

// Failure returns the error carried by the payload, if any.
func (r Response) Failure() *ErrorRecord {
	if r.Payload == nil {
		return nil
	}
	return r.Payload.Failure()
}

// AuthBlock holds the authentication information of a user-triggered request.
// Exactly one of its members is expected to be set.
type AuthBlock struct {
	Anonymous bool       `json:"anonymous,omitempty"`
	UserInfo  []UserInfo `json:"userInfo,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
}

// UserInfo is one credential set.
type UserInfo struct {
	ProviderID string `json:"providerId"`
	UserID     string `json:"userId"`
	Password   string `json:"password,omitempty"`
}

// Identity is the end user a user-triggered request is processed for.
type Identity struct {
	ProviderID string
	UserID     string
	Anonymous  bool
}

// AnonymousIdentity is the identity resolved for anonymous requests.
func AnonymousIdentity() Identity {
	return Identity{Anonymous: true}
}

// BookingTargetID addresses a rentable unit of a provider.
type BookingTargetID struct {
	ProviderID string `json:"providerId" bson:"provider_id"`
	ID         string `json:"id" bson:"target_id"`
}

var (
	providerEscaper   = strings.NewReplacer("%", "%25", ":", "%3A")
	providerUnescaper = strings.NewReplacer("%3A", ":", "%25", "%")
)

// String renders provider:id. Colons and percent signs in the provider are
// percent-escaped so the first colon always separates the two parts.
func (b BookingTargetID) String() string {
	return providerEscaper.Replace(b.ProviderID) + ":" + b.ID
}

// ParseBookingTargetID is the inverse of BookingTargetID.String.
func ParseBookingTargetID(s string) (BookingTargetID, error) {
	provider, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return BookingTargetID{}, fmt.Errorf("invalid booking target id %q", s)
	}
	return BookingTargetID{ProviderID: providerUnescaper.Replace(provider), ID: id}, nil
}

// AvailabilityRecord is the current state of one booking target as reported by the
// availability source.
type AvailabilityRecord struct {
	Target        BookingTargetID `json:"bookingTargetId"`
	PlaceID       string          `json:"placeId,omitempty"`
	Latitude      float64         `json:"latitude"`
	Longitude     float64         `json:"longitude"`
	StateOfCharge *float64        `json:"stateOfCharge,omitempty"`
	Available     bool            `json:"available"`
}

// BookingTargetInfo is the static description of a booking target.
type BookingTargetInfo struct {
	Target  BookingTargetID `json:"bookingTargetId"`
	Name    string          `json:"name,omitempty"`
	PlaceID string          `json:"placeId,omitempty"`
	Class   string          `json:"class,omitempty"`
}
