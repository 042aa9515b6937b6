package ixsi

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

type requestWire struct {
	Transaction Transaction     `json:"transaction"`
	SystemID    string          `json:"systemId,omitempty"`
	Language    Language        `json:"language,omitempty"`
	Auth        *AuthBlock      `json:"auth,omitempty"`
	Type        Tag             `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

type responseWire struct {
	Transaction Transaction     `json:"transaction"`
	CalcTimeMs  int64           `json:"calcTimeMs"`
	Type        Tag             `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

func (r Request) MarshalJSON() ([]byte, error) {
	w := requestWire{
		Transaction: r.Transaction,
		SystemID:    r.SystemID,
		Language:    r.Language,
		Auth:        r.Auth,
		Type:        r.Tag(),
	}
	if r.Payload != nil {
		body, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", w.Type, err)
		}
		w.Payload = body
	}
	return json.Marshal(w)
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var w requestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	target, ok := NewRequestPayload(w.Type)
	if !ok {
		return fmt.Errorf("unknown request type %q", w.Type)
	}
	if len(w.Payload) > 0 && string(w.Payload) != "null" {
		if err := json.Unmarshal(w.Payload, target); err != nil {
			return fmt.Errorf("failed to unmarshal %s payload: %w", w.Type, err)
		}
	}

	*r = Request{
		Transaction: w.Transaction,
		SystemID:    w.SystemID,
		Language:    w.Language,
		Auth:        w.Auth,
		Payload:     derefPayload(target).(RequestPayload),
	}
	return nil
}

func (r Response) MarshalJSON() ([]byte, error) {
	w := responseWire{
		Transaction: r.Transaction,
		CalcTimeMs:  r.CalcTime.Milliseconds(),
	}
	if r.Payload != nil {
		w.Type = r.Payload.Tag()
		body, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", w.Type, err)
		}
		w.Payload = body
	}
	return json.Marshal(w)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var w responseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	target, ok := newResponsePayload(w.Type)
	if !ok {
		return fmt.Errorf("unknown response type %q", w.Type)
	}
	if len(w.Payload) > 0 && string(w.Payload) != "null" {
		if err := json.Unmarshal(w.Payload, target); err != nil {
			return fmt.Errorf("failed to unmarshal %s payload: %w", w.Type, err)
		}
	}

	*r = Response{
		Transaction: w.Transaction,
		CalcTime:    time.Duration(w.CalcTimeMs) * time.Millisecond,
		Payload:     derefPayload(target).(ResponsePayload),
	}
	return nil
}

func newResponsePayload(tag Tag) (any, bool) {
	switch tag {
	case TagChangedProviders:
		return &ChangedProvidersResponse{}, true
	case TagBookingTargetsInfo:
		return &BookingTargetsInfoResponse{}, true
	case TagAvailability:
		return &AvailabilityResponse{}, true
	case TagCreateUser:
		return &CreateUserResponse{}, true
	case TagAvailabilitySubscription:
		return &AvailabilitySubscriptionResponse{}, true
	case TagCompleteAvailability:
		return &CompleteAvailabilityResponse{}, true
	}
	if tag.Family() == FamilyUnknown {
		return nil, false
	}
	return &FailedResponse{RequestTag: tag}, true
}

// derefPayload turns the pointer used for decoding back into the value type processors
// switch on.
func derefPayload(p any) any {
	return reflect.ValueOf(p).Elem().Interface()
}

// DecodeEnvelope parses a JSON envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return env, nil
}

// EncodeEnvelope renders env as JSON.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return body, nil
}
