package ixsi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagFamilies(t *testing.T) {
	seen := make(map[Tag]bool)
	for _, tag := range AllTags() {
		assert.False(t, seen[tag], "duplicate tag %s", tag)
		seen[tag] = true
		assert.NotEqual(t, FamilyUnknown, tag.Family(), tag)

		payload, ok := NewRequestPayload(tag)
		require.True(t, ok, tag)
		assert.Equal(t, tag, payload.Tag())

		var static, user, sub int
		if _, ok := payload.(StaticRequest); ok {
			static = 1
		}
		if _, ok := payload.(UserRequest); ok {
			user = 1
		}
		if _, ok := payload.(SubscriptionRequest); ok {
			sub = 1
		}
		assert.Equal(t, 1, static+user+sub, "%s must belong to exactly one family", tag)
	}

	assert.Equal(t, FamilyUnknown, Tag("FooRequest").Family())
}

func TestParseBookingTargetID(t *testing.T) {
	ids := []BookingTargetID{
		{ProviderID: "bikeman", ID: "42"},
		{ProviderID: "de:aachen", ID: "42"},
		{ProviderID: "de", ID: "aachen:42"},
		{ProviderID: "odd%3Aname", ID: "7"},
		{ProviderID: "", ID: "1"},
	}
	seen := make(map[string]BookingTargetID)
	for _, id := range ids {
		parsed, err := ParseBookingTargetID(id.String())
		require.NoError(t, err, id.String())
		assert.Equal(t, id, parsed)

		_, dup := seen[id.String()]
		assert.False(t, dup, "%+v encodes like another id", id)
		seen[id.String()] = id
	}
	assert.Equal(t, "bikeman:42", BookingTargetID{ProviderID: "bikeman", ID: "42"}.String())

	for _, bad := range []string{"", "bikeman", "bikeman:"} {
		_, err := ParseBookingTargetID(bad)
		assert.Error(t, err, bad)
	}
}

func TestErrorRecordIsError(t *testing.T) {
	rec := InvalidRequest("No subscriptions", "the requesting system has no active subscriptions")
	wrapped := fmt.Errorf("snapshot: %w", rec)

	var got *ErrorRecord
	require.True(t, errors.As(wrapped, &got))
	assert.Same(t, rec, got)
	assert.Contains(t, wrapped.Error(), "invalid-request")
}

func TestFailedResponse(t *testing.T) {
	resp := Failed(TagPriceInformation, NotImplemented("PriceInformationRequest is not supported"))

	var payload ResponsePayload = resp
	assert.Equal(t, TagPriceInformation, payload.Tag())
	assert.Equal(t, CodeNotImplemented, payload.Failure().Code)
	assert.Nil(t, Response{}.Failure())
}
