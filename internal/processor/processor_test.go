package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeman/internal/availability"
	"bikeman/internal/ixsi"
	"bikeman/internal/logger"
	"bikeman/internal/subscription"
)

func tid(id string) ixsi.BookingTargetID {
	return ixsi.BookingTargetID{ProviderID: "bikeman", ID: id}
}

func testSource(updatedAt time.Time) *availability.MemorySource {
	return availability.NewMemorySource(
		availability.Target{
			Info:      ixsi.BookingTargetInfo{Name: "Bike 1", PlaceID: "station-1"},
			State:     ixsi.AvailabilityRecord{Target: tid("1"), PlaceID: "station-1", Available: true},
			UpdatedAt: updatedAt,
		},
		availability.Target{
			Info:      ixsi.BookingTargetInfo{Name: "Bike 2", PlaceID: "station-2"},
			State:     ixsi.AvailabilityRecord{Target: tid("2"), PlaceID: "station-2"},
			UpdatedAt: updatedAt,
		},
	)
}

func failureOf(t *testing.T, err error) *ixsi.ErrorRecord {
	t.Helper()
	var rec *ixsi.ErrorRecord
	require.ErrorAs(t, err, &rec)
	return rec
}

func TestChangedProviders(t *testing.T) {
	ctx := context.Background()
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewChangedProviders(testSource(updated), "bikeman")

	resp, err := p.Process(ctx, ixsi.ChangedProvidersRequest{Timestamp: updated.Add(-time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []string{"bikeman"}, resp.(ixsi.ChangedProvidersResponse).Providers)

	resp, err = p.Process(ctx, ixsi.ChangedProvidersRequest{Timestamp: updated.Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, resp.(ixsi.ChangedProvidersResponse).Providers)
}

func TestBookingTargetsInfo(t *testing.T) {
	p := NewBookingTargetsInfo(testSource(time.Now()))

	resp, err := p.Process(context.Background(), ixsi.BookingTargetsInfoRequest{ProviderIDs: []string{"bikeman"}})
	require.NoError(t, err)

	targets := resp.(ixsi.BookingTargetsInfoResponse).BookingTargets
	require.Len(t, targets, 2)
	assert.Equal(t, tid("1"), targets[0].Target)
	assert.Equal(t, "Bike 1", targets[0].Name)

	resp, err = p.Process(context.Background(), ixsi.BookingTargetsInfoRequest{ProviderIDs: []string{"other"}})
	require.NoError(t, err)
	assert.Empty(t, resp.(ixsi.BookingTargetsInfoResponse).BookingTargets)
}

func TestStaticProcessor_WrongPayload(t *testing.T) {
	p := NewBookingTargetsInfo(testSource(time.Now()))

	_, err := p.Process(context.Background(), ixsi.ChangedProvidersRequest{})
	require.Error(t, err)

	var rec *ixsi.ErrorRecord
	assert.NotErrorAs(t, err, &rec)
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()
	p := NewAvailability(testSource(time.Now()))
	req := ixsi.AvailabilityRequest{BookingTargetIDs: []ixsi.BookingTargetID{tid("2"), tid("1")}}

	anon, err := p.ProcessAnonymously(ctx, "de", req)
	require.NoError(t, err)
	user, err := p.ProcessForUser(ctx, "de", ixsi.Identity{ProviderID: "bikeman", UserID: "u1"}, req)
	require.NoError(t, err)
	assert.Equal(t, anon, user)

	records := anon.(ixsi.AvailabilityResponse).BookingTargets
	require.Len(t, records, 2)
	assert.Equal(t, tid("2"), records[0].Target)
	assert.True(t, records[1].Available)

	_, err = p.ProcessAnonymously(ctx, "", ixsi.AvailabilityRequest{})
	assert.Equal(t, ixsi.CodeInvalidRequest, failureOf(t, err).Code)
}

func TestUnsupported(t *testing.T) {
	p := NewUnsupported(ixsi.TagBooking)

	_, err := p.ProcessAnonymously(context.Background(), "", ixsi.BookingRequest{})
	rec := failureOf(t, err)
	assert.Equal(t, ixsi.CodeNotImplemented, rec.Code)
	assert.Equal(t, "BookingRequest is not supported", rec.Message)

	_, err = p.ProcessForUser(context.Background(), "", ixsi.Identity{UserID: "u1"}, ixsi.BookingRequest{})
	assert.Equal(t, ixsi.CodeNotImplemented, failureOf(t, err).Code)

	resp := p.BuildError(rec)
	assert.Equal(t, ixsi.TagBooking, resp.Tag())
	assert.Same(t, rec, resp.Failure())
}

type recordingUsers struct {
	created []ixsi.UserInfo
	err     error
}

func (u *recordingUsers) CreateUser(_ context.Context, user ixsi.UserInfo) error {
	if u.err != nil {
		return u.err
	}
	u.created = append(u.created, user)
	return nil
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	alice := ixsi.UserInfo{ProviderID: "bikeman", UserID: "alice", Password: "s3cret"}

	t.Run("anonymous registration", func(t *testing.T) {
		users := &recordingUsers{}
		p := NewCreateUser(users)

		resp, err := p.ProcessAnonymously(ctx, "", ixsi.CreateUserRequest{User: alice})
		require.NoError(t, err)
		assert.Equal(t, ixsi.CreateUserResponse{ProviderID: "bikeman", UserID: "alice"}, resp)
		assert.Equal(t, []ixsi.UserInfo{alice}, users.created)
	})

	t.Run("identified user", func(t *testing.T) {
		users := &recordingUsers{}
		p := NewCreateUser(users)

		_, err := p.ProcessForUser(ctx, "", ixsi.Identity{ProviderID: "bikeman", UserID: "admin"}, ixsi.CreateUserRequest{User: alice})
		require.NoError(t, err)
		assert.Len(t, users.created, 1)
	})

	t.Run("incomplete user", func(t *testing.T) {
		users := &recordingUsers{}
		p := NewCreateUser(users)

		_, err := p.ProcessAnonymously(ctx, "", ixsi.CreateUserRequest{User: ixsi.UserInfo{ProviderID: "bikeman", UserID: "alice"}})
		assert.Equal(t, ixsi.CodeInvalidRequest, failureOf(t, err).Code)
		assert.Empty(t, users.created)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		p := NewCreateUser(&recordingUsers{err: errors.New("db down")})

		_, err := p.ProcessAnonymously(ctx, "", ixsi.CreateUserRequest{User: alice})
		assert.EqualError(t, err, "db down")

		resp := p.BuildError(ixsi.BackendFailure("db down"))
		assert.Equal(t, ixsi.TagCreateUser, resp.Tag())
		assert.NotNil(t, resp.Failure())
	})
}

func TestSubscriptionProcessors(t *testing.T) {
	ctx := context.Background()
	source := testSource(time.Now())
	svc := subscription.NewService(subscription.NewMemoryStore(), source, logger.NopLogger())
	subscribe := NewAvailabilitySubscription(svc)
	complete := NewCompleteAvailability(svc)

	t.Run("catch-up without subscriptions is rejected", func(t *testing.T) {
		_, err := complete.Process(ctx, ixsi.CompleteAvailabilityRequest{}, "A")
		assert.Equal(t, ixsi.CodeInvalidRequest, failureOf(t, err).Code)
	})

	t.Run("subscribe then catch up", func(t *testing.T) {
		_, err := subscribe.Process(ctx, ixsi.AvailabilitySubscriptionRequest{
			BookingTargetIDs: []ixsi.BookingTargetID{tid("1"), tid("2")},
		}, "A")
		require.NoError(t, err)

		resp, err := complete.Process(ctx, ixsi.CompleteAvailabilityRequest{}, "A")
		require.NoError(t, err)

		full := resp.(ixsi.CompleteAvailabilityResponse)
		assert.True(t, full.Last)
		assert.Equal(t, ixsi.SingleMessageBlockID, full.MessageBlockID)
		assert.Len(t, full.BookingTargets, 2)
	})

	t.Run("unsubscribe", func(t *testing.T) {
		_, err := subscribe.Process(ctx, ixsi.AvailabilitySubscriptionRequest{
			BookingTargetIDs: []ixsi.BookingTargetID{tid("1")},
			Unsubscription:   true,
		}, "A")
		require.NoError(t, err)

		targets, err := svc.ActiveTargets(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, []ixsi.BookingTargetID{tid("2")}, targets)
	})

	t.Run("subscriptions are per system", func(t *testing.T) {
		_, err := complete.Process(ctx, ixsi.CompleteAvailabilityRequest{}, "B")
		assert.Equal(t, ixsi.CodeInvalidRequest, failureOf(t, err).Code)
	})

	t.Run("non positive event horizon", func(t *testing.T) {
		horizon := 0
		_, err := subscribe.Process(ctx, ixsi.AvailabilitySubscriptionRequest{
			BookingTargetIDs:    []ixsi.BookingTargetID{tid("1")},
			EventHorizonMinutes: &horizon,
		}, "A")
		assert.Equal(t, ixsi.CodeInvalidRequest, failureOf(t, err).Code)
	})

	t.Run("error response of a catch-up is still a single block", func(t *testing.T) {
		resp := complete.BuildError(ixsi.BackendFailure("db down")).(ixsi.CompleteAvailabilityResponse)
		assert.True(t, resp.Last)
		assert.Equal(t, ixsi.SingleMessageBlockID, resp.MessageBlockID)
		assert.Equal(t, ixsi.CodeBackendFailure, resp.Failure().Code)
	})
}
