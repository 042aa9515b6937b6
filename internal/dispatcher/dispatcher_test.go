package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeman/internal/availability"
	"bikeman/internal/ixsi"
	"bikeman/internal/logger"
	"bikeman/internal/processor"
	"bikeman/internal/subscription"
	"bikeman/internal/trust"
	apperrors "bikeman/pkg/errors"
)

const knownSystem = "partner-a"

type fixture struct {
	registry *processor.Registry
	auth     *authSpy
	user     *userSpy
	opts     Options
}

func newFixture() *fixture {
	source := availability.NewMemorySource(availability.Target{
		State:     ixsi.AvailabilityRecord{Target: ixsi.BookingTargetID{ProviderID: "bikeman", ID: "1"}, Available: true},
		UpdatedAt: time.Now(),
	})

	registry := processor.NewRegistry()
	registry.RegisterStatic(processor.NewChangedProviders(source, "bikeman"))
	registry.RegisterStatic(processor.NewBookingTargetsInfo(source))

	user := &userSpy{tag: ixsi.TagAvailability}
	registry.RegisterUser(user)

	svc := subscription.NewService(subscription.NewMemoryStore(), source, logger.NopLogger())
	registry.RegisterSubscription(processor.NewAvailabilitySubscription(svc))
	registry.RegisterSubscription(processor.NewCompleteAvailability(svc))

	return &fixture{
		registry: registry,
		auth:     &authSpy{next: trust.NewAuthenticator(fakeUsers{password: "secret"})},
		user:     user,
	}
}

func (f *fixture) dispatcher() *Dispatcher {
	systems := trust.NewSystemValidator(trust.NewStaticSystemDirectory([]string{knownSystem}), logger.NopLogger())
	return New(f.registry, systems, f.auth, f.opts, logger.NopLogger())
}

func transaction(id string) ixsi.Transaction {
	return ixsi.Transaction{MessageID: id, TimeStamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func staticRequest(id string) ixsi.Request {
	return ixsi.Request{
		Transaction: transaction(id),
		SystemID:    knownSystem,
		Payload:     ixsi.ChangedProvidersRequest{Timestamp: time.Now().Add(-time.Hour)},
	}
}

func userRequest(id string, auth *ixsi.AuthBlock) ixsi.Request {
	return ixsi.Request{
		Transaction: transaction(id),
		SystemID:    knownSystem,
		Language:    "de",
		Auth:        auth,
		Payload: ixsi.AvailabilityRequest{
			BookingTargetIDs: []ixsi.BookingTargetID{{ProviderID: "bikeman", ID: "1"}},
		},
	}
}

func validUser() *ixsi.AuthBlock {
	return &ixsi.AuthBlock{UserInfo: []ixsi.UserInfo{{ProviderID: "bikeman", UserID: "u1", Password: "secret"}}}
}

func envelope(requests ...ixsi.Request) ixsi.Envelope {
	return ixsi.Envelope{TransactionID: "tx-1", Requests: requests}
}

func TestDispatch_OrderAndLength(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			f := newFixture()
			f.opts = Options{Parallel: parallel, MaxConcurrency: 2}

			unknown := staticRequest("m3")
			unknown.SystemID = "nobody"

			in := envelope(
				staticRequest("m1"),
				userRequest("m2", &ixsi.AuthBlock{Anonymous: true}),
				unknown,
				ixsi.Request{Transaction: transaction("m4"), SystemID: knownSystem, Payload: ixsi.BookingTargetsInfoRequest{}},
			)

			out, err := f.dispatcher().Dispatch(context.Background(), in)
			require.NoError(t, err)

			assert.Equal(t, "tx-1", out.TransactionID)
			require.Len(t, out.Responses, len(in.Requests))
			for i, resp := range out.Responses {
				assert.Equal(t, in.Requests[i].Transaction, resp.Transaction)
				assert.Equal(t, in.Requests[i].Tag(), resp.Payload.Tag())
				assert.GreaterOrEqual(t, resp.CalcTime, time.Duration(0))
			}

			assert.Nil(t, out.Responses[0].Failure())
			assert.Nil(t, out.Responses[1].Failure())
			assert.Equal(t, ixsi.CodeSystemUnknown, out.Responses[2].Failure().Code)
			assert.Nil(t, out.Responses[3].Failure())
		})
	}
}

func TestDispatch_ParallelKeepsSlots(t *testing.T) {
	f := newFixture()
	f.registry = processor.NewRegistry()
	f.registry.RegisterStatic(&staticFunc{
		tag: ixsi.TagBookingTargetsInfo,
		fn: func(_ context.Context, req ixsi.StaticRequest) (ixsi.StaticResponse, error) {
			providers := req.(ixsi.BookingTargetsInfoRequest).ProviderIDs
			// Later requests finish first.
			delay, _ := time.ParseDuration(providers[1])
			time.Sleep(delay)
			return ixsi.BookingTargetsInfoResponse{
				BookingTargets: []ixsi.BookingTargetInfo{{Name: providers[0]}},
			}, nil
		},
	})
	f.opts = Options{Parallel: true, MaxConcurrency: 8}

	const n = 8
	requests := make([]ixsi.Request, n)
	for i := range requests {
		requests[i] = ixsi.Request{
			Transaction: transaction(fmt.Sprintf("m%d", i)),
			SystemID:    knownSystem,
			Payload: ixsi.BookingTargetsInfoRequest{
				ProviderIDs: []string{fmt.Sprintf("p%d", i), fmt.Sprintf("%dms", (n-i)*5)},
			},
		}
	}

	out, err := f.dispatcher().Dispatch(context.Background(), envelope(requests...))
	require.NoError(t, err)
	require.Len(t, out.Responses, n)
	for i, resp := range out.Responses {
		info := resp.Payload.(ixsi.BookingTargetsInfoResponse)
		assert.Equal(t, fmt.Sprintf("p%d", i), info.BookingTargets[0].Name)
		assert.Equal(t, fmt.Sprintf("m%d", i), resp.Transaction.MessageID)
	}
}

func TestDispatch_UnknownSystemNeverReachesRegistryOrAuth(t *testing.T) {
	f := newFixture()
	// An empty registry would abort the envelope if it were consulted.
	f.registry = processor.NewRegistry()

	requests := []ixsi.Request{
		staticRequest("m1"),
		userRequest("m2", validUser()),
		{Transaction: transaction("m3"), Payload: ixsi.CompleteAvailabilityRequest{}},
	}
	requests[0].SystemID = "nobody"
	requests[1].SystemID = "nobody"

	out, err := f.dispatcher().Dispatch(context.Background(), envelope(requests...))
	require.NoError(t, err)
	require.Len(t, out.Responses, 3)

	for i, resp := range out.Responses {
		require.NotNil(t, resp.Failure(), i)
		assert.Equal(t, ixsi.CodeSystemUnknown, resp.Failure().Code)
		assert.Equal(t, requests[i].Tag(), resp.Payload.Tag())
	}
	assert.Zero(t, f.auth.calls.Load())
	assert.Empty(t, f.user.calls)
}

func TestDispatch_Authentication(t *testing.T) {
	tests := []struct {
		name        string
		auth        *ixsi.AuthBlock
		wantCode    ixsi.ErrorCode
		wantMessage string
		wantCall    *userCall
	}{
		{
			name:     "anonymous",
			auth:     &ixsi.AuthBlock{Anonymous: true},
			wantCall: &userCall{identity: ixsi.AnonymousIdentity(), language: "de"},
		},
		{
			name:     "single user",
			auth:     validUser(),
			wantCall: &userCall{identity: ixsi.Identity{ProviderID: "bikeman", UserID: "u1"}, language: "de"},
		},
		{
			name: "two credential sets",
			auth: &ixsi.AuthBlock{UserInfo: []ixsi.UserInfo{
				{ProviderID: "bikeman", UserID: "u1", Password: "secret"},
				{ProviderID: "bikeman", UserID: "u2", Password: "secret"},
			}},
			wantCode:    ixsi.CodeInvalidRequest,
			wantMessage: "More than one user per request is not allowed",
		},
		{
			name:        "wrong password",
			auth:        &ixsi.AuthBlock{UserInfo: []ixsi.UserInfo{{ProviderID: "bikeman", UserID: "u1", Password: "nope"}}},
			wantCode:    ixsi.CodeUserInvalid,
			wantMessage: "Wrong password",
		},
		{
			name:        "session",
			auth:        &ixsi.AuthBlock{SessionID: "s-1"},
			wantCode:    ixsi.CodeNotImplemented,
			wantMessage: "Session-based authentication is not supported",
		},
		{
			name:        "no auth block",
			wantCode:    ixsi.CodeNotImplemented,
			wantMessage: "Authentication requirements are not met",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			out, err := f.dispatcher().Dispatch(context.Background(), envelope(userRequest("m1", tt.auth)))
			require.NoError(t, err)
			require.Len(t, out.Responses, 1)

			rec := out.Responses[0].Failure()
			if tt.wantCall != nil {
				assert.Nil(t, rec)
				require.Len(t, f.user.calls, 1)
				assert.Equal(t, *tt.wantCall, f.user.calls[0])
				return
			}

			require.NotNil(t, rec)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMessage, rec.Message)
			assert.Empty(t, f.user.calls)
		})
	}
}

func TestDispatch_FailingProcessorOnlyAffectsItsSlot(t *testing.T) {
	tests := []struct {
		name        string
		fn          func(ctx context.Context) (ixsi.UserResponse, error)
		wantMessage string
	}{
		{
			name:        "panic",
			fn:          func(context.Context) (ixsi.UserResponse, error) { panic("db down") },
			wantMessage: "db down",
		},
		{
			name:        "panic with error value",
			fn:          func(context.Context) (ixsi.UserResponse, error) { panic(errors.New("db down")) },
			wantMessage: "db down",
		},
		{
			name:        "returned error",
			fn:          func(context.Context) (ixsi.UserResponse, error) { return nil, errors.New("db down") },
			wantMessage: "db down",
		},
		{
			name:        "no response",
			fn:          func(context.Context) (ixsi.UserResponse, error) { return nil, nil },
			wantMessage: noResponseMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.user.fn = tt.fn

			out, err := f.dispatcher().Dispatch(context.Background(), envelope(
				userRequest("m1", validUser()),
				staticRequest("m2"),
			))
			require.NoError(t, err)
			require.Len(t, out.Responses, 2)

			failed := out.Responses[0]
			require.NotNil(t, failed.Failure())
			assert.Equal(t, ixsi.CodeBackendFailure, failed.Failure().Code)
			assert.Equal(t, tt.wantMessage, failed.Failure().Message)
			assert.Equal(t, ixsi.TagAvailability, failed.Payload.Tag())
			assert.Equal(t, transaction("m1"), failed.Transaction)

			ok := out.Responses[1]
			assert.Nil(t, ok.Failure())
			assert.Equal(t, []string{"bikeman"}, ok.Payload.(ixsi.ChangedProvidersResponse).Providers)
		})
	}
}

func TestDispatch_ProtocolErrorPassesThrough(t *testing.T) {
	f := newFixture()
	rec := ixsi.InvalidRequest("Unknown booking target", "bikeman:9")
	f.user.fn = func(context.Context) (ixsi.UserResponse, error) {
		return nil, fmt.Errorf("lookup: %w", rec)
	}

	out, err := f.dispatcher().Dispatch(context.Background(), envelope(userRequest("m1", validUser())))
	require.NoError(t, err)
	assert.Same(t, rec, out.Responses[0].Failure())
}

func TestDispatch_RequestTimeout(t *testing.T) {
	f := newFixture()
	f.opts = Options{RequestTimeout: 20 * time.Millisecond}
	f.user.fn = func(ctx context.Context) (ixsi.UserResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	out, err := f.dispatcher().Dispatch(context.Background(), envelope(userRequest("m1", validUser()), staticRequest("m2")))
	require.NoError(t, err)

	assert.Equal(t, ixsi.CodeBackendFailure, out.Responses[0].Failure().Code)
	assert.Nil(t, out.Responses[1].Failure())
}

func TestDispatch_SubscriptionFamily(t *testing.T) {
	f := newFixture()
	d := f.dispatcher()
	ctx := context.Background()

	subscribe := ixsi.Request{
		Transaction: transaction("m1"),
		SystemID:    knownSystem,
		Payload: ixsi.AvailabilitySubscriptionRequest{
			BookingTargetIDs: []ixsi.BookingTargetID{{ProviderID: "bikeman", ID: "1"}},
		},
	}
	complete := ixsi.Request{Transaction: transaction("m2"), SystemID: knownSystem, Payload: ixsi.CompleteAvailabilityRequest{}}

	out, err := d.Dispatch(ctx, envelope(complete))
	require.NoError(t, err)
	rec := out.Responses[0].Failure()
	require.NotNil(t, rec)
	assert.Equal(t, "No subscriptions", rec.Message)
	assert.True(t, out.Responses[0].Payload.(ixsi.CompleteAvailabilityResponse).Last)

	out, err = d.Dispatch(ctx, envelope(subscribe, complete))
	require.NoError(t, err)
	require.Len(t, out.Responses, 2)
	assert.Nil(t, out.Responses[0].Failure())

	full := out.Responses[1].Payload.(ixsi.CompleteAvailabilityResponse)
	assert.Nil(t, full.Failure())
	assert.Len(t, full.BookingTargets, 1)
	assert.Equal(t, ixsi.SingleMessageBlockID, full.MessageBlockID)
}

func TestDispatch_ConfigurationFaultAbortsEnvelope(t *testing.T) {
	t.Run("missing processor", func(t *testing.T) {
		f := newFixture()
		f.registry = processor.NewRegistry()
		f.registry.RegisterStatic(processor.NewChangedProviders(availability.NewMemorySource(), "bikeman"))

		out, err := f.dispatcher().Dispatch(context.Background(), envelope(
			staticRequest("m1"),
			userRequest("m2", validUser()),
		))
		require.Error(t, err)
		assert.True(t, apperrors.IsConfigurationFault(err))
		assert.Empty(t, out.Responses)
	})

	t.Run("payload without family", func(t *testing.T) {
		f := newFixture()

		out, err := f.dispatcher().Dispatch(context.Background(), envelope(ixsi.Request{
			Transaction: transaction("m1"),
			SystemID:    knownSystem,
		}))
		require.Error(t, err)
		assert.True(t, apperrors.IsConfigurationFault(err))
		assert.Empty(t, out.Responses)
	})

	t.Run("parallel", func(t *testing.T) {
		f := newFixture()
		f.registry = processor.NewRegistry()
		f.opts = Options{Parallel: true, MaxConcurrency: 2}

		_, err := f.dispatcher().Dispatch(context.Background(), envelope(staticRequest("m1"), staticRequest("m2")))
		assert.True(t, apperrors.IsConfigurationFault(err))
	})
}

func TestDispatch_EmptyEnvelope(t *testing.T) {
	f := newFixture()

	out, err := f.dispatcher().Dispatch(context.Background(), ixsi.Envelope{TransactionID: "tx-0"})
	require.NoError(t, err)
	assert.Equal(t, "tx-0", out.TransactionID)
	assert.Empty(t, out.Responses)
}
