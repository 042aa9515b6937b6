package trust

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bikeman/internal/ixsi"
	"bikeman/internal/logger"
)

type fakeUsers struct {
	calls int
	err   error
}

func (f *fakeUsers) ValidateUser(_ context.Context, user ixsi.UserInfo) (ixsi.Identity, error) {
	f.calls++
	if f.err != nil {
		return ixsi.Identity{}, f.err
	}
	return ixsi.Identity{ProviderID: user.ProviderID, UserID: user.UserID}, nil
}

func errorCode(t *testing.T, err error) ixsi.ErrorCode {
	t.Helper()
	var rec *ixsi.ErrorRecord
	require.ErrorAs(t, err, &rec)
	return rec.Code
}

func TestAuthenticator(t *testing.T) {
	alice := ixsi.UserInfo{ProviderID: "bikeman", UserID: "alice", Password: "secret"}
	bob := ixsi.UserInfo{ProviderID: "bikeman", UserID: "bob", Password: "secret"}

	tests := []struct {
		name      string
		auth      *ixsi.AuthBlock
		wantCode  ixsi.ErrorCode
		wantID    ixsi.Identity
		wantCalls int
	}{
		{
			name:   "anonymous",
			auth:   &ixsi.AuthBlock{Anonymous: true},
			wantID: ixsi.AnonymousIdentity(),
		},
		{
			name:   "anonymous wins over credentials",
			auth:   &ixsi.AuthBlock{Anonymous: true, UserInfo: []ixsi.UserInfo{alice, bob}, SessionID: "s"},
			wantID: ixsi.AnonymousIdentity(),
		},
		{
			name:      "single user",
			auth:      &ixsi.AuthBlock{UserInfo: []ixsi.UserInfo{alice}},
			wantID:    ixsi.Identity{ProviderID: "bikeman", UserID: "alice"},
			wantCalls: 1,
		},
		{
			name:     "two users",
			auth:     &ixsi.AuthBlock{UserInfo: []ixsi.UserInfo{alice, bob}},
			wantCode: ixsi.CodeInvalidRequest,
		},
		{
			name:     "empty user list",
			auth:     &ixsi.AuthBlock{UserInfo: []ixsi.UserInfo{}},
			wantCode: ixsi.CodeInvalidRequest,
		},
		{
			name:      "credentials win over session",
			auth:      &ixsi.AuthBlock{UserInfo: []ixsi.UserInfo{alice}, SessionID: "s"},
			wantID:    ixsi.Identity{ProviderID: "bikeman", UserID: "alice"},
			wantCalls: 1,
		},
		{
			name:     "session",
			auth:     &ixsi.AuthBlock{SessionID: "valid-session"},
			wantCode: ixsi.CodeNotImplemented,
		},
		{
			name:     "empty block",
			auth:     &ixsi.AuthBlock{},
			wantCode: ixsi.CodeNotImplemented,
		},
		{
			name:     "missing block",
			auth:     nil,
			wantCode: ixsi.CodeNotImplemented,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &fakeUsers{}
			id, err := NewAuthenticator(users).Authenticate(context.Background(), tt.auth)

			assert.Equal(t, tt.wantCalls, users.calls)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, err))
				assert.Equal(t, ixsi.Identity{}, id)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestAuthenticator_TwoUsersMessage(t *testing.T) {
	auth := &ixsi.AuthBlock{UserInfo: []ixsi.UserInfo{{UserID: "a"}, {UserID: "b"}}}
	_, err := NewAuthenticator(&fakeUsers{}).Authenticate(context.Background(), auth)

	var rec *ixsi.ErrorRecord
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, "More than one user per request is not allowed", rec.Message)
}

func TestAuthenticator_DirectoryErrorsPassThrough(t *testing.T) {
	auth := &ixsi.AuthBlock{UserInfo: []ixsi.UserInfo{{UserID: "a"}}}

	invalid := ixsi.UserInvalid("Invalid password")
	_, err := NewAuthenticator(&fakeUsers{err: invalid}).Authenticate(context.Background(), auth)
	assert.Same(t, invalid, err)

	dbDown := errors.New("db down")
	_, err = NewAuthenticator(&fakeUsers{err: dbDown}).Authenticate(context.Background(), auth)
	assert.ErrorIs(t, err, dbDown)
}

type brokenDirectory struct{}

func (brokenDirectory) IsValidSystem(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestSystemValidator(t *testing.T) {
	ctx := context.Background()
	v := NewSystemValidator(NewStaticSystemDirectory([]string{"partner-a"}), logger.NopLogger())

	assert.Nil(t, v.Validate(ctx, "partner-a"))

	rec := v.Validate(ctx, "partner-x")
	require.NotNil(t, rec)
	assert.Equal(t, ixsi.CodeSystemUnknown, rec.Code)

	rec = v.Validate(ctx, "")
	require.NotNil(t, rec)
	assert.Equal(t, ixsi.CodeSystemUnknown, rec.Code)

	broken := NewSystemValidator(brokenDirectory{}, logger.NopLogger())
	rec = broken.Validate(ctx, "partner-a")
	require.NotNil(t, rec)
	assert.Equal(t, ixsi.CodeSystemUnknown, rec.Code)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")))
	assert.ErrorIs(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong")), bcrypt.ErrMismatchedHashAndPassword)
}

func TestClosedUserDirectory(t *testing.T) {
	a := NewAuthenticator(ClosedUserDirectory{})

	_, err := a.Authenticate(context.Background(), &ixsi.AuthBlock{UserInfo: []ixsi.UserInfo{{ProviderID: "bikeman", UserID: "u1"}}})
	var rec *ixsi.ErrorRecord
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, ixsi.CodeUserInvalid, rec.Code)

	identity, err := a.Authenticate(context.Background(), &ixsi.AuthBlock{Anonymous: true})
	require.NoError(t, err)
	assert.True(t, identity.Anonymous)
}
