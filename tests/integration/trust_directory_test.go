package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeman/internal/ixsi"
	"bikeman/internal/trust"
)

func TestPostgresSystemDirectory_IsValidSystem(t *testing.T) {
	infra := Setup(t, Postgres)

	_, err := infra.PostgresDB.Exec(`
		INSERT INTO partner_systems (system_id, name, enabled)
		VALUES ('partner-a', 'Partner A', TRUE), ('partner-off', 'Retired partner', FALSE)`)
	require.NoError(t, err)

	directory := trust.NewPostgresSystemDirectory(infra.PostgresDB)
	ctx := context.Background()

	tests := []struct {
		systemID string
		want     bool
	}{
		{"partner-a", true},
		{"partner-off", false},
		{"partner-unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.systemID, func(t *testing.T) {
			ok, err := directory.IsValidSystem(ctx, tt.systemID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestSystemValidator_PostgresDirectory(t *testing.T) {
	infra := Setup(t, Postgres)

	_, err := infra.PostgresDB.Exec(`INSERT INTO partner_systems (system_id) VALUES ('partner-a')`)
	require.NoError(t, err)

	validator := trust.NewSystemValidator(trust.NewPostgresSystemDirectory(infra.PostgresDB), createTestLogger())

	assert.Nil(t, validator.Validate(context.Background(), "partner-a"))

	rec := validator.Validate(context.Background(), "partner-b")
	require.NotNil(t, rec)
	assert.Equal(t, ixsi.CodeSystemUnknown, rec.Code)
}

func TestPostgresUserDirectory_ValidateUser(t *testing.T) {
	infra := Setup(t, Postgres)

	ctx := context.Background()
	directory := trust.NewPostgresUserDirectory(infra.PostgresDB)

	require.NoError(t, directory.CreateUser(ctx, ixsi.UserInfo{ProviderID: "bikeman", UserID: "alice", Password: "s3cret"}))

	identity, err := directory.ValidateUser(ctx, ixsi.UserInfo{ProviderID: "bikeman", UserID: "alice", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, ixsi.Identity{ProviderID: "bikeman", UserID: "alice"}, identity)

	_, err = directory.ValidateUser(ctx, ixsi.UserInfo{ProviderID: "bikeman", UserID: "alice", Password: "wrong"})
	var rec *ixsi.ErrorRecord
	require.True(t, errors.As(err, &rec))
	assert.Equal(t, ixsi.CodeUserInvalid, rec.Code)

	_, err = directory.ValidateUser(ctx, ixsi.UserInfo{ProviderID: "bikeman", UserID: "bob", Password: "s3cret"})
	require.True(t, errors.As(err, &rec))
	assert.Equal(t, ixsi.CodeUserInvalid, rec.Code)
}

func TestPostgresUserDirectory_CreateUserReplacesPassword(t *testing.T) {
	infra := Setup(t, Postgres)

	ctx := context.Background()
	directory := trust.NewPostgresUserDirectory(infra.PostgresDB)
	user := ixsi.UserInfo{ProviderID: "bikeman", UserID: "alice", Password: "first"}

	require.NoError(t, directory.CreateUser(ctx, user))
	user.Password = "second"
	require.NoError(t, directory.CreateUser(ctx, user))

	_, err := directory.ValidateUser(ctx, ixsi.UserInfo{ProviderID: "bikeman", UserID: "alice", Password: "first"})
	assert.Error(t, err)

	_, err = directory.ValidateUser(ctx, user)
	assert.NoError(t, err)
}

func TestAuthenticator_PostgresUsers(t *testing.T) {
	infra := Setup(t, Postgres)

	ctx := context.Background()
	directory := trust.NewPostgresUserDirectory(infra.PostgresDB)
	require.NoError(t, directory.CreateUser(ctx, ixsi.UserInfo{ProviderID: "bikeman", UserID: "alice", Password: "s3cret"}))

	auth := trust.NewAuthenticator(directory)
	identity, err := auth.Authenticate(ctx, &ixsi.AuthBlock{
		UserInfo: []ixsi.UserInfo{{ProviderID: "bikeman", UserID: "alice", Password: "s3cret"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.UserID)
}
