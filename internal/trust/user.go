package trust

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bikeman/internal/ixsi"
)

// UserDirectory validates end-user credentials. A credential problem is reported as an
// *ixsi.ErrorRecord; any other error means the directory itself failed.
type UserDirectory interface {
	ValidateUser(ctx context.Context, user ixsi.UserInfo) (ixsi.Identity, error)
}

// ClosedUserDirectory knows no users, so only anonymous requests get through. It stands in
// when no user store is configured.
type ClosedUserDirectory struct{}

func (ClosedUserDirectory) ValidateUser(context.Context, ixsi.UserInfo) (ixsi.Identity, error) {
	return ixsi.Identity{}, ixsi.UserInvalid("Unknown user")
}

// PostgresUserDirectory checks credentials against bcrypt hashes in the ixsi_users table.
type PostgresUserDirectory struct {
	db *sql.DB
}

func NewPostgresUserDirectory(db *sql.DB) *PostgresUserDirectory {
	return &PostgresUserDirectory{db: db}
}

func (d *PostgresUserDirectory) ValidateUser(ctx context.Context, user ixsi.UserInfo) (ixsi.Identity, error) {
	start := time.Now()
	var hash string
	var enabled bool
	err := d.db.QueryRowContext(ctx,
		`SELECT password_hash, enabled FROM ixsi_users WHERE provider_id = $1 AND user_id = $2`,
		user.ProviderID, user.UserID,
	).Scan(&hash, &enabled)
	observeQuery("ixsi_users", start, err)

	if errors.Is(err, sql.ErrNoRows) {
		return ixsi.Identity{}, ixsi.UserInvalid("Unknown user")
	}
	if err != nil {
		return ixsi.Identity{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if !enabled {
		return ixsi.Identity{}, ixsi.UserInvalid("User is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(user.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ixsi.Identity{}, ixsi.UserInvalid("Invalid password")
		}
		return ixsi.Identity{}, fmt.Errorf("failed to verify password: %w", err)
	}

	return ixsi.Identity{ProviderID: user.ProviderID, UserID: user.UserID}, nil
}

// CreateUser stores a user with a bcrypt hash of password, replacing an existing entry.
func (d *PostgresUserDirectory) CreateUser(ctx context.Context, user ixsi.UserInfo) error {
	hash, err := HashPassword(user.Password)
	if err != nil {
		return err
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO ixsi_users (provider_id, user_id, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_id, user_id) DO UPDATE SET password_hash = EXCLUDED.password_hash, enabled = TRUE`,
		user.ProviderID, user.UserID, hash,
	)
	if err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
