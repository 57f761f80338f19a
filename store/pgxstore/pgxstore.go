// Package pgxstore persists identities in PostgreSQL through a pgxpool.
package pgxstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-authist"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS authist_users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email TEXT UNIQUE,
	username TEXT UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	phone_number TEXT NOT NULL DEFAULT '',
	photo_url TEXT NOT NULL DEFAULT '',
	provider_id TEXT NOT NULL DEFAULT '',
	provider_uid TEXT NOT NULL DEFAULT '',
	is_email_verified BOOLEAN NOT NULL DEFAULT FALSE,
	password_hash TEXT NOT NULL DEFAULT '',
	loggedin_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const userColumns = `id::text, COALESCE(email, ''), COALESCE(username, ''), display_name, phone_number,
	photo_url, provider_id, provider_uid, is_email_verified, password_hash, loggedin_at, created_at`

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateSchema creates the users table if missing.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// GetUserByID implements authist.UserLookup.
func (s *Store) GetUserByID(ctx context.Context, uid string) (*authist.User, error) {
	identity, err := s.queryIdentity(ctx, `SELECT `+userColumns+` FROM authist_users WHERE id::text = $1`, strings.TrimSpace(uid))
	if err != nil || identity == nil {
		return nil, err
	}
	user := identity.User
	return &user, nil
}

// GetIdentityByEmail implements authist.IdentityLookup for email keys.
func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (*authist.Identity, error) {
	return s.queryIdentity(ctx, `SELECT `+userColumns+` FROM authist_users WHERE email = $1`, strings.TrimSpace(email))
}

// GetIdentityByUsername implements authist.IdentityLookup for username keys.
func (s *Store) GetIdentityByUsername(ctx context.Context, username string) (*authist.Identity, error) {
	return s.queryIdentity(ctx, `SELECT `+userColumns+` FROM authist_users WHERE username = $1`, strings.TrimSpace(username))
}

// SaveIdentity stores a password identity keyed by email or username.
func (s *Store) SaveIdentity(ctx context.Context, info authist.UserInfo, hashed string) (*authist.User, error) {
	return s.insert(ctx, info, hashed, false)
}

// SaveProfileIdentity stores an identity resolved by an OAuth provider.
func (s *Store) SaveProfileIdentity(ctx context.Context, info authist.UserInfo, profile *authist.Profile) (*authist.User, error) {
	verified := profile != nil && profile.EmailVerified
	return s.insert(ctx, info, "", verified)
}

// UpdatePassword implements the reset flow UpdatePassword hook.
func (s *Store) UpdatePassword(ctx context.Context, hashed string, user *authist.User) error {
	if user == nil {
		return authist.ErrUserNotFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE authist_users SET password_hash = $1, updated_at = now() WHERE id::text = $2`,
		hashed, user.UID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authist.ErrUserNotFound
	}
	return nil
}

// TouchSignIn records the last sign-in time for uid.
func (s *Store) TouchSignIn(ctx context.Context, uid string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE authist_users SET loggedin_at = now(), updated_at = now() WHERE id::text = $1`, uid)
	return err
}

// ActivitySink keeps loggedin_at current on successful sign-ins.
func (s *Store) ActivitySink() authist.ActivitySink {
	return authist.ActivitySinkFunc(func(ctx context.Context, event authist.ActivityEvent) error {
		if !event.EventType.IsSignIn() || event.UserID == "" {
			return nil
		}
		return s.TouchSignIn(ctx, event.UserID)
	})
}

func (s *Store) insert(ctx context.Context, info authist.UserInfo, hashed string, verified bool) (*authist.User, error) {
	q := `INSERT INTO authist_users
		(email, username, display_name, phone_number, photo_url, provider_id, provider_uid, is_email_verified, password_hash)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	identity, err := scanIdentity(s.pool.QueryRow(ctx, q,
		strings.TrimSpace(info.Email), strings.TrimSpace(info.Username), info.DisplayName,
		info.PhoneNumber, info.PhotoURL, info.ProviderID, info.UID, verified, hashed))
	if err != nil {
		return nil, err
	}
	user := identity.User
	return &user, nil
}

func (s *Store) queryIdentity(ctx context.Context, q string, arg any) (*authist.Identity, error) {
	identity, err := scanIdentity(s.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return identity, nil
}

func scanIdentity(row pgx.Row) (*authist.Identity, error) {
	var (
		identity   authist.Identity
		info       authist.UserInfo
		loggedInAt *time.Time
		createdAt  time.Time
	)
	err := row.Scan(
		&identity.UID, &info.Email, &info.Username, &info.DisplayName, &info.PhoneNumber,
		&info.PhotoURL, &info.ProviderID, &info.UID, &identity.EmailVerified, &identity.PasswordHash,
		&loggedInAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	identity.Email = info.Email
	identity.DisplayName = info.DisplayName
	identity.PhoneNumber = info.PhoneNumber
	identity.PhotoURL = info.PhotoURL
	identity.ProviderData = info
	identity.Metadata = &authist.UserMetadata{CreationTime: createdAt}
	if loggedInAt != nil {
		identity.Metadata.LastSignInTime = *loggedInAt
	}
	return &identity, nil
}
