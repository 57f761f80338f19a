// Package bunstore persists identities with Bun. Its methods match the
// authist lookup and save hooks so they can be passed to Options directly.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-authist"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store implements identity storage on a bun.DB. Both repositories share
// the users table; they differ in the column GetByIdentifier matches.
type Store struct {
	db        *bun.DB
	users     repository.Repository[*UserModel]
	usernames repository.Repository[*UserModel]
	useHashid bool
	now       func() time.Time
}

func newUserRepository(db *bun.DB, identifier string) repository.Repository[*UserModel] {
	return repository.NewRepository[*UserModel](db, repository.ModelHandlers[*UserModel]{
		NewRecord: func() *UserModel { return &UserModel{} },
		GetID: func(m *UserModel) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *UserModel, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
		GetIdentifier: func() string {
			return identifier
		},
	})
}

// Option configures a Store.
type Option func(*Store)

// WithHashid derives user ids from the identity key instead of random
// UUIDs, so the same email maps to the same id across environments.
func WithHashid() Option {
	return func(s *Store) {
		s.useHashid = true
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a store.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:        db,
		users:     newUserRepository(db, "email"),
		usernames: newUserRepository(db, "username"),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateSchema creates the users and activity tables if missing.
func (s *Store) CreateSchema(ctx context.Context) error {
	models := []any{
		(*UserModel)(nil),
		(*ActivityModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// GetUserByID implements authist.UserLookup.
func (s *Store) GetUserByID(ctx context.Context, uid string) (*authist.User, error) {
	id, err := uuid.Parse(strings.TrimSpace(uid))
	if err != nil {
		return nil, nil
	}

	model, err := found(s.users.GetByID(ctx, id.String()))
	if err != nil || model == nil {
		return nil, err
	}
	return model.user(), nil
}

// GetIdentityByEmail implements authist.IdentityLookup for email keys.
func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (*authist.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	model, err := found(s.users.GetByIdentifier(ctx, email))
	if err != nil || model == nil {
		return nil, err
	}
	return model.identity(), nil
}

// GetIdentityByUsername implements authist.IdentityLookup for username keys.
func (s *Store) GetIdentityByUsername(ctx context.Context, username string) (*authist.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	model, err := found(s.usernames.GetByIdentifier(ctx, username))
	if err != nil || model == nil {
		return nil, err
	}
	return model.identity(), nil
}

// SaveIdentity stores a password identity. It serves both the email and
// the username provider since info carries whichever key was used.
func (s *Store) SaveIdentity(ctx context.Context, info authist.UserInfo, hashed string) (*authist.User, error) {
	model := s.newModel(info)
	model.PasswordHash = hashed
	return s.insert(ctx, model)
}

// SaveProfileIdentity stores an identity resolved by an OAuth provider.
func (s *Store) SaveProfileIdentity(ctx context.Context, info authist.UserInfo, profile *authist.Profile) (*authist.User, error) {
	model := s.newModel(info)
	if profile != nil {
		model.EmailVerified = profile.EmailVerified
		model.ProfileData = profile.Raw
	}
	return s.insert(ctx, model)
}

// UpdatePassword implements the reset flow UpdatePassword hook.
func (s *Store) UpdatePassword(ctx context.Context, hashed string, user *authist.User) error {
	if user == nil {
		return authist.ErrUserNotFound
	}
	id, err := uuid.Parse(user.UID)
	if err != nil {
		return authist.ErrUserNotFound.Wrap(err)
	}

	model, err := found(s.users.GetByID(ctx, id.String()))
	if err != nil {
		return err
	}
	if model == nil {
		return authist.ErrUserNotFound
	}

	model.PasswordHash = hashed
	model.UpdatedAt = s.now().UTC()
	_, err = s.users.UpdateTx(ctx, s.db, model, repository.UpdateByID(id.String()))
	return err
}

// TouchSignIn records the last sign-in time for uid.
func (s *Store) TouchSignIn(ctx context.Context, uid string) error {
	id, err := uuid.Parse(uid)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	_, err = s.db.NewUpdate().
		Model((*UserModel)(nil)).
		Set("loggedin_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// found maps a missing record to (nil, nil), the contract of the authist
// lookup hooks.
func found(model *UserModel, err error) (*UserModel, error) {
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return model, nil
}

func (s *Store) newModel(info authist.UserInfo) *UserModel {
	now := s.now().UTC()
	model := &UserModel{
		ID:          uuid.New(),
		Email:       strings.TrimSpace(info.Email),
		Username:    strings.TrimSpace(info.Username),
		DisplayName: info.DisplayName,
		PhoneNumber: info.PhoneNumber,
		PhotoURL:    info.PhotoURL,
		ProviderID:  info.ProviderID,
		ProviderUID: info.UID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.useHashid {
		key := model.Email
		if key == "" {
			key = model.Username
		}
		if id, err := hashid.NewUUID(key); err == nil {
			model.ID = id
		}
	}
	return model
}

func (s *Store) insert(ctx context.Context, model *UserModel) (*authist.User, error) {
	created, err := s.users.Create(ctx, model)
	if err != nil {
		return nil, err
	}
	return created.user(), nil
}
