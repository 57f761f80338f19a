package bunstore

import (
	"time"

	"github.com/goliatone/go-authist"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserModel is the Bun model for stored identities. Email and username
// are both optional and unique when present.
type UserModel struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID            uuid.UUID      `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Email         string         `bun:"email,nullzero,unique" json:"email,omitempty"`
	Username      string         `bun:"username,nullzero,unique" json:"username,omitempty"`
	DisplayName   string         `bun:"display_name" json:"display_name,omitempty"`
	PhoneNumber   string         `bun:"phone_number" json:"phone_number,omitempty"`
	PhotoURL      string         `bun:"photo_url" json:"photo_url,omitempty"`
	ProviderID    string         `bun:"provider_id" json:"provider_id,omitempty"`
	ProviderUID   string         `bun:"provider_uid" json:"provider_uid,omitempty"`
	EmailVerified bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	PasswordHash  string         `bun:"password_hash" json:"-"`
	ProfileData   map[string]any `bun:"profile_data" json:"profile_data,omitempty"`
	LoggedInAt    *time.Time     `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt     time.Time      `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time      `bun:"updated_at,notnull" json:"updated_at"`
}

// ActivityModel is one persisted activity event.
type ActivityModel struct {
	bun.BaseModel `bun:"table:auth_activity,alias:act"`

	ID         int64          `bun:"id,pk,autoincrement" json:"id"`
	ActorID    string         `bun:"actor_id,notnull" json:"actor_id"`
	Verb       string         `bun:"verb,notnull" json:"verb"`
	ObjectType string         `bun:"object_type" json:"object_type,omitempty"`
	ObjectID   string         `bun:"object_id" json:"object_id,omitempty"`
	Channel    string         `bun:"channel" json:"channel,omitempty"`
	Metadata   map[string]any `bun:"metadata" json:"metadata,omitempty"`
	OccurredAt time.Time      `bun:"occurred_at,notnull" json:"occurred_at"`
}

func (m *UserModel) info() authist.UserInfo {
	return authist.UserInfo{
		UID:         m.ProviderUID,
		Email:       m.Email,
		Username:    m.Username,
		DisplayName: m.DisplayName,
		PhoneNumber: m.PhoneNumber,
		PhotoURL:    m.PhotoURL,
		ProviderID:  m.ProviderID,
	}
}

func (m *UserModel) user() *authist.User {
	user := &authist.User{
		UID:           m.ID.String(),
		Email:         m.Email,
		DisplayName:   m.DisplayName,
		PhoneNumber:   m.PhoneNumber,
		PhotoURL:      m.PhotoURL,
		EmailVerified: m.EmailVerified,
		ProviderData:  m.info(),
		Metadata: &authist.UserMetadata{
			CreationTime: m.CreatedAt,
		},
	}
	if m.LoggedInAt != nil {
		user.Metadata.LastSignInTime = *m.LoggedInAt
	}
	return user
}

func (m *UserModel) identity() *authist.Identity {
	return &authist.Identity{
		User:         *m.user(),
		PasswordHash: m.PasswordHash,
	}
}
