package authist

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// User is the authenticated subject handed back to callers. It never
// carries a secret.
type User struct {
	UID           string        `json:"uid"`
	Email         string        `json:"email,omitempty"`
	DisplayName   string        `json:"displayName,omitempty"`
	PhoneNumber   string        `json:"phoneNumber,omitempty"`
	PhotoURL      string        `json:"photoUrl,omitempty"`
	EmailVerified bool          `json:"emailVerified,omitempty"`
	IsAnonymous   bool          `json:"isAnonymous,omitempty"`
	ProviderData  UserInfo      `json:"providerData"`
	Metadata      *UserMetadata `json:"metadata,omitempty"`
}

// UserInfo is the normalized identity record handed to save hooks.
type UserInfo struct {
	UID         string `json:"uid,omitempty"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	ProviderID  string `json:"providerId,omitempty"`
}

type UserMetadata struct {
	CreationTime   time.Time `json:"creationTime"`
	LastSignInTime time.Time `json:"lastSignInTime"`
}

// Identity is a stored user together with its password hash. It only
// exists between a storage collaborator and a provider.
type Identity struct {
	User
	PasswordHash string `json:"-"`
}

// Credentials is the access/refresh pair minted on sign-in or refresh.
// ExpiresIn and RefreshExpiresIn are seconds.
type Credentials struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
}

type UserCredentials struct {
	User        *User        `json:"user"`
	Credentials *Credentials `json:"credentials"`
}

// UserLookup resolves a uid. Returning (nil, nil) means not found.
type UserLookup func(ctx context.Context, uid string) (*User, error)

// IdentityLookup resolves a primary key (email, username) to a stored
// identity. Returning (nil, nil) means not found.
type IdentityLookup func(ctx context.Context, key string) (*Identity, error)

// FailureHook observes every failure before it is returned. It cannot
// change the outcome.
type FailureHook func(ctx context.Context, err error)

type zerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger adapts a zerolog logger to Logger.
func NewZerologLogger(l zerolog.Logger) Logger {
	return zerologLogger{l: l}
}

func defaultLogger() Logger {
	return zerologLogger{
		l: zerolog.New(os.Stderr).With().Timestamp().Str("component", "authist").Logger(),
	}
}

func (z zerologLogger) Debug(format string, args ...any) {
	z.l.Debug().Msgf(format, args...)
}

func (z zerologLogger) Info(format string, args ...any) {
	z.l.Info().Msgf(format, args...)
}

func (z zerologLogger) Warn(format string, args ...any) {
	z.l.Warn().Msgf(format, args...)
}

func (z zerologLogger) Error(format string, args ...any) {
	z.l.Error().Msgf(format, args...)
}
