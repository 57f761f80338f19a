package authist

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenLifetime   = 60 * time.Minute
	DefaultRefreshLifetime = 24 * time.Hour
)

// Options is the process wide configuration handed to New. It is read
// once and never mutated afterwards.
type Options struct {
	Token TokenOptions

	// GetUserByID resolves token subjects for refresh and bearer checks.
	GetUserByID UserLookup

	EmailPassword    *PasswordProviderOptions
	UsernamePassword *PasswordProviderOptions
	OAuth            map[string]*OAuthProviderOptions
	// Providers are registered after the built-in ones and replace any
	// provider with the same name.
	Providers []Provider

	OnAuthenticationFailure FailureHook
	SendRegistrationEmail   func(ctx context.Context, user *User) error

	ActivitySink ActivitySink
	Logger       Logger
}

// TokenOptions configures signing and verification.
type TokenOptions struct {
	Lifetime        time.Duration
	RefreshLifetime time.Duration

	Secret     string
	PrivateKey crypto.Signer
	PublicKey  crypto.PublicKey
	JWKSURL    string
	Keyfunc    jwt.Keyfunc

	Issuer   string
	Audience []string

	Now             func() time.Time
	RevocationStore RevocationStore
}

func (o TokenOptions) accessLifetime() time.Duration {
	if o.Lifetime > 0 {
		return o.Lifetime
	}
	return DefaultTokenLifetime
}

func (o TokenOptions) refreshLifetime() time.Duration {
	if o.RefreshLifetime > 0 {
		return o.RefreshLifetime
	}
	return DefaultRefreshLifetime
}

// PasswordProviderOptions configures the email/password and the
// username/password providers. Only GetIdentity is required.
type PasswordProviderOptions struct {
	GetIdentity IdentityLookup

	// SaveNonExistingIdentity persists a new identity. The pipeline reads
	// it back through GetIdentity afterwards.
	SaveNonExistingIdentity func(ctx context.Context, info UserInfo, hashedPassword string) (*User, error)

	// ValidateIdentity runs before SaveNonExistingIdentity.
	ValidateIdentity func(ctx context.Context, info UserInfo, password string) error
	// ValidateSignIn runs before the password check, eg. lockouts.
	ValidateSignIn func(ctx context.Context, key, password string) error

	HashingAlgorithm HashingAlgorithm
	BcryptCost       int
	AutoRegister     bool

	UpdatePassword   func(ctx context.Context, hashedPassword string, user *User) error
	ValidatePassword func(ctx context.Context, password string) error

	GetResetPasswordToken      func(ctx context.Context, user *User) (string, error)
	SaveResetPasswordToken     func(ctx context.Context, token string, user *User) error
	ValidateResetPasswordToken func(ctx context.Context, token string) (*User, error)
	SendResetPasswordEmail     func(ctx context.Context, token string, user *User) error
}

// OAuthProviderOptions configures a provider that exchanges a third party
// access token for a profile.
type OAuthProviderOptions struct {
	Fetcher     ProfileFetcher
	GetIdentity IdentityLookup

	SaveNonExistingIdentity func(ctx context.Context, info UserInfo, profile *Profile) (*User, error)

	ValidateIdentity func(ctx context.Context, info UserInfo, profile *Profile) error
	ValidateSignIn   func(ctx context.Context, email string, profile *Profile) error
}

func (o Options) validate() error {
	if o.GetUserByID == nil {
		return errors.New("authist: Options.GetUserByID is required")
	}
	if o.EmailPassword != nil && o.EmailPassword.GetIdentity == nil {
		return errors.New("authist: EmailPassword.GetIdentity is required")
	}
	if o.UsernamePassword != nil && o.UsernamePassword.GetIdentity == nil {
		return errors.New("authist: UsernamePassword.GetIdentity is required")
	}
	for i, p := range o.Providers {
		if p == nil {
			return fmt.Errorf("authist: Options.Providers[%d] is nil", i)
		}
		if strings.TrimSpace(p.Name()) == "" {
			return fmt.Errorf("authist: Options.Providers[%d] has no name", i)
		}
	}
	for name, p := range o.OAuth {
		if p == nil {
			continue
		}
		if p.Fetcher == nil {
			return errors.New("authist: OAuth provider " + name + " has no Fetcher")
		}
		if p.GetIdentity == nil {
			return errors.New("authist: OAuth provider " + name + " has no GetIdentity")
		}
	}
	return nil
}
