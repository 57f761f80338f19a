package authist

import (
	"context"
	"strings"
)

// Provider turns a presented credential into a User. Returned users never
// carry a secret.
type Provider interface {
	Name() string
	ResolveIdentity(ctx context.Context, key, secret string) (*User, error)
}

// ProviderHooks are the process wide collaborators every provider shares.
type ProviderHooks struct {
	OnAuthenticationFailure FailureHook
	SendRegistrationEmail   func(ctx context.Context, user *User) error
	ActivitySink            ActivitySink
	Logger                  Logger
}

// identityPipeline is the orchestration shared by every provider:
// lookup, optional auto-registration, sign-in validation, secret check,
// secret stripping.
type identityPipeline struct {
	provider string
	lookup   IdentityLookup
	hooks    ProviderHooks
}

func newIdentityPipeline(provider string, lookup IdentityLookup, hooks ProviderHooks) *identityPipeline {
	if hooks.Logger == nil {
		hooks.Logger = defaultLogger()
	}
	return &identityPipeline{
		provider: provider,
		lookup:   lookup,
		hooks:    hooks,
	}
}

// resolution describes one run of the pipeline. A nil register disables
// auto-registration; a nil checkSecret skips the secret comparison.
type resolution struct {
	key            string
	register       func(ctx context.Context) error
	validateSignIn func(ctx context.Context) error
	checkSecret    func(identity *Identity) error
}

func (p *identityPipeline) run(ctx context.Context, r resolution) (*User, error) {
	identity, err := p.lookup(ctx, r.key)
	if err != nil {
		return nil, p.fail(ctx, err)
	}

	if identity == nil {
		if r.register == nil {
			return nil, p.fail(ctx, ErrUserNotFound)
		}
		if identity, err = p.register(ctx, r.key, r.register); err != nil {
			return nil, err
		}
		if err := p.notifyRegistered(ctx, identity); err != nil {
			return nil, err
		}
	}

	if r.validateSignIn != nil {
		if err := r.validateSignIn(ctx); err != nil {
			return nil, p.fail(ctx, err)
		}
	}

	if r.checkSecret != nil {
		if err := r.checkSecret(identity); err != nil {
			return nil, p.fail(ctx, err)
		}
	}

	return strip(identity), nil
}

// register saves a new identity and reads it back by key. Storage that
// only reports success still yields the created record.
func (p *identityPipeline) register(ctx context.Context, key string, save func(ctx context.Context) error) (*Identity, error) {
	if err := save(ctx); err != nil {
		return nil, p.fail(ctx, err)
	}

	identity, err := p.lookup(ctx, key)
	if err != nil {
		return nil, p.fail(ctx, err)
	}
	if identity == nil {
		return nil, p.fail(ctx, ErrUserNotFound)
	}

	emitActivity(ctx, p.hooks.ActivitySink, p.hooks.Logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Provider:  p.provider,
		UserID:    identity.UID,
	})

	return identity, nil
}

func (p *identityPipeline) notifyRegistered(ctx context.Context, identity *Identity) error {
	if p.hooks.SendRegistrationEmail == nil {
		return nil
	}
	if err := p.hooks.SendRegistrationEmail(ctx, strip(identity)); err != nil {
		return p.fail(ctx, err)
	}
	return nil
}

func (p *identityPipeline) fail(ctx context.Context, err error) error {
	return notify(ctx, p.hooks.OnAuthenticationFailure, err)
}

// strip drops the password hash.
func strip(identity *Identity) *User {
	if identity == nil {
		return nil
	}
	user := identity.User
	return &user
}

// Profile is a third party account mapped to canonical fields.
type Profile struct {
	Provider      string         `json:"provider"`
	ID            string         `json:"id"`
	Email         string         `json:"email,omitempty"`
	EmailVerified bool           `json:"emailVerified,omitempty"`
	DisplayName   string         `json:"displayName,omitempty"`
	PhoneNumber   string         `json:"phoneNumber,omitempty"`
	PhotoURL      string         `json:"photoUrl,omitempty"`
	Raw           map[string]any `json:"raw,omitempty"`
}

// UserInfo maps the profile to the record handed to save hooks.
func (p *Profile) UserInfo() UserInfo {
	return UserInfo{
		UID:         p.ID,
		Email:       strings.TrimSpace(p.Email),
		DisplayName: p.DisplayName,
		PhoneNumber: p.PhoneNumber,
		PhotoURL:    p.PhotoURL,
		ProviderID:  p.Provider,
	}
}

// ProfileFetcher exchanges a third party access token for a profile.
// Transport failures come back as they are, not as taxonomy errors.
type ProfileFetcher interface {
	Name() string
	FetchProfile(ctx context.Context, token string) (*Profile, error)
}
