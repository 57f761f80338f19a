package authist

import (
	"context"
	"strings"
)

const (
	ProviderEmailPassword    = "emailPassword"
	ProviderUsernamePassword = "usernamePassword"
)

// PasswordProvider resolves an identity from a key (email or username)
// and a password.
type PasswordProvider struct {
	name        string
	opts        *PasswordProviderOptions
	keyRequired *Error
	info        func(key string) UserInfo
	pipeline    *identityPipeline
}

// NewEmailPasswordProvider keys identities by email address.
func NewEmailPasswordProvider(opts *PasswordProviderOptions, hooks ProviderHooks) *PasswordProvider {
	return &PasswordProvider{
		name:        ProviderEmailPassword,
		opts:        opts,
		keyRequired: ErrEmailRequired,
		info: func(key string) UserInfo {
			return UserInfo{Email: key, ProviderID: ProviderEmailPassword}
		},
		pipeline: newIdentityPipeline(ProviderEmailPassword, opts.GetIdentity, hooks),
	}
}

// NewUsernamePasswordProvider keys identities by username.
func NewUsernamePasswordProvider(opts *PasswordProviderOptions, hooks ProviderHooks) *PasswordProvider {
	return &PasswordProvider{
		name:        ProviderUsernamePassword,
		opts:        opts,
		keyRequired: ErrUsernameRequired,
		info: func(key string) UserInfo {
			return UserInfo{Username: key, ProviderID: ProviderUsernamePassword}
		},
		pipeline: newIdentityPipeline(ProviderUsernamePassword, opts.GetIdentity, hooks),
	}
}

func (p *PasswordProvider) Name() string {
	return p.name
}

// Options returns the provider configuration.
func (p *PasswordProvider) Options() *PasswordProviderOptions {
	return p.opts
}

// ResolveIdentity signs in with key and password. Unknown keys are
// registered only when AutoRegister is set and a save hook exists.
func (p *PasswordProvider) ResolveIdentity(ctx context.Context, key, password string) (*User, error) {
	key = strings.TrimSpace(key)
	if err := require(key, p.keyRequired); err != nil {
		return nil, p.pipeline.fail(ctx, err)
	}
	if err := require(password, ErrPasswordRequired); err != nil {
		return nil, p.pipeline.fail(ctx, err)
	}

	r := resolution{
		key: key,
		checkSecret: func(identity *Identity) error {
			return p.opts.ComparePassword(password, identity.PasswordHash)
		},
	}

	if p.opts.AutoRegister && p.opts.SaveNonExistingIdentity != nil {
		r.register = p.saveFunc(key, password)
	}

	if p.opts.ValidateSignIn != nil {
		r.validateSignIn = func(ctx context.Context) error {
			return p.opts.ValidateSignIn(ctx, key, password)
		}
	}

	return p.pipeline.run(ctx, r)
}

// CreateUser registers key explicitly, regardless of AutoRegister.
func (p *PasswordProvider) CreateUser(ctx context.Context, key, password string) (*User, error) {
	if p.opts.SaveNonExistingIdentity == nil {
		return nil, p.pipeline.fail(ctx, ErrSaveNonExistingUserNotImplemented)
	}

	key = strings.TrimSpace(key)
	if err := require(key, p.keyRequired); err != nil {
		return nil, p.pipeline.fail(ctx, err)
	}
	if err := require(password, ErrPasswordRequired); err != nil {
		return nil, p.pipeline.fail(ctx, err)
	}

	identity, err := p.pipeline.register(ctx, key, p.saveFunc(key, password))
	if err != nil {
		return nil, err
	}
	return strip(identity), nil
}

func (p *PasswordProvider) saveFunc(key, password string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		info := p.info(key)

		if p.opts.ValidateIdentity != nil {
			if err := p.opts.ValidateIdentity(ctx, info, password); err != nil {
				return err
			}
		}

		hashed, err := p.opts.HashPassword(password)
		if err != nil {
			return err
		}

		_, err = p.opts.SaveNonExistingIdentity(ctx, info, hashed)
		return err
	}
}
