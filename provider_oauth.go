package authist

import (
	"context"
	"strings"
)

// OAuthProvider resolves an identity from a third party access token. The
// profile email is the lookup key.
type OAuthProvider struct {
	name     string
	opts     *OAuthProviderOptions
	pipeline *identityPipeline
}

// NewOAuthProvider wraps opts.Fetcher. Unknown emails are registered
// whenever a save hook is configured.
func NewOAuthProvider(name string, opts *OAuthProviderOptions, hooks ProviderHooks) *OAuthProvider {
	if name == "" && opts.Fetcher != nil {
		name = opts.Fetcher.Name()
	}
	return &OAuthProvider{
		name:     name,
		opts:     opts,
		pipeline: newIdentityPipeline(name, opts.GetIdentity, hooks),
	}
}

func (p *OAuthProvider) Name() string {
	return p.name
}

// ResolveIdentity exchanges token for a profile and resolves it. The
// secret argument is unused.
func (p *OAuthProvider) ResolveIdentity(ctx context.Context, token, _ string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, p.pipeline.fail(ctx, ErrAuthenticationRequired)
	}

	profile, err := p.opts.Fetcher.FetchProfile(ctx, token)
	if err != nil {
		return nil, p.pipeline.fail(ctx, err)
	}
	if profile == nil {
		return nil, p.pipeline.fail(ctx, ErrEmailRequired)
	}
	if profile.Provider == "" {
		profile.Provider = p.name
	}

	info := profile.UserInfo()
	if err := require(info.Email, ErrEmailRequired); err != nil {
		return nil, p.pipeline.fail(ctx, err)
	}

	r := resolution{key: info.Email}

	if p.opts.SaveNonExistingIdentity != nil {
		r.register = func(ctx context.Context) error {
			if p.opts.ValidateIdentity != nil {
				if err := p.opts.ValidateIdentity(ctx, info, profile); err != nil {
					return err
				}
			}
			_, err := p.opts.SaveNonExistingIdentity(ctx, info, profile)
			return err
		}
	}

	if p.opts.ValidateSignIn != nil {
		r.validateSignIn = func(ctx context.Context) error {
			return p.opts.ValidateSignIn(ctx, info.Email, profile)
		}
	}

	return p.pipeline.run(ctx, r)
}
