// Package oidc resolves profiles from OpenID Connect ID tokens. The token
// passed to FetchProfile is verified against the issuer keys and its
// standard claims become the profile.
package oidc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/goliatone/go-authist"
	"github.com/goliatone/go-authist/social"
)

// Config configures ID token verification.
type Config struct {
	// Name is the provider key. Defaults to "oidc".
	Name     string
	Issuer   string
	ClientID string
	// KeySet skips discovery when set.
	KeySet               oidc.KeySet
	SupportedSigningAlgs []string
	SkipClientIDCheck    bool
	Now                  func() time.Time

	HTTPClient *http.Client
}

// Fetcher implements authist.ProfileFetcher over ID tokens.
type Fetcher struct {
	name     string
	verifier *oidc.IDTokenVerifier
}

// New builds a fetcher. Without a KeySet the issuer discovery document is
// fetched to locate its JWKS.
func New(ctx context.Context, cfg Config) (*Fetcher, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("oidc: issuer is required")
	}
	if cfg.ClientID == "" && !cfg.SkipClientIDCheck {
		return nil, errors.New("oidc: client id is required")
	}
	if cfg.Name == "" {
		cfg.Name = "oidc"
	}

	verifierConfig := &oidc.Config{
		ClientID:             cfg.ClientID,
		SupportedSigningAlgs: cfg.SupportedSigningAlgs,
		SkipClientIDCheck:    cfg.SkipClientIDCheck,
		Now:                  cfg.Now,
	}

	var verifier *oidc.IDTokenVerifier
	if cfg.KeySet != nil {
		verifier = oidc.NewVerifier(cfg.Issuer, cfg.KeySet, verifierConfig)
	} else {
		client := cfg.HTTPClient
		if client == nil {
			client = social.DefaultHTTPClient()
		}
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, client), cfg.Issuer)
		if err != nil {
			return nil, &social.ProviderError{Provider: cfg.Name, Operation: "discovery", Err: err}
		}
		verifier = provider.Verifier(verifierConfig)
	}

	return &Fetcher{name: cfg.Name, verifier: verifier}, nil
}

// Name implements authist.ProfileFetcher.
func (f *Fetcher) Name() string {
	return f.name
}

// FetchProfile implements authist.ProfileFetcher.
func (f *Fetcher) FetchProfile(ctx context.Context, rawIDToken string) (*authist.Profile, error) {
	token, err := f.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, &social.ProviderError{
			Provider:    f.name,
			Operation:   "verify_id_token",
			Code:        "invalid_token",
			Description: "id token verification failed",
			Err:         err,
		}
	}

	var claims idTokenClaims
	if err := token.Claims(&claims); err != nil {
		return nil, &social.ProviderError{
			Provider:    f.name,
			Operation:   "verify_id_token",
			Code:        "invalid_response",
			Description: "failed to decode id token claims",
			Err:         err,
		}
	}

	return claims.profile(f.name, token), nil
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	PhoneNumber   string `json:"phone_number"`
}

func (c idTokenClaims) profile(provider string, token *oidc.IDToken) *authist.Profile {
	return &authist.Profile{
		Provider:      provider,
		ID:            token.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		DisplayName:   c.Name,
		PhoneNumber:   c.PhoneNumber,
		PhotoURL:      c.Picture,
		Raw: map[string]any{
			"iss": token.Issuer,
			"sub": token.Subject,
			"aud": token.Audience,
		},
	}
}
