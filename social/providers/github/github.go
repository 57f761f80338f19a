package github

import (
	"context"
	"net/http"

	"github.com/goliatone/go-authist"
	"github.com/goliatone/go-authist/social"
)

const (
	defaultUserURL   = "https://api.github.com/user"
	defaultEmailsURL = "https://api.github.com/user/emails"
	providerName     = "github"
)

// Config holds GitHub REST API configuration.
type Config struct {
	UserURL   string
	EmailsURL string

	HTTPClient *http.Client
}

// Fetcher implements authist.ProfileFetcher for GitHub access tokens.
type Fetcher struct {
	config     Config
	httpClient *http.Client
}

// New creates a new GitHub profile fetcher.
func New(cfg Config) *Fetcher {
	if cfg.UserURL == "" {
		cfg.UserURL = defaultUserURL
	}
	if cfg.EmailsURL == "" {
		cfg.EmailsURL = defaultEmailsURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = social.DefaultHTTPClient()
	}

	return &Fetcher{
		config:     cfg,
		httpClient: client,
	}
}

// Name implements authist.ProfileFetcher.
func (f *Fetcher) Name() string {
	return providerName
}

// FetchProfile implements authist.ProfileFetcher. The primary address
// from /user/emails wins over the public profile email.
func (f *Fetcher) FetchProfile(ctx context.Context, token string) (*authist.Profile, error) {
	client := social.BearerClient(ctx, f.httpClient, token)

	var user githubUser
	if err := social.GetJSON(ctx, client, providerName, "user_info", f.config.UserURL, &user); err != nil {
		return nil, err
	}

	email, ok, err := f.primaryEmail(ctx, client)
	if err != nil {
		return nil, err
	}
	if !ok {
		email = githubEmail{Email: user.Email}
	}

	return user.toProfile(email), nil
}

// primaryEmail needs the user:email scope. Without it GitHub answers 403
// or 404 and the caller falls back to the public profile email, unverified.
// Any other failure is returned.
func (f *Fetcher) primaryEmail(ctx context.Context, client *http.Client) (githubEmail, bool, error) {
	var emails []githubEmail
	if err := social.GetJSON(ctx, client, providerName, "emails", f.config.EmailsURL, &emails); err != nil {
		if perr, ok := social.AsProviderError(err); ok && missingScope(perr.Status) {
			return githubEmail{}, false, nil
		}
		return githubEmail{}, false, err
	}
	email, ok := pickEmail(emails)
	return email, ok, nil
}

func missingScope(status int) bool {
	return status == http.StatusForbidden || status == http.StatusNotFound
}
