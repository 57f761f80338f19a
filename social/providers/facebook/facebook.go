// Package facebook fetches profiles from the Graph API /me endpoint for
// Facebook and Instagram access tokens.
package facebook

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-authist"
	"github.com/goliatone/go-authist/social"
)

const (
	defaultBaseURL    = "https://graph.facebook.com"
	defaultAPIVersion = "v19.0"
)

// Config holds Graph API configuration.
type Config struct {
	BaseURL    string
	APIVersion string
	// Fields are requested from /me. email is always included.
	Fields []string

	HTTPClient *http.Client
}

// DefaultFields returns the fields requested when none are configured.
func DefaultFields() []string {
	return []string{"id", "name", "email", "picture"}
}

// Fetcher implements authist.ProfileFetcher against the Graph API.
type Fetcher struct {
	name       string
	config     Config
	httpClient *http.Client
}

// New creates a Facebook profile fetcher.
func New(cfg Config) *Fetcher {
	return newFetcher("facebook", cfg)
}

// NewInstagram creates an Instagram profile fetcher. Instagram accounts
// are served by the same Graph API /me endpoint.
func NewInstagram(cfg Config) *Fetcher {
	return newFetcher("instagram", cfg)
}

func newFetcher(name string, cfg Config) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = DefaultFields()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = social.DefaultHTTPClient()
	}

	return &Fetcher{
		name:       name,
		config:     cfg,
		httpClient: client,
	}
}

// Name implements authist.ProfileFetcher.
func (f *Fetcher) Name() string {
	return f.name
}

// FetchProfile implements authist.ProfileFetcher.
func (f *Fetcher) FetchProfile(ctx context.Context, token string) (*authist.Profile, error) {
	params := url.Values{
		"fields": {social.FieldList(f.config.Fields, "email")},
	}
	endpoint := strings.TrimRight(f.config.BaseURL, "/") + "/" + strings.Trim(f.config.APIVersion, "/") + "/me?" + params.Encode()

	var user graphUser
	client := social.BearerClient(ctx, f.httpClient, token)
	if err := social.GetJSON(ctx, client, f.name, "me", endpoint, &user); err != nil {
		return nil, err
	}

	return user.profile(f.name), nil
}

type graphUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (u *graphUser) profile(provider string) *authist.Profile {
	return &authist.Profile{
		Provider:    provider,
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.Name,
		PhotoURL:    u.Picture.Data.URL,
		Raw: map[string]any{
			"id":   u.ID,
			"name": u.Name,
		},
	}
}
